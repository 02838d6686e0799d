package monitor

import (
	"fmt"
	"reflect"
)

const (
	maxDepth     = 10
	maxStringLen = 50000
	maxListItems = 100
	maxDictKeys  = 50
)

// sanitizeInputs serializes a method's argument map for a ToolEvent's
// Inputs field, preserving structure to the depth/size limits in
// serializeValue.
func sanitizeInputs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = serializeValue(v, 0)
	}
	return out
}

// sanitizeOutput serializes a method's return value for a ToolEvent's
// Outputs field.
func sanitizeOutput(value any) any {
	return serializeValue(value, 0)
}

// serializeValue mirrors MonitoredToolProxy._serialize_value: recurse into
// slices/maps up to maxDepth, truncate long strings, cap list/map sizes,
// and fall back to a string representation for anything else.
func serializeValue(value any, depth int) any {
	if depth > maxDepth {
		return "<max depth exceeded>"
	}
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case string:
		return truncateString(v)
	case []byte:
		return fmt.Sprintf("<bytes: %d bytes>", len(v))
	case error:
		return truncateString(v.Error())
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return serializeSlice(rv, depth)
	case reflect.Map:
		return serializeMap(rv, depth)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return serializeValue(rv.Elem().Interface(), depth)
	case reflect.Struct:
		return map[string]any{
			"_type":  rv.Type().Name(),
			"_value": truncateString(fmt.Sprintf("%+v", value)),
		}
	default:
		return truncateString(fmt.Sprintf("%v", value))
	}
}

func serializeSlice(rv reflect.Value, depth int) []any {
	n := rv.Len()
	limit := n
	truncated := false
	if limit > maxListItems {
		limit = maxListItems
		truncated = true
	}
	out := make([]any, 0, limit+1)
	for i := 0; i < limit; i++ {
		out = append(out, serializeValue(rv.Index(i).Interface(), depth+1))
	}
	if truncated {
		out = append(out, fmt.Sprintf("... and %d more items", n-maxListItems))
	}
	return out
}

func serializeMap(rv reflect.Value, depth int) map[string]any {
	out := make(map[string]any, rv.Len())
	count := 0
	for _, key := range rv.MapKeys() {
		if count >= maxDictKeys {
			out["..."] = fmt.Sprintf("%d more keys", rv.Len()-maxDictKeys)
			break
		}
		out[fmt.Sprintf("%v", key.Interface())] = serializeValue(rv.MapIndex(key).Interface(), depth+1)
		count++
	}
	return out
}

func truncateString(s string) string {
	if len(s) <= maxStringLen {
		return s
	}
	return fmt.Sprintf("%s... [truncated, total %d chars]", s[:maxStringLen], len(s))
}
