package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// BasicFormatter implements Formatter for the two output shapes a sequence
// step typically needs: plain text (fmt.Sprintf "%v") and JSON.
type BasicFormatter struct{}

var _ Formatter = (*BasicFormatter)(nil)

// NewBasicFormatter builds a BasicFormatter.
func NewBasicFormatter() *BasicFormatter { return &BasicFormatter{} }

// Format implements Formatter. Supported formats are "text" (also used
// when format is empty) and "json"; any other value is an error.
func (f *BasicFormatter) Format(_ context.Context, value any, format string) (string, error) {
	switch format {
	case "", "text":
		return fmt.Sprintf("%v", value), nil
	case "json":
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("tools: format as json: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("tools: unsupported format %q", format)
	}
}
