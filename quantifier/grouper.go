package quantifier

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/normcode/orchestrator/reference"
)

// Grouper composes references under the AND-IN / OR-ACROSS grouping
// patterns: cross-product references over their shared axes, then either
// annotate-and-keep (AND) or flatten-and-collapse (OR) the non-shared
// axes named by sliceAxes. Grounded on the Grouper class in
// core/_new_np/_methods/_quantification_demo.py.
type Grouper struct{}

// NewGrouper returns a Grouper. It carries no state: every method is a
// pure function of its arguments.
func NewGrouper() *Grouper { return &Grouper{} }

func (g *Grouper) findShareAxes(refs []*reference.Reference) []string {
	if len(refs) == 0 {
		return nil
	}
	shared := make(map[string]bool, len(refs[0].Axes()))
	for _, axis := range refs[0].Axes() {
		shared[axis] = true
	}
	for _, ref := range refs[1:] {
		present := make(map[string]bool, len(ref.Axes()))
		for _, axis := range ref.Axes() {
			present[axis] = true
		}
		for axis := range shared {
			if !present[axis] {
				delete(shared, axis)
			}
		}
	}
	out := make([]string, 0, len(shared))
	for _, axis := range refs[0].Axes() {
		if shared[axis] {
			out = append(out, axis)
		}
	}
	return out
}

// flattenElement recursively flattens every cell of ref into a []any,
// the Go analogue of Grouper.flatten_element.
func (g *Grouper) flattenElement(ref *reference.Reference) (*reference.Reference, error) {
	return reference.ElementAction(func(elements []any) (any, error) {
		return flattenList(elements[0]), nil
	}, ref)
}

// annotateElement relabels each cell's list elements by annotationList,
// producing a map[string]any keyed by annotation. A cell whose list
// length doesn't match annotationList becomes reference.SkipValue,
// matching annotate_list's length-mismatch fallback.
func (g *Grouper) annotateElement(ref *reference.Reference, annotationList []string) (*reference.Reference, error) {
	return reference.ElementAction(func(elements []any) (any, error) {
		list, ok := elements[0].([]any)
		if !ok {
			list = []any{elements[0]}
		}
		if len(list) != len(annotationList) {
			return reference.SkipValue, nil
		}
		m := make(map[string]any, len(annotationList))
		for i, annotation := range annotationList {
			m[annotation] = list[i]
		}
		return m, nil
	}, ref)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// sliceByGroups implements the shared "preserve axes untouched by any
// group, keep axes common to every (optionally last-element-popped)
// group" projection used by both AND-IN and OR-ACROSS.
func sliceByGroups(result *reference.Reference, sliceAxes [][]string, pop bool) (*reference.Reference, error) {
	axes := result.Axes()

	preserve := make([]string, 0, len(axes))
outer:
	for _, axis := range axes {
		for _, group := range sliceAxes {
			if containsString(group, axis) {
				continue outer
			}
		}
		preserve = append(preserve, axis)
	}

	groups := make([][]string, len(sliceAxes))
	for i, group := range sliceAxes {
		groups[i] = append([]string(nil), group...)
	}
	if pop {
		for i := range groups {
			if len(groups[i]) > 0 {
				groups[i] = groups[i][:len(groups[i])-1]
			}
		}
	}

	var inAllGroups []string
	if len(groups) > 0 && len(groups[0]) > 0 {
		for _, axis := range axes {
			present := true
			for _, group := range groups {
				if !containsString(group, axis) {
					present = false
					break
				}
			}
			if present {
				inAllGroups = append(inAllGroups, axis)
			}
		}
	}

	final := append(append([]string(nil), preserve...), inAllGroups...)
	return result.Slice(final...)
}

// toElementList returns value as a []any: itself if it already is one,
// otherwise a singleton wrapping it, matching the original's
// "isinstance(element, list)" branch.
func toElementList(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}
	return []any{value}
}

func stringifyValue(value any) string {
	return fmt.Sprint(value)
}

// createUnifiedElementActuation builds the per-cell template-rendering
// function And/OrAcross apply when a template is supplied: annotationList
// non-nil reads named fields out of an annotated cell ("input1", "input2",
// ...); with a nil annotationList each element of the cell is rendered
// on its own as "input1", and an element that is itself a list is joined
// with "; " first. Each rendering is followed by " \n". Grounded on
// create_unified_element_actuation, with Python's string.Template
// safe_substitute replaced by text/template.Execute per this module's
// prompt-rendering convention (see tools/prompt.go).
func createUnifiedElementActuation(tmpl *template.Template, annotationList []string) reference.ElementFunc {
	return func(elements []any) (any, error) {
		var out strings.Builder
		for _, one := range toElementList(elements[0]) {
			data := make(map[string]any)
			if annotationList != nil {
				annotated, _ := one.(map[string]any)
				for i, annotation := range annotationList {
					key := fmt.Sprintf("input%d", i+1)
					if v, ok := annotated[annotation]; ok {
						data[key] = stringifyValue(v)
					} else {
						data[key] = reference.SkipValue
					}
				}
			} else if list, ok := one.([]any); ok {
				parts := make([]string, len(list))
				for i, v := range list {
					parts[i] = fmt.Sprint(v)
				}
				data["input1"] = strings.Join(parts, "; ")
			} else {
				data["input1"] = fmt.Sprint(one)
			}

			var rendered bytes.Buffer
			if err := tmpl.Execute(&rendered, data); err != nil {
				return nil, err
			}
			out.WriteString(rendered.String())
			out.WriteString(" \n")
		}
		return out.String(), nil
	}
}

// AndIn implements the AND IN / AND ONLY grouping patterns: cross-product
// refs over their shared axes, annotate each combined cell by
// annotationList, then (when sliceAxes is non-empty) project down to the
// axes untouched by any group plus the axes common to every group —
// AND ONLY is simply AndIn called with sliceAxes nil. A non-nil tmpl
// renders each surviving cell through createUnifiedElementActuation.
func (g *Grouper) AndIn(refs []*reference.Reference, annotationList []string, sliceAxes [][]string, tmpl *template.Template, pop bool) (*reference.Reference, error) {
	shared := g.findShareAxes(refs)
	sliced := make([]*reference.Reference, len(refs))
	for i, ref := range refs {
		s, err := ref.Slice(shared...)
		if err != nil {
			return nil, err
		}
		sliced[i] = s
	}

	result, err := reference.CrossProduct(sliced...)
	if err != nil {
		return nil, err
	}

	result, err = g.annotateElement(result, annotationList)
	if err != nil {
		return nil, err
	}

	if len(sliceAxes) > 0 {
		result, err = sliceByGroups(result, sliceAxes, pop)
		if err != nil {
			return nil, err
		}
	}

	if tmpl != nil {
		result, err = reference.ElementAction(createUnifiedElementActuation(tmpl, annotationList), result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// OrAcross implements the OR ACROSS / OR ONLY grouping patterns:
// cross-product refs over their shared axes, optionally project (as
// AndIn does) by sliceAxes, then flatten every surviving cell's elements
// into one list. OR ONLY is OrAcross called with sliceAxes nil. A non-nil
// tmpl renders each flattened cell (with no annotation labels).
func (g *Grouper) OrAcross(refs []*reference.Reference, sliceAxes [][]string, tmpl *template.Template, pop bool) (*reference.Reference, error) {
	shared := g.findShareAxes(refs)
	sliced := make([]*reference.Reference, len(refs))
	for i, ref := range refs {
		s, err := ref.Slice(shared...)
		if err != nil {
			return nil, err
		}
		sliced[i] = s
	}

	result, err := reference.CrossProduct(sliced...)
	if err != nil {
		return nil, err
	}

	if len(sliceAxes) > 0 {
		result, err = sliceByGroups(result, sliceAxes, pop)
		if err != nil {
			return nil, err
		}
	}

	result, err = g.flattenElement(result)
	if err != nil {
		return nil, err
	}

	if tmpl != nil {
		result, err = reference.ElementAction(createUnifiedElementActuation(tmpl, nil), result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
