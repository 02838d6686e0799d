// Package reference implements the rectangular, multi-axis, skip-valued
// container that the rest of the orchestrator builds working memory on top
// of: Reference and Concept, plus the cross_product / cross_action /
// element_action combinators used by quantifier and state.
package reference

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SkipValue is the sentinel stored (or, more commonly, simply absent) at
// coordinates that have no data yet. It is exported so callers can compare
// a value returned by Get against it without importing anything else.
const SkipValue = "@#SKIP#@"

// noneAxis is synthesized by Slice when called with zero axes, and removed
// automatically by the combinators once it is no longer the only axis.
const noneAxis = "_none_axis"

// Reference is a dense, named-axis tensor of arbitrary Go values. Cells
// that have never been written read back as SkipValue. Axes grow lazily:
// Set with an index past the current extent extends that axis, backfilling
// the gap with skip.
type Reference struct {
	axes  []string
	shape []int
	data  map[string]any
}

// New creates an empty reference with the given axes and starting shape.
// len(axes) must equal len(shape), and axis names must be unique.
func New(axes []string, shape []int) (*Reference, error) {
	if len(axes) != len(shape) {
		return nil, fmt.Errorf("reference: axes and shape must have the same length, got %d and %d", len(axes), len(shape))
	}
	seen := make(map[string]bool, len(axes))
	for _, a := range axes {
		if seen[a] {
			return nil, fmt.Errorf("reference: duplicate axis %q", a)
		}
		seen[a] = true
	}
	for i, n := range shape {
		if n < 0 {
			return nil, fmt.Errorf("reference: negative shape at axis %q", axes[i])
		}
	}
	return &Reference{
		axes:  append([]string(nil), axes...),
		shape: append([]int(nil), shape...),
		data:  make(map[string]any),
	}, nil
}

// Axes returns the axis names in declaration order. The returned slice is a
// copy; mutating it does not affect the reference.
func (r *Reference) Axes() []string { return append([]string(nil), r.axes...) }

// Shape returns the current extent of each axis. The returned slice is a
// copy.
func (r *Reference) Shape() []int { return append([]int(nil), r.shape...) }

func (r *Reference) axisIndex(name string) (int, bool) {
	for i, a := range r.axes {
		if a == name {
			return i, true
		}
	}
	return 0, false
}

func (r *Reference) validateCoord(coord map[string]int) error {
	for axis := range coord {
		if _, ok := r.axisIndex(axis); !ok {
			return fmt.Errorf("reference: axis %q not found in %v", axis, r.axes)
		}
	}
	return nil
}

// freeAxes returns the axes of r not present in coord, in axis order.
func (r *Reference) freeAxes(coord map[string]int) []string {
	free := make([]string, 0, len(r.axes)-len(coord))
	for _, a := range r.axes {
		if _, ok := coord[a]; !ok {
			free = append(free, a)
		}
	}
	return free
}

func cloneCoord(coord map[string]int) map[string]int {
	out := make(map[string]int, len(coord)+1)
	for k, v := range coord {
		out[k] = v
	}
	return out
}

func (r *Reference) key(coord map[string]int) string {
	parts := make([]string, len(r.axes))
	for i, a := range r.axes {
		parts[i] = strconv.Itoa(coord[a])
	}
	return strings.Join(parts, ",")
}

// Get reads the element(s) at coord. Axes absent from coord are treated as
// full slices: Get returns a nested []any tree over those free axes, in
// axis order, with SkipValue standing in for any cell never written or out
// of the current shape. A fully specified coord returns a single scalar.
func (r *Reference) Get(coord map[string]int) (any, error) {
	if err := r.validateCoord(coord); err != nil {
		return nil, err
	}
	return r.getRecursive(coord, r.freeAxes(coord)), nil
}

func (r *Reference) getRecursive(fixed map[string]int, free []string) any {
	if len(free) == 0 {
		return r.getScalar(fixed)
	}
	axis := free[0]
	rest := free[1:]
	n := r.shape[mustIndex(r.axes, axis)]
	out := make([]any, n)
	for i := 0; i < n; i++ {
		next := cloneCoord(fixed)
		next[axis] = i
		out[i] = r.getRecursive(next, rest)
	}
	return out
}

func (r *Reference) getScalar(fixed map[string]int) any {
	for i, axis := range r.axes {
		idx := fixed[axis]
		if idx < 0 || idx >= r.shape[i] {
			return SkipValue
		}
	}
	if v, ok := r.data[r.key(fixed)]; ok {
		return v
	}
	return SkipValue
}

// Set writes value at coord. Axes given an explicit index extend the axis
// (backfilling with skip) if the index is beyond the current shape. Axes
// absent from coord broadcast the write across the axis's current extent
// without extending it, mirroring a Python slice(None) assignment.
func (r *Reference) Set(value any, coord map[string]int) error {
	if err := r.validateCoord(coord); err != nil {
		return err
	}
	for axis, idx := range coord {
		if idx < 0 {
			return fmt.Errorf("reference: negative index %d for axis %q", idx, axis)
		}
		ai := mustIndex(r.axes, axis)
		if idx >= r.shape[ai] {
			r.shape[ai] = idx + 1
		}
	}
	r.setRecursive(value, coord, r.freeAxes(coord))
	return nil
}

func (r *Reference) setRecursive(value any, fixed map[string]int, free []string) {
	if len(free) == 0 {
		r.data[r.key(fixed)] = value
		return
	}
	axis := free[0]
	rest := free[1:]
	n := r.shape[mustIndex(r.axes, axis)]
	for i := 0; i < n; i++ {
		next := cloneCoord(fixed)
		next[axis] = i
		r.setRecursive(value, next, rest)
	}
}

// Slice projects the reference down to selectedAxes. With no axes given it
// wraps the whole tensor in a singleton "_none_axis". Axis existence and
// duplicate checks happen before any data is touched, so a bad selection
// never has partial side effects.
func (r *Reference) Slice(selectedAxes ...string) (*Reference, error) {
	if len(selectedAxes) == 0 {
		whole, _ := r.Get(map[string]int{})
		out, err := New([]string{noneAxis}, []int{1})
		if err != nil {
			return nil, err
		}
		if err := out.Set(whole, map[string]int{noneAxis: 0}); err != nil {
			return nil, err
		}
		return out, nil
	}

	seen := make(map[string]bool, len(selectedAxes))
	newShape := make([]int, len(selectedAxes))
	for i, axis := range selectedAxes {
		idx, ok := r.axisIndex(axis)
		if !ok {
			return nil, fmt.Errorf("reference: axis %q not found in %v", axis, r.axes)
		}
		if seen[axis] {
			return nil, fmt.Errorf("reference: duplicate axis %q in selection", axis)
		}
		seen[axis] = true
		newShape[i] = r.shape[idx]
	}

	out, err := New(selectedAxes, newShape)
	if err != nil {
		return nil, err
	}

	for _, combo := range cartesian(newShape) {
		coord := make(map[string]int, len(selectedAxes))
		for i, axis := range selectedAxes {
			coord[axis] = combo[i]
		}
		sub, err := r.Get(coord)
		if err != nil {
			return nil, err
		}
		if sub == SkipValue {
			continue
		}
		if list, ok := sub.([]any); ok {
			skip := false
			for _, elem := range list {
				if elem == SkipValue {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
		}
		if err := out.Set(sub, coord); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ShapeView selects the given axes, defaulting to all axes (in current
// order) when view is empty.
func (r *Reference) ShapeView(view []string) (*Reference, error) {
	selected := view
	if len(selected) == 0 {
		selected = r.Axes()
	}
	for _, axis := range selected {
		if _, ok := r.axisIndex(axis); !ok {
			return nil, fmt.Errorf("reference: axis %q not found in reference axes", axis)
		}
	}
	return r.Slice(selected...)
}

// Clone returns a deep copy; Concept.Attach uses this for copy-on-attach.
func (r *Reference) Clone() *Reference {
	out := &Reference{
		axes:  append([]string(nil), r.axes...),
		shape: append([]int(nil), r.shape...),
		data:  make(map[string]any, len(r.data)),
	}
	for k, v := range r.data {
		out.data[k] = v
	}
	return out
}

// Equal reports whether r and other hold the same axes, shape, and cell
// values, used by Quantifier to recognize a looped element it has already
// stored (the Go analogue of the original implementation's repeated
// `.tensor == .tensor` comparisons).
func (r *Reference) Equal(other *Reference) bool {
	if r == nil || other == nil {
		return r == other
	}
	if !reflect.DeepEqual(r.axes, other.axes) || !reflect.DeepEqual(r.shape, other.shape) {
		return false
	}
	return reflect.DeepEqual(r.data, other.data)
}

// autoRemoveNoneAxis drops "_none_axis" once the reference carries at least
// one other axis, projecting the data at index 0 along that axis. This is
// applied by every combinator so "_none_axis" never survives past the
// operation that would otherwise have made it permanent.
func (r *Reference) autoRemoveNoneAxis() *Reference {
	idx, ok := r.axisIndex(noneAxis)
	if !ok || len(r.axes) <= 1 {
		return r
	}
	newAxes := make([]string, 0, len(r.axes)-1)
	newShape := make([]int, 0, len(r.shape)-1)
	for i, a := range r.axes {
		if i == idx {
			continue
		}
		newAxes = append(newAxes, a)
		newShape = append(newShape, r.shape[i])
	}
	out, err := New(newAxes, newShape)
	if err != nil {
		// newAxes/newShape are derived from a valid reference; this cannot fail.
		panic(err)
	}
	for _, combo := range cartesian(newShape) {
		coord := make(map[string]int, len(newAxes)+1)
		for i, axis := range newAxes {
			coord[axis] = combo[i]
		}
		coord[noneAxis] = 0
		val := r.getScalar(coord)
		if val == SkipValue {
			continue
		}
		newCoord := make(map[string]int, len(newAxes))
		for i, axis := range newAxes {
			newCoord[axis] = combo[i]
		}
		_ = out.Set(val, newCoord)
	}
	return out
}

func mustIndex(axes []string, name string) int {
	for i, a := range axes {
		if a == name {
			return i
		}
	}
	panic(fmt.Sprintf("reference: axis %q not present", name))
}

// cartesian enumerates every coordinate tuple for shape, in row-major
// (last-axis-fastest) order. An empty shape yields a single empty tuple.
func cartesian(shape []int) [][]int {
	if len(shape) == 0 {
		return [][]int{{}}
	}
	total := 1
	for _, n := range shape {
		total *= n
	}
	out := make([][]int, 0, total)
	combo := make([]int, len(shape))
	var advance func(pos int) bool
	advance = func(pos int) bool {
		if pos < 0 {
			return false
		}
		combo[pos]++
		if combo[pos] >= shape[pos] {
			combo[pos] = 0
			return advance(pos - 1)
		}
		return true
	}
	for i := 0; i < total; i++ {
		out = append(out, append([]int(nil), combo...))
		advance(len(shape) - 1)
	}
	return out
}
