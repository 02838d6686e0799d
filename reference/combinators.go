package reference

import "fmt"

// Func is the shape a cell in the A operand of CrossAction must have: a
// single-input function returning a list of results (or failing, which
// CrossAction treats the same as an input skip).
type Func func(input any) ([]any, error)

// ElementFunc combines one element per reference at an aligned coordinate.
// A returned error is equivalent to that coordinate being skip.
type ElementFunc func(elements []any) (any, error)

// IndexAwareElementFunc is ElementFunc plus the coordinate being combined,
// keyed by axis name.
type IndexAwareElementFunc func(elements []any, index map[string]int) (any, error)

// CrossProduct combines references over the union of their axes (in first
// occurrence order). Axes shared between references must agree on extent.
// At each coordinate the result cell holds a []any with one element per
// input reference, in input order, or is left skip if any input is skip at
// that coordinate. A trailing "_none_axis" is dropped automatically.
func CrossProduct(refs ...*Reference) (*Reference, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("reference: cross_product needs at least one reference")
	}

	axisOrder := make([]string, 0)
	axisShape := make(map[string]int)
	for _, ref := range refs {
		for i, axis := range ref.axes {
			if size, ok := axisShape[axis]; ok {
				if size != ref.shape[i] {
					return nil, fmt.Errorf("reference: shape mismatch for axis %q: %d vs %d", axis, ref.shape[i], size)
				}
				continue
			}
			axisOrder = append(axisOrder, axis)
			axisShape[axis] = ref.shape[i]
		}
	}

	combinedShape := make([]int, len(axisOrder))
	for i, axis := range axisOrder {
		combinedShape[i] = axisShape[axis]
	}

	out, err := New(axisOrder, combinedShape)
	if err != nil {
		return nil, err
	}

	for _, combo := range cartesian(combinedShape) {
		coord := make(map[string]int, len(axisOrder))
		for i, axis := range axisOrder {
			coord[axis] = combo[i]
		}
		elements := make([]any, len(refs))
		skip := false
		for i, ref := range refs {
			refCoord := restrict(coord, ref.axes)
			val, err := ref.Get(refCoord)
			if err != nil {
				return nil, err
			}
			if val == SkipValue {
				skip = true
				break
			}
			elements[i] = val
		}
		if skip {
			continue
		}
		if err := out.Set(elements, coord); err != nil {
			return nil, err
		}
	}

	return out.autoRemoveNoneAxis(), nil
}

// CrossAction applies the callables held by a to the values held by b. The
// axes of the result are a's axes, then any of b's axes not already in a,
// then newAxisName sized by the length of the first non-skip result (or 1
// if every coordinate is skip). A coordinate is skip if either operand is
// skip there, the cell in a is not a Func, or calling it errors.
func CrossAction(a, b *Reference, newAxisName string) (*Reference, error) {
	combinedAxes := append([]string(nil), a.axes...)
	for _, axis := range b.axes {
		if _, ok := a.axisIndex(axis); !ok {
			combinedAxes = append(combinedAxes, axis)
		}
	}

	combinedShape := make([]int, len(combinedAxes))
	for i, axis := range combinedAxes {
		ai, aok := a.axisIndex(axis)
		bi, bok := b.axisIndex(axis)
		switch {
		case aok && bok:
			if a.shape[ai] != b.shape[bi] {
				return nil, fmt.Errorf("reference: shape mismatch for shared axis %q: %d vs %d", axis, a.shape[ai], b.shape[bi])
			}
			combinedShape[i] = a.shape[ai]
		case aok:
			combinedShape[i] = a.shape[ai]
		default:
			combinedShape[i] = b.shape[bi]
		}
	}

	type cell struct {
		skip   bool
		result []any
	}
	combos := cartesian(combinedShape)
	cells := make([]cell, len(combos))
	newAxisLen := -1

	for idx, combo := range combos {
		coord := make(map[string]int, len(combinedAxes))
		for i, axis := range combinedAxes {
			coord[axis] = combo[i]
		}
		fnVal, err := a.Get(restrict(coord, a.axes))
		if err != nil {
			return nil, err
		}
		inputVal, err := b.Get(restrict(coord, b.axes))
		if err != nil {
			return nil, err
		}
		if fnVal == SkipValue || inputVal == SkipValue {
			cells[idx] = cell{skip: true}
			continue
		}
		fn, ok := fnVal.(Func)
		if !ok {
			cells[idx] = cell{skip: true}
			continue
		}
		result, err := fn(inputVal)
		if err != nil {
			cells[idx] = cell{skip: true}
			continue
		}
		skipResult := false
		for _, r := range result {
			if r == SkipValue {
				skipResult = true
				break
			}
		}
		if skipResult {
			cells[idx] = cell{skip: true}
			continue
		}
		cells[idx] = cell{result: result}
		if newAxisLen == -1 {
			newAxisLen = len(result)
		}
	}
	if newAxisLen == -1 {
		newAxisLen = 1
	}

	newAxes := append(append([]string(nil), combinedAxes...), newAxisName)
	newShape := append(append([]int(nil), combinedShape...), newAxisLen)
	out, err := New(newAxes, newShape)
	if err != nil {
		return nil, err
	}

	for idx, combo := range combos {
		if cells[idx].skip {
			continue
		}
		coord := make(map[string]int, len(newAxes))
		for i, axis := range combinedAxes {
			coord[axis] = combo[i]
		}
		for i := 0; i < newAxisLen && i < len(cells[idx].result); i++ {
			coord[newAxisName] = i
			if err := out.Set(cells[idx].result[i], coord); err != nil {
				return nil, err
			}
		}
	}

	return out.autoRemoveNoneAxis(), nil
}

// ElementAction applies f to one element per reference at each aligned
// coordinate over the union of their axes. A coordinate is skip if any
// input is skip there or f errors.
func ElementAction(f ElementFunc, refs ...*Reference) (*Reference, error) {
	return elementAction(refs, func(elements []any, _ map[string]int) (any, error) {
		return f(elements)
	})
}

// ElementActionIndexAware is ElementAction with the combining coordinate
// passed through to f.
func ElementActionIndexAware(f IndexAwareElementFunc, refs ...*Reference) (*Reference, error) {
	return elementAction(refs, f)
}

func elementAction(refs []*Reference, f func(elements []any, index map[string]int) (any, error)) (*Reference, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("reference: element_action needs at least one reference")
	}

	combinedAxes := make([]string, 0)
	axisShape := make(map[string]int)
	for _, ref := range refs {
		for i, axis := range ref.axes {
			if _, ok := axisShape[axis]; !ok {
				combinedAxes = append(combinedAxes, axis)
				axisShape[axis] = ref.shape[i]
			} else if axisShape[axis] != ref.shape[i] {
				return nil, fmt.Errorf("reference: shape mismatch for axis %q", axis)
			}
		}
	}

	combinedShape := make([]int, len(combinedAxes))
	for i, axis := range combinedAxes {
		combinedShape[i] = axisShape[axis]
	}

	out, err := New(combinedAxes, combinedShape)
	if err != nil {
		return nil, err
	}

	for _, combo := range cartesian(combinedShape) {
		coord := make(map[string]int, len(combinedAxes))
		for i, axis := range combinedAxes {
			coord[axis] = combo[i]
		}
		elements := make([]any, len(refs))
		skip := false
		for i, ref := range refs {
			val, err := ref.Get(restrict(coord, ref.axes))
			if err != nil {
				return nil, err
			}
			if val == SkipValue {
				skip = true
				break
			}
			elements[i] = val
		}
		if skip {
			continue
		}
		result, err := f(elements, coord)
		if err != nil {
			continue
		}
		if err := out.Set(result, coord); err != nil {
			return nil, err
		}
	}

	return out.autoRemoveNoneAxis(), nil
}

func restrict(coord map[string]int, axes []string) map[string]int {
	out := make(map[string]int, len(axes))
	for _, axis := range axes {
		out[axis] = coord[axis]
	}
	return out
}
