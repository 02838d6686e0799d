// Package quantifier implements the iterated-reduction step helpers:
// Quantifier, which walks a reference one looped element at a time and
// remembers what it has already seen, and Grouper, which composes
// references under the AND-IN / OR-ACROSS patterns quantification's
// formal-actuator step builds on. Grounded on
// core/_new_infra/_syntax/_quantifier.py (Quantifier) and the sibling
// Grouper in core/_new_np/_methods/_quantification_demo.py.
//
// Both types are pure over the state handed to them: no I/O, no logging
// side channel beyond what the caller chooses to do with returned values.
package quantifier

import (
	"fmt"

	"github.com/normcode/orchestrator/reference"
)

// Quantifier manages the state of looped elements and their references for
// one loop-base concept, providing methods to store, retrieve, and combine
// references across iterations. Not safe for concurrent use by multiple
// goroutines on the same instance; Workspace itself is.
type Quantifier struct {
	workspace           *Workspace
	loopBaseConceptName string
	workspaceKey        string
	currentSubworkspace Subworkspace
}

// New builds a Quantifier scoped to loopBaseConceptName within workspace,
// at the given starting loop-concept index (0 if the caller has no
// nesting to express).
func New(workspace *Workspace, loopBaseConceptName string, loopConceptIndex int) *Quantifier {
	q := &Quantifier{
		workspace:           workspace,
		loopBaseConceptName: loopBaseConceptName,
	}
	q.workspaceKey = fmt.Sprintf("%d_%s", loopConceptIndex, loopBaseConceptName)
	q.currentSubworkspace = workspace.sub(q.workspaceKey)
	return q
}

// getListAtIndex returns the element at index within value, treating value
// as a list (a []any cell, the Go equivalent of a nested-list tensor
// element); it returns reference.SkipValue if value is not a list or index
// is out of bounds, matching the original's None-on-failure behavior.
func getListAtIndex(value any, index int) any {
	list, ok := value.([]any)
	if !ok {
		return reference.SkipValue
	}
	if index < 0 || index >= len(list) {
		return reference.SkipValue
	}
	return list[index]
}

// flattenList recursively flattens a (possibly nested) []any into a single
// flat slice, leaving non-list values as singleton entries.
func flattenList(value any) []any {
	list, ok := value.([]any)
	if !ok {
		return []any{value}
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		out = append(out, flattenList(item)...)
	}
	return out
}

// allSkip reports whether every element of elements is reference.SkipValue
// (the Go counterpart of the original's "e is None or e == SKIP" check —
// Go has no separate null, so SkipValue alone carries that meaning).
func allSkip(elements []any) bool {
	for _, e := range elements {
		if e != reference.SkipValue {
			return false
		}
	}
	return true
}

// elementAtIndex applies getListAtIndex(_, index) element-wise over ref.
func elementAtIndex(ref *reference.Reference, index int) (*reference.Reference, error) {
	return reference.ElementAction(func(elements []any) (any, error) {
		return getListAtIndex(elements[0], index), nil
	}, ref)
}

// emptyReference is the Go stand-in for the original's
// Reference(initial_value=None, axes=None, shape=None): an axis-less
// reference whose sole scalar cell reads back as skip.
func emptyReference() *reference.Reference {
	ref, _ := reference.New(nil, nil)
	return ref
}

// checkNewBaseElementByLoopedBaseElement reports whether current is NOT
// already stored under conceptName at any loop index in the current
// subworkspace. conceptName is caller-supplied rather than always
// q.loopBaseConceptName, matching call sites that check against a
// differently-named (e.g. "*"-suffixed) in-loop concept.
func (q *Quantifier) checkNewBaseElementByLoopedBaseElement(current *reference.Reference, conceptName string) bool {
	for _, entry := range q.currentSubworkspace {
		if stored, ok := entry[conceptName]; ok && current.Equal(stored) {
			return false
		}
	}
	return true
}

// checkIndexOfCurrentLoopedBaseElement returns the loop index already
// holding ref under q.loopBaseConceptName, or the next free index if none
// does.
func (q *Quantifier) checkIndexOfCurrentLoopedBaseElement(ref *reference.Reference) int {
	for idx, entry := range q.currentSubworkspace {
		if stored, ok := entry[q.loopBaseConceptName]; ok && stored.Equal(ref) {
			return idx
		}
	}
	return q.nextLoopIndex()
}

// nextLoopIndex returns one past the largest loop index currently used in
// the subworkspace (0 if it is empty).
func (q *Quantifier) nextLoopIndex() int {
	next := 0
	for idx := range q.currentSubworkspace {
		if idx+1 > next {
			next = idx + 1
		}
	}
	return next
}

// StoreNewBaseElement stores ref as the loop-base element at the loop
// index it already occupies, or a newly allocated one. Returns that index.
func (q *Quantifier) StoreNewBaseElement(ref *reference.Reference) int {
	idx := q.checkIndexOfCurrentLoopedBaseElement(ref)
	if _, ok := q.currentSubworkspace[idx]; !ok {
		q.currentSubworkspace[idx] = make(map[string]*reference.Reference)
	}
	q.currentSubworkspace[idx][q.loopBaseConceptName] = ref
	return idx
}

// StoreNewInLoopElement stores conceptRef under conceptName at the loop
// index base already occupies. Returns an error if base has not been
// stored yet (StoreNewBaseElement must run first).
func (q *Quantifier) StoreNewInLoopElement(base *reference.Reference, conceptName string, conceptRef *reference.Reference) (int, error) {
	idx := q.checkIndexOfCurrentLoopedBaseElement(base)
	if _, ok := q.currentSubworkspace[idx]; !ok {
		return 0, fmt.Errorf("quantifier: base element is not in the current subworkspace")
	}
	q.currentSubworkspace[idx][conceptName] = conceptRef
	return idx, nil
}

// maxRetrieveIterations bounds the scan in RetrieveNextBaseElement and
// CheckAllBaseElementsLooped. The original has an equivalent guard that is
// unreachable dead code (placed after an unconditional return); this
// implementation makes the guard actually effective rather than carrying
// the bug forward.
const maxRetrieveIterations = 1_000_000

// RetrieveNextBaseElement returns the next element of toLoop not already
// processed: it skips current (if given) and any element whose tensor
// already occupies a loop index for q.loopBaseConceptName. Returns the
// element found (or the skip-valued element at the index where scanning
// stopped) and the loop index it was found at.
//
// Named RetrieveNextBaseElement here; the original misspells this method
// retireve_next_base_element (see DESIGN.md).
func (q *Quantifier) RetrieveNextBaseElement(toLoop *reference.Reference, current *reference.Reference) (*reference.Reference, int, error) {
	index := 0
	var at *reference.Reference
	for {
		if index > maxRetrieveIterations {
			break
		}
		next, err := elementAtIndex(toLoop, index)
		if err != nil {
			return nil, 0, err
		}
		at = next
		if allSkip(flattenCells(at)) {
			break
		}
		if current != nil && at.Equal(current) {
			index++
			continue
		}
		foundInWorkspace := false
		for _, entry := range q.currentSubworkspace {
			if stored, ok := entry[q.loopBaseConceptName]; ok && at.Equal(stored) {
				index++
				foundInWorkspace = true
				break
			}
		}
		if foundInWorkspace {
			continue
		}
		return at, index, nil
	}
	return at, index, nil
}

// flattenCells flattens every cell of ref (over all of its axes) into one
// slice, the Go equivalent of the original's ref.tensor flattened via
// _flatten_list.
func flattenCells(ref *reference.Reference) []any {
	whole, err := ref.Get(map[string]int{})
	if err != nil {
		return nil
	}
	return flattenList(whole)
}

// CheckAllBaseElementsLooped reports whether every element of toLoop has
// already been stored for q.loopBaseConceptName, and — when
// inLoopConceptName is non-empty — that each matching loop index also
// carries an entry for it.
func (q *Quantifier) CheckAllBaseElementsLooped(toLoop *reference.Reference, inLoopConceptName string) (bool, error) {
	index := 0
	for index <= maxRetrieveIterations {
		at, err := elementAtIndex(toLoop, index)
		if err != nil {
			return false, err
		}
		if allSkip(flattenCells(at)) {
			return true, nil
		}
		matchIndex := -1
		for idx, entry := range q.currentSubworkspace {
			if stored, ok := entry[q.loopBaseConceptName]; ok && at.Equal(stored) {
				matchIndex = idx
				break
			}
		}
		if matchIndex == -1 {
			return false, nil
		}
		if inLoopConceptName != "" {
			if _, ok := q.currentSubworkspace[matchIndex][inLoopConceptName]; !ok {
				return false, nil
			}
		}
		index++
	}
	return false, fmt.Errorf("quantifier: exceeded %d iterations scanning for looped elements", maxRetrieveIterations)
}

// CombineAllLoopedElementsByConcept cross-products every stored reference
// for conceptName across the loop indices that toLoop's elements occupy,
// in ascending element order. Returns nil with no error if nothing was
// collected.
func (q *Quantifier) CombineAllLoopedElementsByConcept(toLoop *reference.Reference, conceptName string) (*reference.Reference, error) {
	index := 0
	var collected []*reference.Reference
	for index <= maxRetrieveIterations {
		at, err := elementAtIndex(toLoop, index)
		if err != nil {
			return nil, err
		}
		if allSkip(flattenCells(at)) {
			break
		}
		matchIndex := -1
		for idx, entry := range q.currentSubworkspace {
			if stored, ok := entry[q.loopBaseConceptName]; ok && at.Equal(stored) {
				matchIndex = idx
				break
			}
		}
		if matchIndex != -1 {
			if conceptRef, ok := q.currentSubworkspace[matchIndex][conceptName]; ok {
				collected = append(collected, conceptRef)
			}
		}
		index++
	}
	if len(collected) == 0 {
		return nil, nil
	}
	return reference.CrossProduct(collected...)
}

// RetrieveNextInLoopElement retrieves the in-loop reference for
// conceptName carryIndex loop indices behind currentLoopIndex ("carry
// over"). mode is validated against "carry_over", the only mode the
// original implements; an empty reference is returned once
// currentLoopIndex has not yet advanced past carryIndex.
func (q *Quantifier) RetrieveNextInLoopElement(conceptName string, mode string, currentLoopIndex int, carryIndex int) (*reference.Reference, error) {
	if mode != "carry_over" {
		return nil, fmt.Errorf("quantifier: unsupported retrieval mode %q", mode)
	}
	if currentLoopIndex <= carryIndex {
		return emptyReference(), nil
	}
	entry, ok := q.currentSubworkspace[currentLoopIndex-carryIndex]
	if !ok {
		return emptyReference(), nil
	}
	ref, ok := entry[conceptName]
	if !ok {
		return emptyReference(), nil
	}
	return ref, nil
}
