// Package state implements ReferenceInterpretationState: the ordered
// record of per-step reference blocks (function/values/context/inference)
// a running sequence accumulates, and the "earliest non-null" accessor
// semantics a later step uses to look back at what an earlier step
// produced. Grounded on state_models/references.py's StepReference
// hierarchy and StepReferenceAccessor, reshaped from Python's
// __getattr__-based dynamic collection into explicit typed accessor
// methods — idiomatic Go has no attribute-magic equivalent, and a fixed,
// small field set does not need one (see DESIGN.md Open Question).
package state

import "github.com/normcode/orchestrator/reference"

// Kind discriminates which step produced a StepDescriptor.
type Kind string

const (
	KindFunction  Kind = "function"
	KindValues    Kind = "values"
	KindContext   Kind = "context"
	KindInference Kind = "inference"
)

// ToolBinding names a tool method an inference step is allowed to call,
// grounded on state_models/tools.py's ToolSpec as referenced from
// InferenceReference.
type ToolBinding struct {
	ToolName string
	Method   string
}

// StepDescriptor is one step's reference block. Not every field applies to
// every Kind; see the Kind* constants and the comments below for which
// fields a given kind populates, mirroring FunctionReference/
// ValuesReference/ContextReference/InferenceReference's field subsets.
type StepDescriptor struct {
	Kind      Kind
	StepName  string
	StepIndex int // 1-based; 0 means unset, matching the Python "ge=1, default None" field

	ConceptName string
	Reference   *reference.Reference

	// ValueOrder is populated by function and values steps (MFP/TVA/MVP/IR).
	ValueOrder []string
	// Model names the bound model spec, populated by function steps (MFP).
	Model string

	// Extraction/Quantification are populated by values, context, and
	// inference steps.
	Extraction     string
	Quantification string

	// CrossValues is populated by values steps (TVA/MVP/IR).
	CrossValues *reference.Reference

	// Tools is populated by inference steps (TIP/MIA).
	Tools []ToolBinding
}

func (d StepDescriptor) hasReference() bool { return d.Reference != nil }
func (d StepDescriptor) hasConcept() bool   { return d.ConceptName != "" }
func (d StepDescriptor) hasValueOrder() bool {
	return d.ValueOrder != nil
}
func (d StepDescriptor) hasExtraction() bool     { return d.Extraction != "" }
func (d StepDescriptor) hasQuantification() bool { return d.Quantification != "" }
func (d StepDescriptor) hasCrossValues() bool    { return d.CrossValues != nil }
func (d StepDescriptor) hasTools() bool          { return len(d.Tools) > 0 }

// ReferenceInterpretationState is the ordered sequence of StepDescriptors
// recorded for one run, in step-execution order.
type ReferenceInterpretationState struct {
	steps []StepDescriptor
}

// New builds an empty ReferenceInterpretationState.
func New() *ReferenceInterpretationState {
	return &ReferenceInterpretationState{}
}

// Record appends d to the state. Steps must be recorded in execution
// order for the earliest-non-null accessors to be meaningful.
func (s *ReferenceInterpretationState) Record(d StepDescriptor) {
	s.steps = append(s.steps, d)
}

// Steps returns every recorded StepDescriptor, oldest first.
func (s *ReferenceInterpretationState) Steps() []StepDescriptor {
	return append([]StepDescriptor(nil), s.steps...)
}

// Of returns an Accessor scoped to the steps whose Kind is in kinds (all
// steps if kinds is empty), corresponding to Python call sites that build
// a StepReferenceAccessor from a filtered subset, e.g.
// `StepReferenceAccessor(s for s in steps if isinstance(s, ValuesReference))`.
func (s *ReferenceInterpretationState) Of(kinds ...Kind) Accessor {
	if len(kinds) == 0 {
		return Accessor{steps: s.Steps()}
	}
	allow := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		allow[k] = true
	}
	var filtered []StepDescriptor
	for _, step := range s.steps {
		if allow[step.Kind] {
			filtered = append(filtered, step)
		}
	}
	return Accessor{steps: filtered}
}

// Accessor provides "earliest non-null" lookups across a slice of
// StepDescriptors, the Go analogue of StepReferenceAccessor's
// _collect_at_earliest.
type Accessor struct {
	steps []StepDescriptor
}

// earliestIndexWith returns the StepIndex of the earliest eligible step for
// which has reports true, and whether any step was eligible.
func earliestIndexWith(steps []StepDescriptor, has func(StepDescriptor) bool) (int, bool) {
	found := false
	earliest := 0
	for _, step := range steps {
		if step.StepIndex <= 0 || !has(step) {
			continue
		}
		if !found || step.StepIndex < earliest {
			earliest = step.StepIndex
			found = true
		}
	}
	return earliest, found
}

func collectAtEarliest[T any](steps []StepDescriptor, has func(StepDescriptor) bool, get func(StepDescriptor) T) []T {
	earliest, found := earliestIndexWith(steps, has)
	if !found {
		return nil
	}
	var out []T
	for _, step := range steps {
		if step.StepIndex == earliest && has(step) {
			out = append(out, get(step))
		}
	}
	return out
}

// Reference returns the Reference values from the earliest step(s) that
// have one.
func (a Accessor) Reference() []*reference.Reference {
	return collectAtEarliest(a.steps, StepDescriptor.hasReference, func(d StepDescriptor) *reference.Reference { return d.Reference })
}

// Concept returns the concept names from the earliest step(s) that have
// one.
func (a Accessor) Concept() []string {
	return collectAtEarliest(a.steps, StepDescriptor.hasConcept, func(d StepDescriptor) string { return d.ConceptName })
}

// ValueOrder returns the value orders from the earliest step(s) that have
// one.
func (a Accessor) ValueOrder() [][]string {
	return collectAtEarliest(a.steps, StepDescriptor.hasValueOrder, func(d StepDescriptor) []string { return d.ValueOrder })
}

// Extraction returns the extraction expressions from the earliest step(s)
// that have one.
func (a Accessor) Extraction() []string {
	return collectAtEarliest(a.steps, StepDescriptor.hasExtraction, func(d StepDescriptor) string { return d.Extraction })
}

// Quantification returns the quantification expressions from the earliest
// step(s) that have one.
func (a Accessor) Quantification() []string {
	return collectAtEarliest(a.steps, StepDescriptor.hasQuantification, func(d StepDescriptor) string { return d.Quantification })
}

// CrossValues returns the cross-values references from the earliest
// step(s) that have one.
func (a Accessor) CrossValues() []*reference.Reference {
	return collectAtEarliest(a.steps, StepDescriptor.hasCrossValues, func(d StepDescriptor) *reference.Reference { return d.CrossValues })
}

// Tools returns the tool bindings from the earliest step(s) that have any.
func (a Accessor) Tools() [][]ToolBinding {
	return collectAtEarliest(a.steps, StepDescriptor.hasTools, func(d StepDescriptor) []ToolBinding { return d.Tools })
}

// Len reports how many steps this Accessor was built over.
func (a Accessor) Len() int { return len(a.steps) }
