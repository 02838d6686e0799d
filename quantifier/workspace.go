package quantifier

import (
	"sync"

	"github.com/normcode/orchestrator/reference"
)

// Subworkspace maps a loop index to the concept references stored at that
// index — e.g. subworkspace[2]["digit"] is the Reference stored for
// concept "digit" at loop index 2. The Go analogue of the original
// implementation's current_subworkspace dict.
type Subworkspace map[int]map[string]*reference.Reference

// Workspace is the per-run quantification scratch space, keyed by a
// formatted "<loop_index>_<loop_base_concept_name>" string exactly as the
// original implementation keys its workspace dict (see DESIGN.md), but
// holding a typed Subworkspace instead of a loosely typed nested dict.
type Workspace struct {
	mu   sync.Mutex
	subs map[string]Subworkspace
}

// NewWorkspace returns an empty Workspace.
func NewWorkspace() *Workspace {
	return &Workspace{subs: make(map[string]Subworkspace)}
}

// sub returns (creating if absent) the Subworkspace for key. Since Go maps
// are reference types, the returned value is the same instance stored in
// w: writes through it are visible to every Quantifier sharing this
// Workspace and key, mirroring the original's shared-dict-reference
// semantics.
func (w *Workspace) sub(key string) Subworkspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.subs[key]
	if !ok {
		s = make(Subworkspace)
		w.subs[key] = s
	}
	return s
}

// Keys returns every populated workspace key, for introspection.
func (w *Workspace) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]string, 0, len(w.subs))
	for k := range w.subs {
		keys = append(keys, k)
	}
	return keys
}
