package vm

import (
	"sync"

	"github.com/mdhender/gocook/internal/cookerr"
	"github.com/mdhender/gocook/internal/pattern"
)

// CascadeEntry is one "whenever a file matches X, also need Y"
// registration, spec.md §3's Cascade data model: (ingredient_patterns,
// extra_ingredient_patterns, position).
type CascadeEntry struct {
	Targets []*pattern.Pattern
	Extras  []string
	Pos     Position
}

// CascadeTable is the per-run cascade registry spec.md §4.E names:
// cascade_recipe (Add), cascade_find (Find), cascade_reset (Reset).
// It is reset once per build invocation since cascades are per-run,
// not persistent, per spec.md §3.
type CascadeTable struct {
	mu      sync.Mutex
	Entries []CascadeEntry
}

// NewCascadeTable returns an empty table.
func NewCascadeTable() *CascadeTable { return &CascadeTable{} }

// Reset clears every registered entry, called at the start of each
// build invocation.
func (t *CascadeTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries = nil
}

// Add registers that any file matching one of targets also needs
// every word in extras, the cascade opcode's runtime effect.
func (t *CascadeTable) Add(targets, extras []string, pos Position) error {
	cpos := cookerr.Position{File: pos.File, Line: pos.Line}
	entry := CascadeEntry{Extras: append([]string{}, extras...), Pos: pos}
	for _, w := range targets {
		pat, err := pattern.Compile(w, pattern.Cook, cpos)
		if err != nil {
			return err
		}
		entry.Targets = append(entry.Targets, pat)
	}
	t.mu.Lock()
	t.Entries = append(t.Entries, entry)
	t.mu.Unlock()
	return nil
}

// Find returns the flattened extra ingredients every cascade entry
// whose target pattern matches name contributes, in registration
// order, spec.md §4.F step 4's "cascade expansion".
func (t *CascadeTable) Find(name string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, e := range t.Entries {
		for _, pat := range e.Targets {
			if _, ok := pat.Execute(name); ok {
				out = append(out, e.Extras...)
				break
			}
		}
	}
	return out
}
