package recipe

import "sync"

// Store holds every recipe parsed from a cookbook, in source order.
// Candidates returns, for a given target, the ordered list of recipe
// indices whose target pattern matches it, tried first-declared-first
// per spec.md §4.F's tie-break rule ("the first declared wins" for
// explicit recipes, "the first declared that matches wins" for
// implicit patterns), generalizing the teacher's ruleSet.targetrules
// exact-match index to full pattern matching. This is the candidate-
// recipe lookup the graph builder backtracks over (spec.md §4.F step
// 2's cascade of candidates); it is distinct from the ingredient-
// augmenting cascade table spec.md §3/§4.E define, which lives in
// internal/vm.CascadeTable and is consulted separately once a recipe
// has been chosen (spec.md §4.F step 4).
type Store struct {
	mu       sync.RWMutex
	Recipes  []*Recipe
	byTarget map[string][]int // constant (non-wildcard) target text -> recipe indices, fast path
	wild     []int            // indices of recipes with at least one wildcard target, checked in order
}

// NewStore returns an empty, ready-to-populate Store.
func NewStore() *Store {
	return &Store{byTarget: make(map[string][]int)}
}

// Add appends r to the store and indexes its target patterns.
func (s *Store) Add(r *Recipe) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.Recipes)
	s.Recipes = append(s.Recipes, r)
	hasWild := false
	for _, t := range r.Targets {
		if isWildcardPattern(t.Raw(), t.String()) {
			hasWild = true
			continue
		}
		s.byTarget[t.Raw()] = append(s.byTarget[t.Raw()], idx)
	}
	if hasWild {
		s.wild = append(s.wild, idx)
	}
	return idx
}

// isWildcardPattern reports whether a pattern needs full Execute
// matching rather than the constant-target fast path: a cook-dialect
// pattern containing '%', or a regex-dialect pattern (rendered by
// Pattern.String as "/raw/").
func isWildcardPattern(raw, rendered string) bool {
	if len(rendered) >= 2 && rendered[0] == '/' && rendered[len(rendered)-1] == '/' {
		return true
	}
	for _, c := range raw {
		if c == '%' {
			return true
		}
	}
	return false
}

// Candidates returns every recipe index whose target pattern matches
// target, first declared first per spec.md §4.F's tie-break rule,
// constant matches before wildcard matches since they're the cheap,
// unambiguous case.
func (s *Store) Candidates(target string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int
	if direct, ok := s.byTarget[target]; ok {
		out = append(out, direct...)
	}
	for _, idx := range s.wild {
		if _, ok := s.Recipes[idx].MatchesAny(target); ok {
			out = append(out, idx)
		}
	}
	return out
}

// Get returns the recipe at idx.
func (s *Store) Get(idx int) *Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Recipes[idx]
}
