// Package recipe implements component E: the recipe store a parsed
// cookbook compiles into, and the cascade lookup the graph builder
// uses to pick which recipe (if any) applies to a given target.
//
// Grounded on the teacher's rules.go (attribSet, pattern, rule,
// ruleSet) and recipe.go (stripIndentation, printIndented, dorecipe),
// generalized from mkfile's single-shell-line recipes to cookbook's
// compiled opcode bodies per spec.md §3's Recipe subsection, and
// supplemented with the original's single-thread/host-binding
// attributes from original_source/src/cook/stmt/target.c &
// fingerprint.c precedence notes (Design Notes §9).
package recipe

import (
	"strings"

	"github.com/mdhender/gocook/internal/cookerr"
	"github.com/mdhender/gocook/internal/pattern"
	"github.com/mdhender/gocook/internal/vm"
)

// Attributes generalizes the teacher's attribSet to the cookbook
// attribute vocabulary spec.md §3 names.
type Attributes struct {
	Precious       bool // never delete this target on failure
	Virtual        bool // rule does not correspond to a file (a phony target)
	SingleThread   string // named mutex key: at most one recipe bearing the same key runs concurrently
	HostBinding    string // host key this recipe must run on, via internal/hostexec
	FingerprintOff bool // skip the fingerprint comparison, use mtime only
	Quiet          bool // don't print the recipe before running it
	UpdateAlways   bool // force this target's timestamp even if the recipe left it unchanged
}

// Recipe is one compiled cookbook recipe: one or more target
// patterns, an ingredient list (which may itself contain %/\N
// templates substituted from the matched target), a compiled body,
// and the attributes controlling how the scheduler runs it.
type Recipe struct {
	Pos          cookerr.Position
	Targets      []*pattern.Pattern
	Ingredients  []string // ingredient templates, pre-substitution
	Precondition *vm.OpList
	Body         *vm.OpList
	Attrs        Attributes
	ShellLine    []string // explicit recipe shell override, empty uses the default

	// Multiple marks a `::` recipe: its Targets are built together by
	// one recipe body, and per spec.md §9 a failure (or the need to
	// rebuild any one of them) is treated as out of date for the whole
	// group rather than per-target partial success.
	Multiple bool
}

// MatchesAny reports whether target matches one of this recipe's
// target patterns, returning the match for reconstruction.
func (r *Recipe) MatchesAny(target string) (*pattern.Match, bool) {
	for _, t := range r.Targets {
		if m, ok := t.Execute(target); ok {
			return m, true
		}
	}
	return nil, false
}

// ResolvedIngredients substitutes m into every ingredient template via
// ReconstructRHS, the "ingredients list may itself use % or \N"
// behavior from spec.md §3.
func (r *Recipe) ResolvedIngredients(m *pattern.Match) []string {
	out := make([]string, len(r.Ingredients))
	for i, tmpl := range r.Ingredients {
		out[i] = m.ReconstructRHS(tmpl)
	}
	return out
}

// StripIndentation un-indents a recipe body text so that it begins at
// column 0, the same accommodation the teacher makes in recipe.go for
// indentation-significant recipe languages (Python and friends).
func StripIndentation(s string, mincol int) string {
	var out strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		col := 0
		for _, c := range line {
			if col >= mincol || !isSpace(c) {
				break
			}
			col++
		}
		out.WriteString(line[col:])
	}
	return out.String()
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }
