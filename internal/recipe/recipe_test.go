package recipe

import (
	"testing"

	"github.com/mdhender/gocook/internal/cookerr"
	"github.com/mdhender/gocook/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, raw string) *pattern.Pattern {
	t.Helper()
	p, err := pattern.Compile(raw, pattern.Cook, cookerr.Position{})
	require.NoError(t, err)
	return p
}

func TestStoreCandidatesOrderFirstDeclaredFirst(t *testing.T) {
	s := NewStore()
	first := &Recipe{Targets: []*pattern.Pattern{mustCompile(t, "%.o")}}
	second := &Recipe{Targets: []*pattern.Pattern{mustCompile(t, "%.o")}}
	s.Add(first)
	s.Add(second)

	candidates := s.Candidates("main.o")
	require.Len(t, candidates, 2)
	assert.Same(t, first, s.Get(candidates[0]))
	assert.Same(t, second, s.Get(candidates[1]))
}

func TestStoreConstantTargetFastPath(t *testing.T) {
	s := NewStore()
	r := &Recipe{Targets: []*pattern.Pattern{mustCompile(t, "all")}}
	s.Add(r)
	assert.Equal(t, []int{0}, s.Candidates("all"))
	assert.Empty(t, s.Candidates("nope"))
}

func TestResolvedIngredientsSubstitution(t *testing.T) {
	r := &Recipe{
		Targets:     []*pattern.Pattern{mustCompile(t, "%.o")},
		Ingredients: []string{"%.c", "common.h"},
	}
	m, ok := r.MatchesAny("main.o")
	require.True(t, ok)
	assert.Equal(t, []string{"main.c", "common.h"}, r.ResolvedIngredients(m))
}

func TestStripIndentation(t *testing.T) {
	in := "    echo a\n    echo b\n"
	out := StripIndentation(in, 4)
	assert.Equal(t, "echo a\necho b\n", out)
}
