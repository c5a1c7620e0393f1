package scheduler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdhender/gocook/internal/cookbook"
	"github.com/mdhender/gocook/internal/recipe"
)

// stubQuery is a minimal vm.Host standing in for a graph.Graph.Host(),
// so these tests can check that dispatchHost actually re-enters it
// instead of hardcoding a result.
type stubQuery struct{ canDo map[string]bool }

func (q stubQuery) RunCommand(dir, line string) (string, bool, error) { return "", true, nil }
func (q stubQuery) CanDo(target string) bool                         { return q.canDo[target] }
func (q stubQuery) UpToDate(target string) bool                      { return false }
func (q stubQuery) Cook(target string) bool                          { return false }

func parseRecipe(t *testing.T, src string) *recipe.Recipe {
	t.Helper()
	prog, err := cookbook.Parse(strings.NewReader(src), "test.cook")
	require.NoError(t, err)
	require.Len(t, prog.Store.Recipes, 1)
	return prog.Store.Recipes[0]
}

// TestDispatchHostDelegatesToQuery confirms the cando/uptodate/cook
// builtins a recipe body calls actually re-enter the attached Query
// host rather than the scheduler's own hardcoded false.
func TestDispatchHostDelegatesToQuery(t *testing.T) {
	host := &dispatchHost{query: stubQuery{canDo: map[string]bool{"dep": true}}}
	assert.True(t, host.CanDo("dep"))
	assert.False(t, host.CanDo("other"))
	assert.False(t, host.UpToDate("dep"))
	assert.False(t, host.Cook("dep"))
}

// TestDispatchHostWithNoQueryReportsFalse confirms the documented
// fallback when no graph is attached (e.g. a standalone VM test),
// rather than panicking.
func TestDispatchHostWithNoQueryReportsFalse(t *testing.T) {
	host := &dispatchHost{}
	assert.False(t, host.CanDo("dep"))
	assert.False(t, host.UpToDate("dep"))
	assert.False(t, host.Cook("dep"))
}

// TestExecuteRunsRecipeBodyThroughCanDoQuery is an end-to-end check
// that Scheduler.Execute wires a recipe's [cando] builtin call all the
// way to Scheduler.Query: the recipe only touches its marker file when
// cando reports true for "dep".
func TestExecuteRunsRecipeBodyThroughCanDoQuery(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	src := "out : { if [cando dep] then [execute touch " + marker + "] endif }\n"
	r := parseRecipe(t, src)

	s := New(1, []string{"sh", "-c"})
	s.Query = stubQuery{canDo: map[string]bool{"dep": true}}

	ok, err := s.Execute(r, []string{"out"}, nil, false)
	require.NoError(t, err)
	assert.True(t, ok)
	_, statErr := os.Stat(marker)
	assert.NoError(t, statErr)
}

// TestExecuteSkipsMarkerWhenCanDoFalse is the negative counterpart:
// with no Query attached, cando must report false and the recipe
// leaves its marker file untouched.
func TestExecuteSkipsMarkerWhenCanDoFalse(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	src := "out : { if [cando dep] then [execute touch " + marker + "] endif }\n"
	r := parseRecipe(t, src)

	s := New(1, []string{"sh", "-c"})

	ok, err := s.Execute(r, []string{"out"}, nil, false)
	require.NoError(t, err)
	assert.True(t, ok)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr))
}
