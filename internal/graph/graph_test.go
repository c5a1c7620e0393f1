package graph_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdhender/gocook/internal/cookbook"
	"github.com/mdhender/gocook/internal/fingerprint"
	"github.com/mdhender/gocook/internal/graph"
	"github.com/mdhender/gocook/internal/recipe"
	"github.com/mdhender/gocook/internal/vm"
)

// fakeExecutor records every Execute call and "builds" a target by
// creating an empty file for each of its targets, standing in for the
// scheduler (component G) so these tests exercise only the graph
// builder's resolution logic (component F).
type fakeExecutor struct {
	mu    sync.Mutex
	calls int
}

func (e *fakeExecutor) Execute(r *recipe.Recipe, targets []string, ingredients []string, dryRun bool) (bool, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if dryRun {
		return true, nil
	}
	for _, t := range targets {
		if err := os.WriteFile(t, []byte("built\n"), 0o644); err != nil {
			return false, err
		}
	}
	return true, nil
}

func parseCookbook(t *testing.T, src string) *cookbook.Program {
	t.Helper()
	prog, err := cookbook.Parse(strings.NewReader(src), "test.cook")
	require.NoError(t, err)
	return prog
}

// TestGraphSkipsFalsePrecondition exercises spec.md §4.F step 2a: a
// candidate recipe whose precondition evaluates false must be skipped
// in favor of the next declared candidate, rather than chosen and
// failed on its own unresolvable ingredient.
func TestGraphSkipsFalsePrecondition(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	ok := filepath.Join(dir, "ok")
	require.NoError(t, os.WriteFile(ok, []byte("x"), 0o644))

	src := out + " : " + filepath.Join(dir, "missing") + " precondition [defined NOPE] { [execute touch x] }\n" +
		out + " : " + ok + " { [execute touch x] }\n"
	prog := parseCookbook(t, src)

	exec := &fakeExecutor{}
	g := graph.New(prog.Store, fingerprint.NewManager(), exec)

	status, err := g.Build(nil, out, false)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, status)
	assert.Equal(t, 1, exec.calls)
	_, statErr := os.Stat(out)
	assert.NoError(t, statErr)
}

// TestGraphCascadeExpansionAddsIngredient exercises spec.md §4.F step
// 4: a cascade declaration's extra ingredients must be folded into the
// chosen recipe's ingredient list, so a missing cascaded ingredient
// fails the build even though the recipe itself names no such
// ingredient.
func TestGraphCascadeExpansionAddsIngredient(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	extra := filepath.Join(dir, "extra")

	src := "cascade " + out + " : " + extra + " ;\n" +
		out + " : { [execute touch x] }\n"
	prog := parseCookbook(t, src)

	exec := &fakeExecutor{}
	g := graph.New(prog.Store, fingerprint.NewManager(), exec)
	g.Cascades = vm.NewCascadeTable()

	loadCtx := vm.NewContext(g.Host(), nil)
	vm.RegisterBuiltins(loadCtx.Global)
	loadCtx.Cascades = g.Cascades
	require.NoError(t, cookbook.Load(loadCtx, prog))

	status, err := g.Build(nil, out, false)
	require.Error(t, err)
	assert.Equal(t, graph.StatusFailed, status)
	assert.Equal(t, 0, exec.calls)

	require.NoError(t, os.WriteFile(extra, []byte("x"), 0o644))
	g2 := graph.New(prog.Store, fingerprint.NewManager(), exec)
	g2.Cascades = g.Cascades
	status, err = g2.Build(nil, out, false)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, status)
}

// TestGraphAtomicMultipleTargetsShareOneBuild exercises spec.md §9's
// `::` atomic-group requirement: a recipe declaring several targets
// together runs once and every sibling target is resolved from that
// single outcome, rather than re-running per target.
func TestGraphAtomicMultipleTargetsShareOneBuild(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	src := a + " " + b + " :: { [execute touch x] }\n"
	prog := parseCookbook(t, src)

	exec := &fakeExecutor{}
	g := graph.New(prog.Store, fingerprint.NewManager(), exec)

	status, err := g.Build(nil, a, false)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, status)

	status, err = g.Build(nil, b, false)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusDone, status)

	assert.Equal(t, 1, exec.calls, "the :: recipe must run once for both targets, not once per target")
	_, statErr := os.Stat(a)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(b)
	assert.NoError(t, statErr)
}
