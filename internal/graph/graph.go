// Package graph implements component F: the dependency-graph builder.
// It resolves a target to a cascade of candidate recipes, recursively
// resolves each candidate's ingredients, detects cycles, memoises
// already-resolved nodes, and reports build statistics.
//
// Grounded on the teacher's graph.go (Graph/Rule/Target, BuildRule's
// history-slice cycle check, isOutdated) and mk.go (node/edge,
// nodeStatus, the per-node mutex + listener-channel completion
// protocol mkNode uses to let concurrent builders await the same
// node), generalized from mkfile's flat rule list to cookbook's
// recipe.Store cascade lookup per spec.md §3's Graph subsection.
package graph

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mdhender/gocook/internal/cookerr"
	"github.com/mdhender/gocook/internal/fingerprint"
	"github.com/mdhender/gocook/internal/pattern"
	"github.com/mdhender/gocook/internal/recipe"
	"github.com/mdhender/gocook/internal/vm"
)

// Status is a node's resolution state, mirroring the teacher's
// nodeStatus enum.
type Status int

const (
	StatusReady Status = iota
	StatusStarted
	StatusDone
	StatusFailed
	StatusNop // resolved to "nothing to do" (a leaf file, or already up to date)
)

// Node is one resolved target in the graph: its chosen recipe (nil
// for leaf files with no matching recipe), the match that selected it,
// its resolved ingredients (each itself a Node), and the concurrency
// bookkeeping mk.go's mkNode uses to let multiple builders await the
// same in-flight node without duplicating work.
type Node struct {
	Name    string
	Recipe  *recipe.Recipe
	Exists  bool
	ModTime time.Time

	Prereqs []*Node

	mu        sync.Mutex
	status    Status
	listeners []chan Status
}

// Stats accumulates build counters across one graph walk, per
// spec.md §3's Graph "statistics" requirement.
type Stats struct {
	mu        sync.Mutex
	Built     int
	UpToDate  int
	Failed    int
	LeafFiles int
}

func (s *Stats) incBuilt()    { s.mu.Lock(); s.Built++; s.mu.Unlock() }
func (s *Stats) incUpToDate() { s.mu.Lock(); s.UpToDate++; s.mu.Unlock() }
func (s *Stats) incFailed()   { s.mu.Lock(); s.Failed++; s.mu.Unlock() }
func (s *Stats) incLeaf()     { s.mu.Lock(); s.LeafFiles++; s.mu.Unlock() }

// Snapshot returns a copy safe to read without racing a concurrent
// walk.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Built: s.Built, UpToDate: s.UpToDate, Failed: s.Failed, LeafFiles: s.LeafFiles}
}

// Executor is the single recipe-running hook the graph needs from the
// scheduler (component G), kept as an interface to avoid an import
// cycle (the scheduler imports graph, not the reverse). targets holds
// every name the recipe builds together: one entry for an ordinary
// recipe, every sibling in source order for a `::` atomic recipe.
type Executor interface {
	// Execute runs r's body against the given targets/ingredients and
	// reports success. dryRun suppresses actually running it.
	Execute(r *recipe.Recipe, targets []string, ingredients []string, dryRun bool) (bool, error)
}

// Graph resolves and (optionally) builds targets against a recipe
// store, caching resolved nodes by name and detecting cycles via the
// in-flight resolution path, the Go equivalent of graph.go's
// history-slice argument threaded through BuildRule.
type Graph struct {
	Store    *recipe.Store
	FP       *fingerprint.Manager
	Exec     Executor
	Stats    Stats
	ForceAll bool
	Force    map[string]bool // targets forced to rebuild regardless of fingerprint

	// Cascades is the cascade table spec.md §4.E/§4.F describe: extra
	// ingredients contributed to any target matching a registered
	// pattern, consulted during resolve's ingredient augmentation step
	// (spec.md §4.F step 4). Populated by running a cookbook's
	// top-level `cascade` declarations through internal/vm before the
	// first Build call; nil is treated as an empty table.
	Cascades *vm.CascadeTable

	mu    sync.Mutex
	nodes map[string]*Node
}

// New returns a Graph ready to resolve targets from store.
func New(store *recipe.Store, fp *fingerprint.Manager, exec Executor) *Graph {
	return &Graph{Store: store, FP: fp, Exec: exec, Force: make(map[string]bool), nodes: make(map[string]*Node)}
}

// Host returns a vm.Host that re-enters this graph for the cando/
// uptodate/cook builtins (spec.md §4.D), so any vm.Context evaluating
// cookbook code — a recipe's precondition, or a recipe body dispatched
// through the scheduler — can query and drive the same graph state.
// RunCommand is not implemented here: running shell commands is the
// scheduler's job, not the graph's.
func (g *Graph) Host() vm.Host { return &graphHost{g: g} }

type graphHost struct{ g *Graph }

func (h *graphHost) RunCommand(dir, line string) (string, bool, error) {
	return "", false, fmt.Errorf("cannot run shell commands from a graph-level host")
}

func (h *graphHost) CanDo(target string) bool    { return h.g.CanDo(target) }
func (h *graphHost) UpToDate(target string) bool { return h.g.IsUpToDate(target) }
func (h *graphHost) Cook(target string) bool {
	status, err := h.g.Build(nil, target, false)
	return err == nil && status != StatusFailed
}

// CanDo reports whether target has an applicable, precondition-
// satisfying recipe, or already exists as a leaf file, the "cando"
// builtin's re-entry into the graph (spec.md §4.D).
func (g *Graph) CanDo(target string) bool {
	for _, idx := range g.Store.Candidates(target) {
		r := g.Store.Get(idx)
		if _, ok := r.MatchesAny(target); !ok {
			continue
		}
		if ok, err := g.evalPrecondition(r); err != nil || !ok {
			continue
		}
		return true
	}
	_, err := os.Stat(target)
	return err == nil
}

// IsUpToDate reports whether target's applicable recipe (if any)
// would consider it already built, without running anything, the
// "uptodate" builtin's re-entry into the graph.
func (g *Graph) IsUpToDate(target string) bool {
	for _, idx := range g.Store.Candidates(target) {
		r := g.Store.Get(idx)
		m, ok := r.MatchesAny(target)
		if !ok {
			continue
		}
		if ok, err := g.evalPrecondition(r); err == nil && !ok {
			continue
		}
		ingredients := r.ResolvedIngredients(m)
		ingredients = append(ingredients, g.cascadeExtras(target)...)
		node, _ := g.nodeFor(target)
		return !r.Attrs.Virtual && !g.needsRebuild(node, r, ingredients)
	}
	_, err := os.Stat(target)
	return err == nil
}

// evalPrecondition runs r's compiled precondition expression (if any)
// and reports its truth, spec.md §4.F step 2a: "Evaluate its
// precondition...If false, skip".
func (g *Graph) evalPrecondition(r *recipe.Recipe) (bool, error) {
	if r.Precondition == nil {
		return true, nil
	}
	ctx := vm.NewContext(g.Host(), nil)
	vm.RegisterBuiltins(ctx.Global)
	if g.Cascades != nil {
		ctx.Cascades = g.Cascades
	}
	status := ctx.Run(r.Precondition, vm.Position{File: r.Pos.File, Line: r.Pos.Line})
	if status != vm.Success {
		if ctx.LastDiagnostic != nil {
			return false, ctx.LastDiagnostic
		}
		return false, fmt.Errorf("precondition at %s ended with status %s", r.Pos, status)
	}
	if len(ctx.Values) == 0 {
		return false, fmt.Errorf("precondition at %s produced no value", r.Pos)
	}
	return ctx.Values[len(ctx.Values)-1].Truth(), nil
}

// cascadeExtras returns the cascade table's extra ingredients for
// target, or nil if no table is attached.
func (g *Graph) cascadeExtras(target string) []string {
	if g.Cascades == nil {
		return nil
	}
	return g.Cascades.Find(target)
}

func (g *Graph) nodeFor(name string) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[name]
	if !ok {
		n = &Node{Name: name}
		g.nodes[name] = n
	}
	return n, ok
}

// Build resolves and runs target (and transitively its ingredients),
// returning once it and everything it depends on is either up to
// date, built, or has failed. history carries the in-flight
// resolution path for cycle detection, per graph.go's BuildRule.
func (g *Graph) Build(history []string, target string, dryRun bool) (Status, error) {
	for _, h := range history {
		if h == target {
			chain := append(append([]string{}, history...), target)
			return StatusFailed, fmt.Errorf("circular dependency: %s", strings.Join(chain, " -> "))
		}
	}
	history = append(history, target)

	node, existed := g.nodeFor(target)
	node.mu.Lock()
	if existed && node.status != StatusReady {
		for node.status == StatusStarted {
			wait := make(chan Status, 1)
			node.listeners = append(node.listeners, wait)
			node.mu.Unlock()
			s := <-wait
			node.mu.Lock()
			if s != StatusStarted {
				node.mu.Unlock()
				return s, nil
			}
		}
		status := node.status
		node.mu.Unlock()
		return status, nil
	}
	node.status = StatusStarted
	node.mu.Unlock()

	status, err := g.resolve(history, node, dryRun)

	node.mu.Lock()
	node.status = status
	listeners := node.listeners
	node.listeners = nil
	node.mu.Unlock()
	for _, l := range listeners {
		l <- status
	}
	return status, err
}

func (g *Graph) resolve(history []string, node *Node, dryRun bool) (Status, error) {
	candidates := g.Store.Candidates(node.Name)
	var lastErr error
	for _, idx := range candidates {
		r := g.Store.Get(idx)
		m, ok := r.MatchesAny(node.Name)
		if !ok {
			continue
		}
		// spec.md §4.F step 2a: evaluate the recipe's precondition and
		// skip this candidate (falling through to the next one in the
		// cascade of candidates) if it reports false.
		if ok, err := g.evalPrecondition(r); err != nil {
			lastErr = err
			continue
		} else if !ok {
			continue
		}
		ingredients := r.ResolvedIngredients(m)
		// spec.md §4.F step 4: cascade expansion augments the
		// ingredient set with any extras registered against this
		// target.
		ingredients = append(ingredients, g.cascadeExtras(node.Name)...)
		if status, err := g.tryRecipe(history, node, r, m, ingredients, dryRun); err == nil {
			return status, nil
		} else {
			lastErr = err
			// backtrack: this recipe's ingredients couldn't be
			// resolved (or it's not cando), try the next cascade
			// candidate per spec.md §3's backtracking requirement.
		}
	}
	if len(candidates) > 0 {
		if lastErr != nil {
			return StatusFailed, lastErr
		}
	}

	info, err := os.Stat(node.Name)
	if err != nil {
		return StatusFailed, cookerr.New(cookerr.KindGraph, cookerr.Position{}, "don't know how to make $name", "name", node.Name)
	}
	node.Exists = true
	node.ModTime = info.ModTime()
	g.Stats.incLeaf()
	return StatusNop, nil
}

// tryRecipe builds node using recipe r, matched via m. A `::` atomic
// recipe (r.Multiple with more than one declared target) is treated as
// spec.md §9 requires: every sibling target is resolved, the rebuild
// decision is made once across the whole group, and a single Execute
// call builds them all together, so that a failure (or the need to
// rebuild any one sibling) takes down the whole group rather than
// leaving some siblings falsely marked up to date.
func (g *Graph) tryRecipe(history []string, node *Node, r *recipe.Recipe, m *pattern.Match, ingredients []string, dryRun bool) (Status, error) {
	siblings := []*Node{node}
	targets := []string{node.Name}
	if r.Multiple && len(r.Targets) > 1 {
		for _, t := range r.Targets {
			name := m.ReconstructLHS(t.Raw())
			if name == node.Name {
				continue
			}
			sib, _ := g.nodeFor(name)
			sib.mu.Lock()
			sib.status = StatusStarted
			sib.mu.Unlock()
			siblings = append(siblings, sib)
			targets = append(targets, name)
		}
	}

	node.Prereqs = node.Prereqs[:0]
	failed := false
	for _, ing := range ingredients {
		child, _ := g.nodeFor(ing)
		node.Prereqs = append(node.Prereqs, child)
		status, err := g.Build(history, ing, dryRun)
		if err != nil || status == StatusFailed {
			failed = true
		}
	}
	if failed {
		g.Stats.incFailed()
		return g.finishSiblings(siblings, StatusFailed), fmt.Errorf("ingredient of %s failed", node.Name)
	}

	upToDate := true
	for _, sib := range siblings {
		if r.Attrs.Virtual || g.needsRebuild(sib, r, ingredients) {
			upToDate = false
			break
		}
	}
	if upToDate {
		g.Stats.incUpToDate()
		return g.finishSiblings(siblings, StatusNop), nil
	}

	ok, err := g.Exec.Execute(r, targets, ingredients, dryRun)
	if err != nil {
		g.Stats.incFailed()
		return g.finishSiblings(siblings, StatusFailed), err
	}
	if !ok {
		g.Stats.incFailed()
		return g.finishSiblings(siblings, StatusFailed), fmt.Errorf("recipe for %s failed", node.Name)
	}
	for _, sib := range siblings {
		if info, statErr := os.Stat(sib.Name); statErr == nil {
			sib.Exists = true
			sib.ModTime = info.ModTime()
		}
	}
	g.Stats.incBuilt()
	return g.finishSiblings(siblings, StatusDone), nil
}

// finishSiblings marks every sibling node (other than the primary,
// whose status Build itself sets) as resolved and wakes anyone
// awaiting it, then returns status for the primary node's caller.
func (g *Graph) finishSiblings(siblings []*Node, status Status) Status {
	for _, sib := range siblings[1:] {
		sib.mu.Lock()
		sib.status = status
		listeners := sib.listeners
		sib.listeners = nil
		sib.mu.Unlock()
		for _, l := range listeners {
			l <- status
		}
	}
	return status
}

// needsRebuild decides target-out-of-date per spec.md §3: the
// -force flag always wins regardless of fingerprint-off (Open
// Question resolved in DESIGN.md by following the original's
// explicit force-overrides-everything precedence); otherwise a
// missing target or any ingredient newer than the target forces a
// rebuild, and a recipe that is not fingerprint-off additionally
// compares the ingredients fingerprint against the cache.
func (g *Graph) needsRebuild(node *Node, r *recipe.Recipe, ingredients []string) bool {
	if g.ForceAll || g.Force[node.Name] {
		return true
	}
	info, err := os.Stat(node.Name)
	if err != nil {
		return true
	}
	targetTime := info.ModTime()
	for _, ing := range ingredients {
		if ingInfo, err := os.Stat(ing); err == nil && ingInfo.ModTime().After(targetTime) {
			return true
		}
	}
	if r.Attrs.FingerprintOff || g.FP == nil {
		return false
	}
	var b strings.Builder
	for _, ing := range ingredients {
		fp, _ := g.FP.FileFingerprint(ing)
		b.WriteString(fp)
		b.WriteByte('\n')
	}
	return g.FP.IngredientsFingerprintDiffers(node.Name, g.FP.StringFingerprint([]byte(b.String())))
}

// SortedTargetNames returns every resolved node's name in sorted
// order, used for deterministic summary reporting.
func (g *Graph) SortedTargetNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
