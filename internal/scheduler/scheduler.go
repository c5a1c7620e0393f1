// Package scheduler implements component G: the parallel recipe
// executor. It generalizes the teacher's mk.go subprocess-slot
// reservation (reserveSubproc/finishSubproc) and exclusive-subprocess
// locking (reserveExclusiveSubproc/finishExclusiveSubproc) from a
// single global parallelism limit to per-recipe single-thread keys
// and host-binding keys, per spec.md §3's Scheduler subsection and
// Design Notes §9's instruction to generalize rather than reuse
// verbatim.
package scheduler

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mdhender/gocook/internal/hostexec"
	"github.com/mdhender/gocook/internal/recipe"
	"github.com/mdhender/gocook/internal/vm"
)

// Scheduler bounds overall parallelism (the -j/--jobs limit) and
// serializes recipes that share a SingleThread key, dispatching
// HostBinding-tagged recipes through a hostexec.Dispatcher instead of
// a local subprocess.
type Scheduler struct {
	cond      *sync.Cond
	allowed   int
	running   int

	keysMu sync.Mutex
	keys   map[string]*sync.Mutex // SingleThread key -> its exclusive lock

	Dispatch map[string]hostexec.Dispatcher // HostBinding key -> dispatcher, "" is the local default
	Shell    []string                       // default shell + args, e.g. {"sh", "-c"}

	// Query re-enters the dependency graph for the cando/uptodate/cook
	// builtins a recipe body can call (spec.md §4.D). Set by the caller
	// once the graph.Graph wrapping this Scheduler's recipe store
	// exists (graph.Graph.Host() satisfies this); nil makes those
	// builtins report false/not-up-to-date/failed, as the teacher's
	// mkfile has no equivalent re-entry concept.
	Query vm.Host

	OutMu sync.Mutex // serializes recipe-echo + output interleaving across goroutines
}

// New returns a Scheduler allowing at most `allowed` concurrent
// recipes (mk.go's subprocsAllowed), with a local dispatcher installed
// under the "" host-binding key.
func New(allowed int, shell []string) *Scheduler {
	if allowed < 1 {
		allowed = 1
	}
	return &Scheduler{
		cond:     sync.NewCond(&sync.Mutex{}),
		allowed:  allowed,
		keys:     make(map[string]*sync.Mutex),
		Dispatch: map[string]hostexec.Dispatcher{"": hostexec.Local{}},
		Shell:    shell,
	}
}

func (s *Scheduler) reserve() {
	s.cond.L.Lock()
	for s.running >= s.allowed {
		s.cond.Wait()
	}
	s.running++
	s.cond.L.Unlock()
}

func (s *Scheduler) release() {
	s.cond.L.Lock()
	s.running--
	s.cond.Signal()
	s.cond.L.Unlock()
}

// reserveExclusive drains every other slot the way mk.go's
// reserveExclusiveSubproc does, so an exclusive recipe runs alone.
func (s *Scheduler) reserveExclusive() {
	s.cond.L.Lock()
	for s.running > 0 {
		s.cond.Wait()
	}
	s.running = s.allowed
	s.cond.L.Unlock()
}

func (s *Scheduler) releaseExclusive() {
	s.cond.L.Lock()
	s.running = 0
	s.cond.Broadcast()
	s.cond.L.Unlock()
}

func (s *Scheduler) lockFor(key string) func() {
	if key == "" {
		return func() {}
	}
	s.keysMu.Lock()
	m, ok := s.keys[key]
	if !ok {
		m = &sync.Mutex{}
		s.keys[key] = m
	}
	s.keysMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Execute implements graph.Executor: it runs r's compiled body through
// a fresh vm.Context bound to a Host appropriate for r's HostBinding
// key, honoring SingleThread/HostBinding/exclusive-parallelism
// attributes. The body's OpCommand opcodes are what actually invoke
// Host.RunCommand; Execute's own job is reservation, $target/$prereq
// binding, and echoing the recipe the way mk.go's mkPrintRecipe does.
func (s *Scheduler) Execute(r *recipe.Recipe, targets []string, ingredients []string, dryRun bool) (bool, error) {
	unlock := s.lockFor(r.Attrs.SingleThread)
	defer unlock()

	if r.Attrs.HostBinding != "" {
		s.reserveExclusive()
		defer s.releaseExclusive()
	} else {
		s.reserve()
		defer s.release()
	}

	name := strings.Join(targets, " ")
	s.echo(name, ingredients, r.Attrs.Quiet)
	if dryRun {
		return true, nil
	}
	if r.Body == nil {
		return true, nil
	}

	dispatcher, ok := s.Dispatch[r.Attrs.HostBinding]
	if !ok {
		return false, fmt.Errorf("no dispatcher registered for host-binding key %q", r.Attrs.HostBinding)
	}
	host := &dispatchHost{dispatcher: dispatcher, hostKey: r.Attrs.HostBinding, query: s.Query}
	ctx := vm.NewContext(host, nil)
	vm.RegisterBuiltins(ctx.Global)
	ctx.Global.Set("target", vm.NewVariable(targets))
	ctx.Global.Set("prereq", vm.NewVariable(ingredients))

	status := ctx.Run(r.Body, vm.Position{File: r.Pos.File, Line: r.Pos.Line})
	if status != vm.Success {
		if ctx.LastDiagnostic != nil {
			return false, ctx.LastDiagnostic
		}
		return false, fmt.Errorf("recipe for %s ended with status %s", name, status)
	}
	return true, nil
}

// dispatchHost adapts a hostexec.Dispatcher into a vm.Host, so a
// recipe's compiled OpCommand instructions run wherever its
// HostBinding attribute says they should, local subprocess or a
// remote SSM-bound instance. cando/uptodate/cook delegate to query,
// the graph-level vm.Host (graph.Graph.Host()) that re-enters the
// dependency graph per spec.md §4.D; without one attached (query nil)
// they report false, same as mkfile's recipes having no such builtins
// at all.
type dispatchHost struct {
	dispatcher hostexec.Dispatcher
	hostKey    string
	query      vm.Host
}

func (h *dispatchHost) RunCommand(dir, line string) (string, bool, error) {
	return h.dispatcher.Run(h.hostKey, line)
}

func (h *dispatchHost) CanDo(target string) bool {
	if h.query == nil {
		return false
	}
	return h.query.CanDo(target)
}

func (h *dispatchHost) UpToDate(target string) bool {
	if h.query == nil {
		return false
	}
	return h.query.UpToDate(target)
}

func (h *dispatchHost) Cook(target string) bool {
	if h.query == nil {
		return false
	}
	return h.query.Cook(target)
}

func (s *Scheduler) echo(target string, ingredients []string, quiet bool) {
	s.OutMu.Lock()
	defer s.OutMu.Unlock()
	if quiet {
		fmt.Printf("%s: ...\n", target)
		return
	}
	fmt.Printf("%s: %s\n", target, strings.Join(ingredients, " "))
}
