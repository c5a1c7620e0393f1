package vm

import (
	"fmt"

	"github.com/mdhender/gocook/internal/cookerr"
	"github.com/mdhender/gocook/internal/pattern"
	"github.com/mdhender/gocook/internal/strtab"
)

// Host is the set of operations the interpreter needs from outside
// its own package: running a shell command, and re-entering the
// dependency graph for the cando/uptodate/cook builtins. Declaring it
// here (rather than importing internal/graph or internal/scheduler
// directly) avoids an import cycle, since those packages in turn
// compile cookbook expressions through this one.
type Host interface {
	// RunCommand executes line as a shell command in dir, returning
	// its combined output and whether it exited zero.
	RunCommand(dir, line string) (output string, ok bool, err error)
	// CanDo reports whether target's recipe could run right now
	// given the current graph state (the "cando" builtin).
	CanDo(target string) bool
	// UpToDate reports whether target is already up to date (the
	// "uptodate" builtin).
	UpToDate(target string) bool
	// Cook re-enters the graph engine to build target synchronously
	// (the "cook" builtin), returning whether it succeeded.
	Cook(target string) bool
}

// Frame is one call's local scope plus return bookkeeping, pushed on
// Context.Frames for each user-function invocation. This mirrors
// opcode_frame_ty's (olp, pc, stp) shape from
// original_source/src/cook/opcode/context.h, substituting a *Scope
// for the C symtab pointer.
type Frame struct {
	Ops    *OpList
	PC     int
	Locals *Scope
	Name   string // function name, for stack traces
}

// Context is the full execution state for one interpreted program: a
// call stack of Frames, a value stack of pending operands, the global
// scope, the active match stack (for %/\N backreferences in patterns
// evaluated mid-expression), and a thread-id slot reserved for the
// cookbook's parallel "thread-id" builtin.
type Context struct {
	Global   *Scope
	Frames   []*Frame
	Values   []strtab.List
	Matches  *pattern.Stack
	Strings  *strtab.Table
	Host     Host
	Cascades *CascadeTable
	ThreadID int

	// LastDiagnostic is the most recent error produced by executeOne,
	// retained so the caller (cookbook driver or scheduler) can report
	// it after Run/call returns a non-Success status.
	LastDiagnostic *cookerr.Diagnostic

	interrupted bool
}

// NewContext returns a ready Context with an empty global scope.
func NewContext(host Host, strings *strtab.Table) *Context {
	return &Context{
		Global:   NewScope(),
		Matches:  &pattern.Stack{},
		Strings:  strings,
		Host:     host,
		Cascades: NewCascadeTable(),
	}
}

// Interrupt requests the running program stop at the next opcode
// boundary, honoring SIGINT/SIGTERM per spec.md §7's "desist" flag.
func (ctx *Context) Interrupt() { ctx.interrupted = true }

func (ctx *Context) push(v strtab.List) { ctx.Values = append(ctx.Values, v) }

func (ctx *Context) pop() strtab.List {
	n := len(ctx.Values)
	v := ctx.Values[n-1]
	ctx.Values = ctx.Values[:n-1]
	return v
}

func (ctx *Context) popN(n int) []strtab.List {
	out := make([]strtab.List, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = ctx.pop()
	}
	return out
}

func (ctx *Context) frame() *Frame { return ctx.Frames[len(ctx.Frames)-1] }

// lookup resolves name following the scope order spec.md §3's
// Identifier subsection requires: innermost call-frame locals first,
// then the global scope, then builtins (which are themselves just
// global-scope bindings installed at startup, so in practice this is
// locals -> global). On failure, it returns a fuzzy-match suggestion.
func (ctx *Context) lookup(name string) (*Identifier, string) {
	if len(ctx.Frames) > 0 {
		if id, ok := ctx.frame().Locals.Get(name); ok {
			return id, ""
		}
	}
	if id, ok := ctx.Global.Get(name); ok {
		return id, ""
	}
	candidates := ctx.Global.Names()
	if len(ctx.Frames) > 0 {
		candidates = append(candidates, ctx.frame().Locals.Names()...)
	}
	suggestion, _ := cookerr.FuzzyMatch(name, candidates)
	return nil, suggestion
}

// Run executes ops to completion (a Return at the outermost frame, a
// fallthrough past the last instruction, or a non-Success status),
// starting a fresh top-level frame. It implements the execute_one
// dispatch loop from spec.md §3, one opcode per iteration.
func (ctx *Context) Run(ops *OpList, pos Position) Status {
	depth := len(ctx.Frames)
	ctx.Frames = append(ctx.Frames, &Frame{Ops: ops, Locals: NewScope(), Name: "main"})
	return ctx.runUntilDepth(depth)
}

// runUntilDepth drives executeOne until the call stack falls back to
// depth frames (the caller's depth before it pushed the frame being
// run), a non-Success status is produced, or the running frame falls
// off the end of its opcode list without an explicit OpReturn.
func (ctx *Context) runUntilDepth(depth int) Status {
	for len(ctx.Frames) > depth {
		if ctx.interrupted {
			return Interrupt
		}
		f := ctx.frame()
		if f.PC >= len(f.Ops.Ops) {
			ctx.Frames = ctx.Frames[:len(ctx.Frames)-1]
			ctx.push(strtab.List{})
			continue
		}
		status := ctx.executeOne(f.Ops.Ops[f.PC])
		if status != Success {
			return status
		}
	}
	return Success
}

// executeOne runs a single opcode and advances the active frame's PC,
// except where the opcode itself redirects control flow (jumps,
// calls, returns).
func (ctx *Context) executeOne(op Op) Status {
	f := ctx.frame()
	advance := true
	defer func() {
		if advance && len(ctx.Frames) > 0 && ctx.frame() == f {
			f.PC++
		}
	}()

	switch op.Kind {
	case OpPush, OpString:
		ctx.push(op.Text)

	case OpCatenate:
		args := ctx.popN(op.IntArg)
		var acc strtab.List
		for i, a := range args {
			if i == 0 {
				acc = a
				continue
			}
			acc = strtab.Catenate(acc, a)
		}
		ctx.push(acc)

	case OpAssign:
		v := ctx.pop()
		ctx.Global.Set(op.Name, NewVariable(v))

	case OpAssignLocal:
		v := ctx.pop()
		f.Locals.Set(op.Name, NewVariable(v))

	case OpSet:
		f.Locals.Set(op.Name, Nothing)

	case OpCommand:
		line := ctx.pop()
		cmdline := line.Join(" ")
		out, ok, err := ctx.Host.RunCommand("", cmdline)
		if err != nil {
			return ctx.diagErr(op.Pos, "command failed to start: $err", "", "err", err.Error())
		}
		if !ok {
			return ctx.diagErr(op.Pos, "command exited non-zero: $cmd", "", "cmd", cmdline, "output", out)
		}

	case OpTouch:
		// no effect in the interpreter; the cookbook compiler never
		// emits it.

	case OpFail:
		return ctx.diagErr(op.Pos, "explicit fail", "")

	case OpCascade:
		target := ctx.pop()
		need := ctx.pop()
		if len(target) == 0 {
			return ctx.diagErr(op.Pos, "attempt to instantiate recipe with no targets", "")
		}
		if ctx.Cascades != nil {
			if err := ctx.Cascades.Add(target, need, op.Pos); err != nil {
				return ctx.diagErr(op.Pos, "cascade: $err", "", "err", err.Error())
			}
		}

	case OpJumpFalse:
		v := ctx.pop()
		if !v.Truth() {
			f.PC = op.IntArg
			advance = false
		}

	case OpJumpTrue:
		v := ctx.pop()
		if v.Truth() {
			f.PC = op.IntArg
			advance = false
		}

	case OpGoto:
		f.PC = op.IntArg
		advance = false

	case OpDrop:
		ctx.pop()

	case OpPrelude, OpPostlude, OpNop:
		// hook points a recipe's compiled form may leave for the
		// scheduler to splice additional opcodes around; nothing to
		// do at the base interpreter level.

	case OpGosub:
		args := ctx.popN(op.IntArg)
		id, suggestion := ctx.lookup(op.Name)
		if id == nil {
			return ctx.diagErr(op.Pos, "no such function $name", suggestion, "name", op.Name)
		}
		status := ctx.call(id, args, op.Pos)
		if status != Success {
			return status
		}
		ctx.pop() // discard gosub's return value

	case OpFunction:
		args := ctx.popN(op.IntArg)
		id, suggestion := ctx.lookup(op.Name)
		if id == nil {
			return ctx.diagErr(op.Pos, "no such function or variable $name", suggestion, "name", op.Name)
		}
		status := ctx.call(id, args, op.Pos)
		if status != Success {
			return status
		}

	case OpReturn:
		v := ctx.pop()
		ctx.Frames = ctx.Frames[:len(ctx.Frames)-1]
		ctx.push(v)
		advance = false

	case OpThreadBorrow:
		ctx.ThreadID++

	case OpThreadReturn:
		if ctx.ThreadID > 0 {
			ctx.ThreadID--
		}

	default:
		return Error
	}
	return Success
}

func (ctx *Context) diagErr(pos Position, template, suggestion string, kv ...string) Status {
	d := cookerr.New(cookerr.KindRuntime, cookerr.Position{File: pos.File, Line: pos.Line}, template, kv...)
	d.Suggestion = suggestion
	ctx.LastDiagnostic = d
	return Error
}

// call dispatches to a builtin, a user function (by pushing a fresh
// Frame and looping Run to completion), or, for a variable identifier
// invoked as a function, pushes the variable's value and ignores the
// arguments (the cookbook's "a variable used in function position
// returns its value" fallback).
func (ctx *Context) call(id *Identifier, args []strtab.List, pos Position) Status {
	switch id.Kind {
	case IdentBuiltin:
		result, status := id.Native("", args, pos, ctx)
		if status == Success {
			ctx.push(result)
		}
		return status

	case IdentFunction:
		locals := NewScope()
		for i, a := range args {
			locals.Set(fmt.Sprintf("%d", i+1), NewVariable(a))
		}
		var all strtab.List
		for _, a := range args {
			all = append(all, a...)
		}
		locals.Set("*", NewVariable(all))
		depth := len(ctx.Frames)
		ctx.Frames = append(ctx.Frames, &Frame{Ops: id.Body, Locals: locals})
		return ctx.runUntilDepth(depth)

	case IdentVariable:
		ctx.push(id.Value)
		return Success

	default:
		ctx.push(strtab.List{})
		return Success
	}
}

