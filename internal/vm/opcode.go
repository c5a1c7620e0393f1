package vm

import "github.com/mdhender/gocook/internal/strtab"

// Status is the uniform completion model every opcode and builtin
// reports through, replacing the original's fatal_intl/longjmp
// exception style per Design Notes §9 ("make this the uniform model").
type Status int

const (
	Success Status = iota
	Backtrack
	Error
	Interrupt
	Wait
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Backtrack:
		return "backtrack"
	case Error:
		return "error"
	case Interrupt:
		return "interrupt"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// Position identifies the cookbook source location an opcode was
// compiled from, carried on every instruction for diagnostics.
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	if p.File == "" {
		return "?"
	}
	return p.File + ":" + itoa(p.Line)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// OpKind enumerates the complete instruction set from spec.md §3's
// "Opcode (complete set)" subsection.
type OpKind int

const (
	OpPush OpKind = iota
	OpString
	OpCatenate
	OpFunction
	OpAssign
	OpAssignLocal
	OpSet
	OpCommand
	OpTouch
	OpFail
	OpCascade
	OpJumpFalse
	OpJumpTrue
	OpGoto
	OpPrelude
	OpPostlude
	OpGosub
	OpThreadBorrow
	OpThreadReturn
	OpReturn
	OpDrop
	OpNop
)

// Op is a single instruction. Operand meaning depends on Kind:
//   - OpPush/OpString: Text is the literal word sequence to push.
//   - OpCatenate: pops N(=IntArg) values, catenates pairwise, pushes result.
//   - OpFunction: Name names the identifier (builtin or user function)
//     to invoke with IntArg popped argument lists.
//   - OpAssign/OpAssignLocal/OpSet: Name is the target identifier.
//   - OpCommand: pops the shell command line from the value stack and
//     runs it.
//   - OpJumpFalse/OpJumpTrue/OpGoto: IntArg is the target program
//     counter, patched in by the label-resolution pass.
//   - OpGosub: Name names the function to call for effect with IntArg
//     popped argument lists.
//   - OpThreadBorrow/OpThreadReturn: used by the "thread-id" builtin's
//     reservation protocol.
type Op struct {
	Kind   OpKind
	Pos    Position
	Text   strtab.List
	Name   string
	IntArg int
}

// OpList is a flat vector of instructions plus the label bookkeeping
// used during compilation. Labels are logical targets (break/continue/
// return) that get forward-patched once their address is known, per
// the original's single-pass code generator in cook/opcode/list.c.
type OpList struct {
	Ops    []Op
	labels map[string][]int // label name -> indices of Ops needing patching
}

// NewOpList returns an empty, ready-to-append instruction list.
func NewOpList() *OpList {
	return &OpList{labels: make(map[string][]int)}
}

// Emit appends op and returns its index (the new program counter).
func (l *OpList) Emit(op Op) int {
	l.Ops = append(l.Ops, op)
	return len(l.Ops) - 1
}

// Here returns the index the next Emit will use, for backward jumps.
func (l *OpList) Here() int { return len(l.Ops) }

// EmitPlaceholder emits an instruction whose IntArg will be patched
// later via PatchHere or Patch, recording it under label for deferred
// resolution (e.g. "break" targets the loop's exit, unknown until the
// loop body finishes compiling).
func (l *OpList) EmitPlaceholder(kind OpKind, pos Position, label string) int {
	idx := l.Emit(Op{Kind: kind, Pos: pos})
	l.labels[label] = append(l.labels[label], idx)
	return idx
}

// PatchHere resolves every placeholder registered under label to the
// current end of the list (the instruction about to be emitted next).
func (l *OpList) PatchHere(label string) { l.Patch(label, l.Here()) }

// Patch resolves every placeholder registered under label to target.
func (l *OpList) Patch(label string, target int) {
	for _, idx := range l.labels[label] {
		l.Ops[idx].IntArg = target
	}
	delete(l.labels, label)
}
