package vm

import "github.com/mdhender/gocook/internal/strtab"

// Expr is the expression-tree sum type the cookbook parser builds
// before lowering to opcodes: constant, catenate, list, function call,
// and conditional, per spec.md §3's Expression subsection.
type Expr interface {
	CodeGenerate(l *OpList)
	Position() Position
}

// Const is a literal word-sequence operand.
type Const struct {
	Pos   Position
	Words strtab.List
}

func (c *Const) Position() Position { return c.Pos }
func (c *Const) CodeGenerate(l *OpList) {
	l.Emit(Op{Kind: OpPush, Pos: c.Pos, Text: c.Words})
}

// Catenate joins two sub-expressions word-by-word per strtab.Catenate
// semantics (last word of the left joins the first word of the
// right).
type Catenate struct {
	Pos         Position
	Left, Right Expr
}

func (c *Catenate) Position() Position { return c.Pos }
func (c *Catenate) CodeGenerate(l *OpList) {
	c.Left.CodeGenerate(l)
	c.Right.CodeGenerate(l)
	l.Emit(Op{Kind: OpCatenate, Pos: c.Pos, IntArg: 2})
}

// ListExpr concatenates (space joins, not catenates) a sequence of
// sub-expressions into one word list, used for bracketed argument
// lists: [name arg1 arg2 ...].
type ListExpr struct {
	Pos   Position
	Items []Expr
}

func (e *ListExpr) Position() Position { return e.Pos }
func (e *ListExpr) CodeGenerate(l *OpList) {
	for _, item := range e.Items {
		item.CodeGenerate(l)
	}
	l.Emit(Op{Kind: OpCatenate, Pos: e.Pos, IntArg: len(e.Items)})
}

// Call invokes a named identifier (builtin, user function, or
// variable-as-function) with a list of argument expressions, each of
// which evaluates to one word list pushed in order before OpFunction
// runs.
type Call struct {
	Pos  Position
	Name string
	Args []Expr
}

func (c *Call) Position() Position { return c.Pos }
func (c *Call) CodeGenerate(l *OpList) {
	for _, a := range c.Args {
		a.CodeGenerate(l)
	}
	l.Emit(Op{Kind: OpFunction, Pos: c.Pos, Name: c.Name, IntArg: len(c.Args)})
}

// Conditional lowers to the jmpf/jmpt idiom: evaluate Cond, jump over
// Then if false (else-branch present), jump over Else unconditionally
// from the end of Then.
type Conditional struct {
	Pos              Position
	Cond, Then, Else Expr
}

func (c *Conditional) Position() Position { return c.Pos }
func (c *Conditional) CodeGenerate(l *OpList) {
	c.Cond.CodeGenerate(l)
	jmpfIdx := l.Emit(Op{Kind: OpJumpFalse, Pos: c.Pos})
	c.Then.CodeGenerate(l)
	if c.Else == nil {
		l.Ops[jmpfIdx].IntArg = l.Here()
		return
	}
	gotoIdx := l.Emit(Op{Kind: OpGoto, Pos: c.Pos})
	l.Ops[jmpfIdx].IntArg = l.Here()
	c.Else.CodeGenerate(l)
	l.Ops[gotoIdx].IntArg = l.Here()
}
