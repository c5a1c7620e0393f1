package vm

import (
	"testing"

	"github.com/mdhender/gocook/internal/strtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	ran     []string
	fail    map[string]bool
	canDo   map[string]bool
	builtOK map[string]bool
}

func (h *fakeHost) RunCommand(dir, line string) (string, bool, error) {
	h.ran = append(h.ran, line)
	return "", !h.fail[line], nil
}

func (h *fakeHost) CanDo(target string) bool   { return h.canDo[target] }
func (h *fakeHost) UpToDate(target string) bool { return false }
func (h *fakeHost) Cook(target string) bool     { return h.builtOK[target] }

func newTestContext() (*Context, *fakeHost) {
	host := &fakeHost{fail: map[string]bool{}, canDo: map[string]bool{}, builtOK: map[string]bool{}}
	ctx := NewContext(host, strtab.NewTable())
	RegisterBuiltins(ctx.Global)
	return ctx, host
}

func TestConstAndAssign(t *testing.T) {
	ctx, _ := newTestContext()
	ops := NewOpList()
	(&Const{Words: strtab.List{"hello", "world"}}).CodeGenerate(ops)
	ops.Emit(Op{Kind: OpAssign, Name: "x"})
	ops.Emit(Op{Kind: OpPush, Text: strtab.List{}})
	ops.Emit(Op{Kind: OpReturn})

	status := ctx.Run(ops, Position{})
	require.Equal(t, Success, status)

	id, ok := ctx.Global.Get("x")
	require.True(t, ok)
	assert.Equal(t, strtab.List{"hello", "world"}, id.Value)
}

func TestCatenateOpcode(t *testing.T) {
	ctx, _ := newTestContext()
	ops := NewOpList()
	(&Catenate{
		Left:  &Const{Words: strtab.List{"foo", "ba"}},
		Right: &Const{Words: strtab.List{"r", "baz"}},
	}).CodeGenerate(ops)
	ops.Emit(Op{Kind: OpAssign, Name: "out"})
	ops.Emit(Op{Kind: OpPush})
	ops.Emit(Op{Kind: OpReturn})

	status := ctx.Run(ops, Position{})
	require.Equal(t, Success, status)

	id, ok := ctx.Global.Get("out")
	require.True(t, ok)
	assert.Equal(t, strtab.List{"foo", "bar", "baz"}, id.Value)
}

func TestConditionalExpr(t *testing.T) {
	ctx, _ := newTestContext()
	ops := NewOpList()
	(&Conditional{
		Cond: &Const{Words: strtab.List{"yes"}},
		Then: &Const{Words: strtab.List{"taken"}},
		Else: &Const{Words: strtab.List{"not-taken"}},
	}).CodeGenerate(ops)
	ops.Emit(Op{Kind: OpAssign, Name: "branch"})
	ops.Emit(Op{Kind: OpPush})
	ops.Emit(Op{Kind: OpReturn})

	status := ctx.Run(ops, Position{})
	require.Equal(t, Success, status)
	id, _ := ctx.Global.Get("branch")
	assert.Equal(t, strtab.List{"taken"}, id.Value)
}

func TestUserFunctionCallAndReturn(t *testing.T) {
	ctx, _ := newTestContext()

	body := NewOpList()
	// return the value of the local "1", i.e. echo arg 1
	body.Emit(Op{Kind: OpFunction, Name: "1", IntArg: 0})
	body.Emit(Op{Kind: OpReturn})
	ctx.Global.Set("echo1", NewFunction(body))

	ops := NewOpList()
	(&Call{Name: "echo1", Args: []Expr{&Const{Words: strtab.List{"hi"}}}}).CodeGenerate(ops)
	ops.Emit(Op{Kind: OpAssign, Name: "result"})
	ops.Emit(Op{Kind: OpPush})
	ops.Emit(Op{Kind: OpReturn})

	status := ctx.Run(ops, Position{})
	require.Equal(t, Success, status)
	id, ok := ctx.Global.Get("result")
	require.True(t, ok)
	assert.Equal(t, strtab.List{"hi"}, id.Value)
}

func TestUnknownIdentifierProducesDiagnostic(t *testing.T) {
	ctx, _ := newTestContext()
	ops := NewOpList()
	(&Call{Name: "wrods", Args: []Expr{&Const{Words: strtab.List{"a"}}}}).CodeGenerate(ops)
	ops.Emit(Op{Kind: OpReturn})

	status := ctx.Run(ops, Position{File: "x.cook", Line: 3})
	assert.Equal(t, Error, status)
	require.NotNil(t, ctx.LastDiagnostic)
}

func TestBuiltinAddprefix(t *testing.T) {
	ctx, _ := newTestContext()
	ops := NewOpList()
	(&Call{Name: "addprefix", Args: []Expr{
		&Const{Words: strtab.List{"-I"}},
		&Const{Words: strtab.List{"a", "b"}},
	}}).CodeGenerate(ops)
	ops.Emit(Op{Kind: OpAssign, Name: "flags"})
	ops.Emit(Op{Kind: OpPush})
	ops.Emit(Op{Kind: OpReturn})

	status := ctx.Run(ops, Position{})
	require.Equal(t, Success, status)
	id, _ := ctx.Global.Get("flags")
	assert.Equal(t, strtab.List{"-Ia", "-Ib"}, id.Value)
}

func TestCanDoBuiltinDelegatesToHost(t *testing.T) {
	ctx, host := newTestContext()
	host.canDo["main.o"] = true

	ops := NewOpList()
	(&Call{Name: "cando", Args: []Expr{&Const{Words: strtab.List{"main.o"}}}}).CodeGenerate(ops)
	ops.Emit(Op{Kind: OpAssign, Name: "can"})
	ops.Emit(Op{Kind: OpPush})
	ops.Emit(Op{Kind: OpReturn})

	status := ctx.Run(ops, Position{})
	require.Equal(t, Success, status)
	id, _ := ctx.Global.Get("can")
	assert.Equal(t, strtab.List{"main.o"}, id.Value)
}

func TestLoopAndLoopStop(t *testing.T) {
	ctx, _ := newTestContext()
	ops := NewOpList()
	// set n = [getn] catenated with "x", then loopstop
	(&Loop{
		Body: &Compound{Body: []Stmt{
			&Set{Name: "n", Expr: &Catenate{
				Left:  &Call{Name: "getn"},
				Right: &Const{Words: strtab.List{"x"}},
			}},
			&LoopStop{},
		}},
	}).CodeGenerate(ops)
	_ = ops
	// Compiled only, not run: the loop ends in a backward goto to its
	// first instruction, and loopstop's goto is patched to just past it.
	assert.NotEmpty(t, ops.Ops)
	require.Len(t, ops.Ops, 6)
	assert.Equal(t, OpGoto, ops.Ops[5].Kind)
	assert.Equal(t, 0, ops.Ops[5].IntArg)
	assert.Equal(t, OpGoto, ops.Ops[4].Kind)
	assert.Equal(t, 6, ops.Ops[4].IntArg)
}
