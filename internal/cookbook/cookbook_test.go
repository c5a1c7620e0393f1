package cookbook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdhender/gocook/internal/vm"
)

func tokenTypes(t *testing.T, src string) []tokenType {
	t.Helper()
	lx := lex(strings.NewReader(src))
	var out []tokenType
	for {
		tok, ok := lx.nextToken()
		if !ok {
			break
		}
		out = append(out, tok.typ)
	}
	return out
}

func TestLexerAssignmentLine(t *testing.T) {
	types := tokenTypes(t, "CFLAGS = -O2 -Wall\n")
	require.Equal(t, []tokenType{tokenWord, tokenAssign, tokenWord, tokenWord, tokenNewline}, types)
}

func TestLexerRuleHeader(t *testing.T) {
	types := tokenTypes(t, "out.o : out.c { [compile out.c] }\n")
	require.Equal(t, []tokenType{
		tokenWord, tokenColon, tokenWord,
		tokenLBrace, tokenLBracket, tokenWord, tokenWord, tokenRBracket, tokenRBrace,
		tokenNewline,
	}, types)
}

func TestLexerDoubleColonAndBraces(t *testing.T) {
	types := tokenTypes(t, "a b :: c {}\n")
	require.Equal(t, []tokenType{
		tokenWord, tokenWord, tokenDoubleColon, tokenWord, tokenLBrace, tokenRBrace, tokenNewline,
	}, types)
}

func TestLexerDataBlock(t *testing.T) {
	lx := lex(strings.NewReader("x = data\nhello\nworld\ndataend\n"))
	var got []token
	for {
		tok, ok := lx.nextToken()
		if !ok {
			break
		}
		got = append(got, tok)
	}
	require.Len(t, got, 4)
	assert.Equal(t, tokenDataBlock, got[2].typ)
	assert.Equal(t, "hello\nworld\n", got[2].val)
}

func TestParserAssignmentFeedsInit(t *testing.T) {
	prog, err := Parse(strings.NewReader("GREETING = hello world\n"), "test.cook")
	require.NoError(t, err)
	require.NotNil(t, prog.Init)
	require.NotEmpty(t, prog.Init.Ops)

	ctx := vm.NewContext(nil, nil)
	require.NoError(t, Load(ctx, prog))
	id, ok := ctx.Global.Get("GREETING")
	require.True(t, ok)
	assert.Equal(t, []string{"hello", "world"}, []string(id.Value))
}

func TestParserSimpleRule(t *testing.T) {
	src := "out.bin : out.o {\n\tset quiet;\n\t[execute cc -o out.bin out.o]\n}\n"
	prog, err := Parse(strings.NewReader(src), "test.cook")
	require.NoError(t, err)
	require.Len(t, prog.Store.Recipes, 1)
	r := prog.Store.Recipes[0]
	assert.True(t, r.Attrs.Quiet)
	assert.Equal(t, []string{"out.o"}, r.Ingredients)
	_, matched := r.MatchesAny("out.bin")
	assert.True(t, matched)
}

func TestParserWildcardRuleCandidateLookup(t *testing.T) {
	src := "%.o : %.c { [compile %0] }\n"
	prog, err := Parse(strings.NewReader(src), "test.cook")
	require.NoError(t, err)
	idxs := prog.Store.Candidates("main.o")
	require.Len(t, idxs, 1)
	r := prog.Store.Get(idxs[0])
	m, ok := r.MatchesAny("main.o")
	require.True(t, ok)
	assert.Equal(t, []string{"main.c"}, r.ResolvedIngredients(m))
}

// TestParserCascadeDeclaration exercises the `cascade` top-level
// construct, distinct from Store.Candidates above: it registers extra
// ingredients against a vm.CascadeTable rather than selecting a
// recipe.
func TestParserCascadeDeclaration(t *testing.T) {
	src := "cascade %.o : config.mk ;\n"
	prog, err := Parse(strings.NewReader(src), "test.cook")
	require.NoError(t, err)
	require.NotNil(t, prog.Init)
	require.NotEmpty(t, prog.Init.Ops)

	host := &stubHost{}
	ctx := vm.NewContext(host, nil)
	vm.RegisterBuiltins(ctx.Global)
	status := ctx.Run(prog.Init, vm.Position{})
	require.Equal(t, vm.Success, status)
	require.NotNil(t, ctx.Cascades)
	assert.Equal(t, []string{"config.mk"}, ctx.Cascades.Find("main.o"))
	assert.Empty(t, ctx.Cascades.Find("main.c"))
}

type stubHost struct{}

func (stubHost) RunCommand(dir, line string) (string, bool, error) { return "", true, nil }
func (stubHost) CanDo(target string) bool                          { return false }
func (stubHost) UpToDate(target string) bool                       { return false }
func (stubHost) Cook(target string) bool                            { return false }

func TestParserFunctionIfLoop(t *testing.T) {
	src := `function double =
{
	loop
	{
		if [defined x] then
			loopstop
		endif
	}
	return [catenate [1] [1]]
}
`
	prog, err := Parse(strings.NewReader(src), "test.cook")
	require.NoError(t, err)
	require.Contains(t, prog.Functions, "double")
	require.NotEmpty(t, prog.Functions["double"].Ops)
}

func TestParserPreconditionAndMultipleTarget(t *testing.T) {
	src := "a b :: c precondition [defined READY] { [execute touch a b] }\n"
	prog, err := Parse(strings.NewReader(src), "test.cook")
	require.NoError(t, err)
	require.Len(t, prog.Store.Recipes, 1)
	r := prog.Store.Recipes[0]
	assert.NotNil(t, r.Precondition)
	assert.Len(t, r.Targets, 2)
	assert.True(t, r.Multiple)
}
