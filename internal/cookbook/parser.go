// Package cookbook implements the cookbook lexer/parser (external to
// the expression VM and recipe store per spec.md's data-flow
// paragraph, but owned by this module since the VM and recipe model
// need a producer to exercise them end to end). Grounded on the
// teacher's lex.go/parse.go/parser.go trio: parse.go's recursive
// statement-by-statement driver and parser.go's token-buffer helpers
// are generalized here from mkfile's flat target:prereq{shell-lines}
// grammar to cook's brace-delimited, Turing-complete recipe language
// (spec.md §6), compiling directly into internal/vm.Expr/Stmt trees
// and internal/recipe.Recipe values rather than mkfile's plain string
// rules.
package cookbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdhender/gocook/internal/cookerr"
	"github.com/mdhender/gocook/internal/pattern"
	"github.com/mdhender/gocook/internal/recipe"
	"github.com/mdhender/gocook/internal/vm"
)

// Program is everything a parsed cookbook contributes to a run:
// top-level variable assignments (compiled into one init opcode
// list, run once before any recipe), user function bodies keyed by
// name, and the recipe store the graph builder walks. Cooked includes
// are recorded rather than resolved here, since resolving one
// requires building it through the graph first (spec.md §6's
// `#include-cooked` semantics) — the driver in cmd/cook builds them
// and re-parses, feeding the result back into the same Program.
type Program struct {
	Init          *vm.OpList
	Functions     map[string]*vm.OpList
	Store         *recipe.Store
	CookedInclude []CookedInclude
}

// CookedInclude is a deferred #include-cooked[-nowarn] directive: the
// named file must be brought up to date by the graph builder before
// its contents can be lexed and folded into this Program.
type CookedInclude struct {
	Target string
	Warn   bool
	Pos    cookerr.Position
}

// ParseFile reads and parses file, resolving plain #include
// directives relative to its directory as it goes.
func ParseFile(file string) (*Program, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p := newParser(file)
	if err := p.parseInto(f, file); err != nil {
		return nil, err
	}
	return p.program, nil
}

// Parse parses cookbook source text already in memory, with file used
// only for diagnostics and relative #include resolution.
func Parse(rd io.Reader, file string) (*Program, error) {
	p := newParser(file)
	if err := p.parseInto(rd, file); err != nil {
		return nil, err
	}
	return p.program, nil
}

type parser struct {
	program *Program
	baseDir string

	lx      *lexer
	lookahd *token
	file    string
}

func newParser(file string) *parser {
	return &parser{
		program: &Program{
			Init:      vm.NewOpList(),
			Functions: make(map[string]*vm.OpList),
			Store:     recipe.NewStore(),
		},
		baseDir: filepath.Dir(file),
	}
}

func (p *parser) parseInto(rd io.Reader, file string) error {
	saved := p.lx
	savedLook := p.lookahd
	savedFile := p.file
	p.lx = lex(rd)
	p.lookahd = nil
	p.file = file

	err := p.parseStatements()

	p.lx = saved
	p.lookahd = savedLook
	p.file = savedFile
	return err
}

func (p *parser) pos() cookerr.Position { return cookerr.Position{File: p.file} }

func (p *parser) vpos(line int) vm.Position { return vm.Position{File: p.file, Line: line} }

func (p *parser) errf(line int, format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", p.file, line, fmt.Sprintf(format, args...))
}

func (p *parser) peek() token {
	if p.lookahd == nil {
		t, ok := p.lx.nextToken()
		if !ok {
			t = token{typ: tokenEOF}
		}
		p.lookahd = &t
	}
	return *p.lookahd
}

func (p *parser) next() token {
	t := p.peek()
	p.lookahd = nil
	return t
}

func (p *parser) skipNewlines() {
	for p.peek().typ == tokenNewline || p.peek().typ == tokenSemicolon {
		p.next()
	}
}

// parseStatements consumes top-level items until EOF: assignments,
// recipe rules, function definitions, and include directives.
func (p *parser) parseStatements() error {
	for {
		p.skipNewlines()
		switch p.peek().typ {
		case tokenEOF:
			return nil
		case tokenKeywordFunction:
			if err := p.parseFunction(); err != nil {
				return err
			}
		case tokenIncludeRedir:
			if err := p.parsePlainInclude(); err != nil {
				return err
			}
		case tokenIncludeCooked:
			p.parseCookedInclude(true)
		case tokenIncludeCookedNowarn:
			p.parseCookedInclude(false)
		case tokenKeywordCascade:
			if err := p.parseCascade(); err != nil {
				return err
			}
		case tokenWord:
			if err := p.parseAssignmentOrRule(); err != nil {
				return err
			}
		default:
			return p.errf(p.peek().line, "unexpected token %v at top level", p.peek())
		}
	}
}

func (p *parser) parsePlainInclude() error {
	tok := p.next()
	name := strings.Trim(strings.TrimSpace(tok.val), "\"")
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.baseDir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p.errf(tok.line, "#include %q: %v", name, err)
	}
	return p.parseInto(strings.NewReader(string(data)), path)
}

func (p *parser) parseCookedInclude(warn bool) {
	tok := p.next()
	name := strings.Trim(strings.TrimSpace(tok.val), "\"")
	p.program.CookedInclude = append(p.program.CookedInclude, CookedInclude{
		Target: name,
		Warn:   warn,
		Pos:    cookerr.Position{File: p.file, Line: tok.line},
	})
}

// parseAssignmentOrRule disambiguates `name = words` from
// `targets : ingredients { body }` by scanning words until it finds
// the deciding token.
func (p *parser) parseAssignmentOrRule() error {
	var words []token
	for {
		t := p.peek()
		switch t.typ {
		case tokenWord:
			words = append(words, p.next())
			continue
		case tokenAssign:
			if len(words) != 1 {
				return p.errf(t.line, "left-hand side of assignment must be a single word, got %d", len(words))
			}
			return p.parseAssignment(words[0])
		case tokenColon, tokenDoubleColon:
			return p.parseRule(words, t.typ == tokenDoubleColon)
		default:
			return p.errf(t.line, "unexpected token %v parsing statement starting %q", t, words)
		}
	}
}

func (p *parser) parseAssignment(name token) error {
	p.next() // '='
	var words []string
	for p.peek().typ == tokenWord || p.peek().typ == tokenDataBlock {
		words = append(words, p.next().val)
	}
	stmt := &vm.Set{Pos: p.vpos(name.line), Name: name.val, Expr: &vm.Const{Pos: p.vpos(name.line), Words: words}}
	stmt.CodeGenerate(p.program.Init)
	if !(p.peek().typ == tokenNewline || p.peek().typ == tokenSemicolon || p.peek().typ == tokenEOF) {
		return p.errf(p.peek().line, "unexpected token %v after assignment to %q", p.peek(), name.val)
	}
	return nil
}

// parseCascade parses `cascade TARGETS : EXTRAS ;`, spec.md §3's
// cascade declaration ("whenever a file matches X, also need Y"),
// compiling directly into Program.Init as a vm.Cascade statement so it
// registers in the cascade table once, at cookbook-load time.
func (p *parser) parseCascade() error {
	kw := p.next() // 'cascade'
	targets := p.parseWordList(tokenColon)
	if len(targets) == 0 {
		return p.errf(kw.line, "cascade declaration has no targets")
	}
	if p.peek().typ != tokenColon {
		return p.errf(p.peek().line, "expected ':' after cascade targets, got %v", p.peek())
	}
	p.next() // ':'
	extras := p.parseWordList(tokenNewline, tokenSemicolon)
	stmt := &vm.Cascade{
		Pos:     p.vpos(kw.line),
		Targets: &vm.Const{Pos: p.vpos(kw.line), Words: targets},
		Extras:  &vm.Const{Pos: p.vpos(kw.line), Words: extras},
	}
	stmt.CodeGenerate(p.program.Init)
	p.endStmt()
	return nil
}

func (p *parser) parseWordList(stop ...tokenType) []string {
	var words []string
	for {
		t := p.peek()
		if t.typ == tokenWord {
			words = append(words, p.next().val)
			continue
		}
		for _, s := range stop {
			if t.typ == s {
				return words
			}
		}
		return words
	}
}

func (p *parser) parseRule(targetToks []token, multiple bool) error {
	p.next() // ':' or '::'
	if len(targetToks) == 0 {
		return p.errf(p.peek().line, "recipe rule has no targets")
	}
	ingredients := p.parseWordList(tokenColon, tokenLBrace, tokenNewline, tokenSemicolon)
	if p.peek().typ == tokenColon {
		p.next()
		ingredients = append(ingredients, p.parseWordList(tokenLBrace, tokenNewline, tokenSemicolon)...)
	}

	pos := cookerr.Position{File: p.file, Line: targetToks[0].line}
	targets := make([]*pattern.Pattern, 0, len(targetToks))
	for _, t := range targetToks {
		pat, err := compileTargetPattern(t.val, pos)
		if err != nil {
			return err
		}
		targets = append(targets, pat)
	}

	r := &recipe.Recipe{
		Pos:         pos,
		Targets:     targets,
		Ingredients: ingredients,
		Multiple:    multiple,
	}

	if p.peek().typ == tokenKeywordPrecondition {
		p.next()
		cond, err := p.parseExpr()
		if err != nil {
			return err
		}
		precond := vm.NewOpList()
		cond.CodeGenerate(precond)
		precond.Emit(vm.Op{Kind: vm.OpReturn, Pos: p.vpos(p.peek().line)})
		r.Precondition = precond
	}

	switch p.peek().typ {
	case tokenLBrace:
		body, err := p.parseBraceBody(r)
		if err != nil {
			return err
		}
		r.Body = body
	case tokenNewline, tokenSemicolon, tokenEOF:
		// recipe with an empty body (a leaf declaration, or one whose
		// up-to-date-ness is purely ingredient-driven)
		r.Body = vm.NewOpList()
	default:
		return p.errf(p.peek().line, "expected '{' or end of line after recipe header, got %v", p.peek())
	}

	p.program.Store.Add(r)
	return nil
}

// compileTargetPattern chooses the regex dialect for a /.../-wrapped
// pattern and the cook '%'-wildcard dialect otherwise, the same
// convention internal/recipe's isWildcardPattern checks for on
// the rendered side.
func compileTargetPattern(raw string, pos cookerr.Position) (*pattern.Pattern, error) {
	if len(raw) >= 2 && raw[0] == '/' && raw[len(raw)-1] == '/' {
		return pattern.Compile(raw[1:len(raw)-1], pattern.Regex, pos)
	}
	return pattern.Compile(raw, pattern.Cook, pos)
}

// parseBraceBody parses a `{ ... }` statement block. When r is
// non-nil, leading `set` flag statements are diverted into its
// Attrs rather than compiled as opcodes, since attributes are a
// static recipe property rather than a runtime effect (spec.md §3's
// Recipe "flag set" field).
func (p *parser) parseBraceBody(r *recipe.Recipe) (*vm.OpList, error) {
	p.next() // '{'
	p.skipNewlines()
	for r != nil && p.peek().typ == tokenKeywordSet {
		if err := p.parseAttributeSet(r); err != nil {
			return nil, err
		}
		p.skipNewlines()
	}
	stmts, err := p.parseStmtsUntil(tokenRBrace)
	if err != nil {
		return nil, err
	}
	p.next() // '}'
	ops := vm.NewOpList()
	body := &vm.Compound{Body: stmts}
	body.CodeGenerate(ops)
	return ops, nil
}

// parseAttributeSet handles `set flag [=value] [flag...];` where flag
// is one of precious/virtual/quiet/update/fingerprint-off/single-
// thread/host-binding, generalizing the teacher's rules.go single-
// letter attribute codes (D/E/N/Q/U/V/X) into named words.
func (p *parser) parseAttributeSet(r *recipe.Recipe) error {
	p.next() // 'set'
	for p.peek().typ == tokenWord {
		flag := p.next().val
		var value string
		if p.peek().typ == tokenAssign {
			p.next()
			if p.peek().typ == tokenWord {
				value = p.next().val
			}
		}
		switch flag {
		case "precious":
			r.Attrs.Precious = true
		case "virtual":
			r.Attrs.Virtual = true
		case "quiet":
			r.Attrs.Quiet = true
		case "update":
			r.Attrs.UpdateAlways = true
		case "fingerprint-off":
			r.Attrs.FingerprintOff = true
		case "single-thread":
			r.Attrs.SingleThread = value
		case "host-binding":
			r.Attrs.HostBinding = value
		default:
			return p.errf(p.peek().line, "unknown recipe attribute %q", flag)
		}
	}
	if p.peek().typ == tokenSemicolon {
		p.next()
	}
	return nil
}

func (p *parser) parseFunction() error {
	fnTok := p.next() // 'function'
	if p.peek().typ != tokenWord {
		return p.errf(p.peek().line, "expected function name, got %v", p.peek())
	}
	name := p.next().val
	if p.peek().typ != tokenAssign {
		return p.errf(p.peek().line, "expected '=' after function name %q", name)
	}
	p.next() // '='
	p.skipNewlines()
	if p.peek().typ != tokenLBrace {
		return p.errf(p.peek().line, "expected '{' starting body of function %q", name)
	}
	ops, err := p.parseBraceBody(nil)
	if err != nil {
		return err
	}
	_ = fnTok
	p.program.Functions[name] = ops
	return nil
}

// parseStmtsUntil parses statements until the next token is end
// (not consumed) or EOF.
func (p *parser) parseStmtsUntil(end tokenType) ([]vm.Stmt, error) {
	var out []vm.Stmt
	for {
		p.skipNewlines()
		if p.peek().typ == end || p.peek().typ == tokenEOF {
			return out, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
}

func (p *parser) parseStmt() (vm.Stmt, error) {
	t := p.peek()
	switch t.typ {
	case tokenKeywordIf:
		return p.parseIf()
	case tokenKeywordLoop:
		return p.parseLoop()
	case tokenKeywordLoopStop:
		p.next()
		p.endStmt()
		return &vm.LoopStop{Pos: p.vpos(t.line)}, nil
	case tokenKeywordReturn:
		p.next()
		var expr vm.Expr
		if p.peek().typ == tokenWord || p.peek().typ == tokenLBracket {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			expr = e
		}
		p.endStmt()
		return &vm.Return{Pos: p.vpos(t.line), Expr: expr}, nil
	case tokenKeywordSet:
		p.next()
		if p.peek().typ != tokenWord {
			return nil, p.errf(p.peek().line, "expected identifier after 'set'")
		}
		name := p.next().val
		p.endStmt()
		return &vm.ExprStmt{Pos: p.vpos(t.line), Expr: &declareExpr{pos: p.vpos(t.line), name: name}}, nil
	case tokenLBracket:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.endStmt()
		return &vm.ExprStmt{Pos: e.Position(), Expr: e}, nil
	case tokenDataBlock:
		// a bare data block used as a statement has no effect; the
		// common case (assigned to a variable) is handled in
		// parseAssignment's word-list reader treating it as one word.
		p.next()
		return &vm.Nop{Pos: p.vpos(t.line)}, nil
	case tokenWord:
		return p.parseWordStmt()
	default:
		return nil, p.errf(t.line, "unexpected token %v in statement", t)
	}
}

func (p *parser) endStmt() {
	if p.peek().typ == tokenSemicolon || p.peek().typ == tokenNewline {
		p.next()
	}
}

// parseWordStmt handles both `name = expr;` (global assignment) and a
// bare shell command line (words up to ';'/newline), matching the
// grammar ambiguity spec.md §6 leaves unresolved by giving assignment
// priority: a single word immediately followed by '=' is always an
// assignment, never the start of a one-word shell command.
func (p *parser) parseWordStmt() (vm.Stmt, error) {
	first := p.next()
	if p.peek().typ == tokenAssign {
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.endStmt()
		return &vm.Set{Pos: p.vpos(first.line), Name: first.val, Expr: expr}, nil
	}

	words := []string{first.val}
	for p.peek().typ == tokenWord {
		words = append(words, p.next().val)
	}
	p.endStmt()
	return &vm.Command{Pos: p.vpos(first.line), Expr: &vm.Const{Pos: p.vpos(first.line), Words: words}}, nil
}

func (p *parser) parseIf() (vm.Stmt, error) {
	ifTok := p.next() // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if p.peek().typ != tokenKeywordThen {
		return nil, p.errf(p.peek().line, "expected 'then', got %v", p.peek())
	}
	p.next()
	thenStmts, err := p.parseStmtsUntilAny(tokenKeywordElse, tokenKeywordEndif)
	if err != nil {
		return nil, err
	}
	var elseStmt vm.Stmt
	if p.peek().typ == tokenKeywordElse {
		p.next()
		elseStmts, err := p.parseStmtsUntilAny(tokenKeywordEndif)
		if err != nil {
			return nil, err
		}
		elseStmt = &vm.Compound{Pos: p.vpos(ifTok.line), Body: elseStmts}
	}
	if p.peek().typ != tokenKeywordEndif {
		return nil, p.errf(p.peek().line, "expected 'endif', got %v", p.peek())
	}
	p.next()
	p.endStmt()
	return &vm.If{
		Pos:  p.vpos(ifTok.line),
		Cond: cond,
		Then: &vm.Compound{Pos: p.vpos(ifTok.line), Body: thenStmts},
		Else: elseStmt,
	}, nil
}

func (p *parser) parseLoop() (vm.Stmt, error) {
	loopTok := p.next() // 'loop'
	p.skipNewlines()
	if p.peek().typ != tokenLBrace {
		return nil, p.errf(p.peek().line, "expected '{' after 'loop'")
	}
	p.next()
	body, err := p.parseStmtsUntil(tokenRBrace)
	if err != nil {
		return nil, err
	}
	p.next() // '}'
	p.endStmt()
	return &vm.Loop{Pos: p.vpos(loopTok.line), Body: &vm.Compound{Pos: p.vpos(loopTok.line), Body: body}}, nil
}

func (p *parser) parseStmtsUntilAny(ends ...tokenType) ([]vm.Stmt, error) {
	var out []vm.Stmt
	for {
		p.skipNewlines()
		t := p.peek().typ
		for _, e := range ends {
			if t == e {
				return out, nil
			}
		}
		if t == tokenEOF {
			return out, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
}

// parseExpr parses one expression: a bracketed call/identifier
// reference, or a run of bare words joined as a single Const, per
// spec.md §3's "Identifier references are written as [name arg...]"
// rule plus the catenate-adjacent-words convention bare recipe text
// uses.
func (p *parser) parseExpr() (vm.Expr, error) {
	t := p.peek()
	switch t.typ {
	case tokenLBracket:
		return p.parseBracket()
	case tokenWord, tokenDataBlock:
		var words []string
		pos := p.vpos(t.line)
		for p.peek().typ == tokenWord || p.peek().typ == tokenDataBlock {
			words = append(words, p.next().val)
		}
		return &vm.Const{Pos: pos, Words: words}, nil
	default:
		return nil, p.errf(t.line, "expected an expression, got %v", t)
	}
}

// parseBracket parses `[ name arg... ]` as a Call, or `[ word ]` with
// no further structure as a bare variable reference (a Call with zero
// args, per spec.md §3: "a variable is a function of no arguments").
// An empty `[ ]` is a parse error.
func (p *parser) parseBracket() (vm.Expr, error) {
	open := p.next() // '['
	if p.peek().typ != tokenWord {
		return nil, p.errf(p.peek().line, "expected identifier after '[', got %v", p.peek())
	}
	name := p.next().val
	var args []vm.Expr
	for p.peek().typ != tokenRBracket {
		if p.peek().typ == tokenEOF {
			return nil, p.errf(open.line, "unterminated '[' starting here")
		}
		arg, err := p.parseBracketArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.next() // ']'
	return &vm.Call{Pos: p.vpos(open.line), Name: name, Args: args}, nil
}

// parseBracketArg parses one argument word/nested-bracket inside a
// call, so `[addprefix /x [basename $f]]` nests correctly.
func (p *parser) parseBracketArg() (vm.Expr, error) {
	t := p.peek()
	if t.typ == tokenLBracket {
		return p.parseBracket()
	}
	if t.typ != tokenWord && t.typ != tokenDataBlock {
		return nil, p.errf(t.line, "expected a word or '[' in call arguments, got %v", t)
	}
	p.next()
	return &vm.Const{Pos: p.vpos(t.line), Words: []string{t.val}}, nil
}

// declareExpr compiles to the OpSet "declare this local as defined,
// with no value" instruction, for the `set name;` statement that
// backs the `defined` builtin's Nothing-vs-absent distinction.
type declareExpr struct {
	pos  vm.Position
	name string
}

func (d *declareExpr) Position() vm.Position { return d.pos }
func (d *declareExpr) CodeGenerate(l *vm.OpList) {
	l.Emit(vm.Op{Kind: vm.OpSet, Pos: d.pos, Name: d.name})
	l.Emit(vm.Op{Kind: vm.OpPush, Pos: d.pos})
}
