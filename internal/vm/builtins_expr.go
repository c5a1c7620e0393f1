package vm

import (
	"strconv"
	"strings"

	"github.com/mdhender/gocook/internal/strtab"
)

// registerExprBuiltin wires the `expr` builtin: the integer
// sub-grammar from original_source/src/cook/expr.c + expr_lex.c,
// restored per SPEC_FULL.md §4 since the distillation only named it
// in passing. Grounded on the original's precedence levels
// (`|` lowest, then `&`, then the six comparisons, then `+ -`, then
// `* / %`) with a hand-written recursive-descent parser, matching
// Design Notes §9's guidance that a generated parser is unnecessary
// here.
func registerExprBuiltin(scope *Scope) {
	scope.Set("expr", NewBuiltin(biExpr))
}

func biExpr(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	words := flatten(args)
	p := &exprParser{toks: words}
	v, err := p.parseOr()
	if err != nil {
		return nil, ctx.diagErr(pos, "expr: $err", "", "err", err.Error())
	}
	if !p.atEnd() {
		return nil, ctx.diagErr(pos, "expr: unexpected trailing token $tok", "", "tok", p.peek())
	}
	return strtab.List{strconv.FormatInt(v, 10)}, Success
}

type exprParser struct {
	toks []string
	pos  int
}

func (p *exprParser) atEnd() bool    { return p.pos >= len(p.toks) }
func (p *exprParser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.toks[p.pos]
}
func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) parseOr() (int64, error) {
	left, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	for p.peek() == "|" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		if left != 0 || right != 0 {
			left = 1
		} else {
			left = 0
		}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (int64, error) {
	left, err := p.parseCompare()
	if err != nil {
		return 0, err
	}
	for p.peek() == "&" {
		p.next()
		right, err := p.parseCompare()
		if err != nil {
			return 0, err
		}
		if left != 0 && right != 0 {
			left = 1
		} else {
			left = 0
		}
	}
	return left, nil
}

var compareOps = map[string]func(a, b int64) bool{
	"=":  func(a, b int64) bool { return a == b },
	"!=": func(a, b int64) bool { return a != b },
	"<":  func(a, b int64) bool { return a < b },
	"<=": func(a, b int64) bool { return a <= b },
	">":  func(a, b int64) bool { return a > b },
	">=": func(a, b int64) bool { return a >= b },
}

func (p *exprParser) parseCompare() (int64, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := compareOps[p.peek()]
		if !ok {
			return left, nil
		}
		opTok := p.next()
		right, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		if op(left, right) {
			left = 1
		} else {
			left = 0
		}
		_ = opTok
	}
}

func (p *exprParser) parseAddSub() (int64, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return 0, err
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.next()
		right, err := p.parseMulDiv()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
	return left, nil
}

func (p *exprParser) parseMulDiv() (int64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.peek() == "*" || p.peek() == "/" || p.peek() == "%" {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, strconv.ErrSyntax
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, strconv.ErrSyntax
			}
			left %= right
		}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (int64, error) {
	if p.peek() == "-" {
		p.next()
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (int64, error) {
	if p.peek() == "(" {
		p.next()
		v, err := p.parseOr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ")" {
			return 0, strconv.ErrSyntax
		}
		p.next()
		return v, nil
	}
	tok := p.next()
	if tok == "" {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}
