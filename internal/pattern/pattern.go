// Package pattern implements cook's two matcher dialects: the
// cook-glob dialect (a single '%' wildcard group plus numbered
// backreferences) and the regex dialect (POSIX-flavoured regular
// expressions with \0..\9 backreferences and '&' meaning "the whole
// match" on the replacement side).
//
// Grounded on original_source/src/cook/match.c (the match_ty vtable:
// compile/execute/reconstruct_lhs/reconstruct_rhs/usage_mask) and the
// teacher's graph.go CompileTarget, which already special-cases a
// single '%' with prefix/suffix splitting; this package generalizes
// that to numbered backreferences and the regex dialect side by side,
// replacing the teacher's closure-typed Target.match with an explicit
// sum type per Design Notes §9 ("model as sum types with an explicit
// kind discriminator").
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mdhender/gocook/internal/cookerr"
)

// Dialect selects which matcher a pattern is compiled under.
type Dialect int

const (
	// Cook is the '%'-wildcard, '%0'..'%9' backreference dialect.
	Cook Dialect = iota
	// Regex is the POSIX-flavoured dialect with '\0'..'\9' and '&'.
	Regex
)

// Pattern is a compiled match template. The zero value is not usable;
// construct with Compile.
type Pattern struct {
	dialect Dialect
	raw     string
	// Cook dialect: prefix/suffix either side of the single '%'.
	// hasWildcard is false for a pattern with no '%' at all, which
	// matches only the literal text verbatim.
	prefix, suffix string
	hasWildcard    bool
	// Regex dialect.
	re *regexp.Regexp
}

// Match is the result of a successful Execute: the stem (cook dialect)
// or full submatch list (regex dialect), kept so ReconstructLHS/RHS
// and UsageMask can refer back to it. A Match lives from the instant
// Execute succeeds until the lexical scope that produced it exits —
// callers own that lifetime; Match itself is an ordinary value.
type Match struct {
	dialect Dialect
	whole   string
	// groups[0] is the stem (cook) or the whole match (regex);
	// groups[1:] are numbered backreferences %1../1.. or \1...
	groups []string
}

// Empty is the "verbatim, no rewriting" match-stack entry: an active
// scope with no pattern currently bound. Reconstruct on Empty is the
// identity function.
var Empty = &Match{}

// Compile compiles pat under the given dialect. For the Cook dialect,
// at most one unescaped '%' is permitted in pat; for the Regex
// dialect, pat must be a syntactically valid regular expression.
func Compile(pat string, dialect Dialect, pos cookerr.Position) (*Pattern, error) {
	switch dialect {
	case Regex:
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, cookerr.New(cookerr.KindSemantic, pos,
				"invalid regular expression \"$pat\": $err", "pat", pat, "err", err.Error())
		}
		return &Pattern{dialect: Regex, raw: pat, re: re}, nil
	default:
		idx := strings.IndexByte(pat, '%')
		if idx < 0 {
			return &Pattern{dialect: Cook, raw: pat, prefix: pat}, nil
		}
		if strings.IndexByte(pat[idx+1:], '%') >= 0 {
			return nil, cookerr.New(cookerr.KindSemantic, pos,
				"pattern \"$pat\" has more than one '%' wildcard", "pat", pat)
		}
		return &Pattern{
			dialect:     Cook,
			raw:         pat,
			prefix:      pat[:idx],
			suffix:      pat[idx+1:],
			hasWildcard: true,
		}, nil
	}
}

// Raw returns the original, uncompiled pattern text.
func (p *Pattern) Raw() string { return p.raw }

// Execute attempts to match actual against the compiled pattern,
// returning the captured Match on success. It does not retain actual
// beyond producing the Match's copies of the captured substrings.
func (p *Pattern) Execute(actual string) (*Match, bool) {
	switch p.dialect {
	case Regex:
		sub := p.re.FindStringSubmatch(actual)
		if sub == nil {
			return nil, false
		}
		return &Match{dialect: Regex, whole: actual, groups: sub}, true
	default:
		if !p.hasWildcard {
			if actual == p.prefix {
				return &Match{dialect: Cook, whole: actual, groups: []string{actual}}, true
			}
			return nil, false
		}
		if !strings.HasPrefix(actual, p.prefix) || !strings.HasSuffix(actual, p.suffix) {
			return nil, false
		}
		if len(actual) < len(p.prefix)+len(p.suffix) {
			return nil, false
		}
		stem := actual[len(p.prefix) : len(actual)-len(p.suffix)]
		return &Match{dialect: Cook, whole: actual, groups: []string{stem}}, true
	}
}

// Stem returns the Cook-dialect wildcard capture (group 0), or "" for
// a match with no wildcard / the Empty match.
func (m *Match) Stem() string {
	if m == nil || len(m.groups) == 0 {
		return ""
	}
	return m.groups[0]
}

// Whole returns the full string that was matched.
func (m *Match) Whole() string {
	if m == nil {
		return ""
	}
	return m.whole
}

// ReconstructLHS substitutes this match's captures into an lhs-style
// template: used to transform target names. In the Cook dialect, a
// bare '%' in the template is replaced by the stem, exactly like the
// pattern that produced the match; '%0'..'%9' address backreferences
// in common with the rhs form. In the Regex dialect, '\0'..'\9'
// address FindStringSubmatch groups (\0 is the whole match).
func (m *Match) ReconstructLHS(template string) string {
	return reconstruct(m, template, false)
}

// ReconstructRHS substitutes this match's captures into an rhs-style
// template: used inside recipe bodies to rewrite ingredient tokens.
// The only difference from ReconstructLHS is the Regex dialect's '&'
// sigil, meaning "the whole match", which is rhs-only per the POSIX
// ed/sed convention this dialect imitates.
func (m *Match) ReconstructRHS(template string) string {
	return reconstruct(m, template, true)
}

func reconstruct(m *Match, template string, rhs bool) string {
	if m == nil || m == Empty {
		return template
	}
	var b strings.Builder
	i := 0
	for i < len(template) {
		c := template[i]
		switch {
		case m.dialect == Cook && c == '%':
			if i+1 < len(template) && template[i+1] >= '0' && template[i+1] <= '9' {
				n := int(template[i+1] - '0')
				b.WriteString(groupAt(m, n))
				i += 2
				continue
			}
			b.WriteString(groupAt(m, 0))
			i++
			continue
		case m.dialect == Regex && c == '\\':
			if i+1 < len(template) && template[i+1] >= '0' && template[i+1] <= '9' {
				n := int(template[i+1] - '0')
				b.WriteString(groupAt(m, n))
				i += 2
				continue
			}
			b.WriteByte(c)
			i++
			continue
		case m.dialect == Regex && rhs && c == '&':
			b.WriteString(groupAt(m, 0))
			i++
			continue
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func groupAt(m *Match, n int) string {
	if n < 0 || n >= len(m.groups) {
		return ""
	}
	return m.groups[n]
}

// UsageMask returns a bitset of which backreferences (bit n == "%n" or
// "\n" is read) the template reads; used to decide whether a recipe is
// vacuously applicable (spec.md §4.C).
func UsageMask(dialect Dialect, template string) uint16 {
	var mask uint16
	i := 0
	sigil := byte('%')
	if dialect == Regex {
		sigil = '\\'
	}
	for i < len(template) {
		if template[i] == sigil && i+1 < len(template) && template[i+1] >= '0' && template[i+1] <= '9' {
			n, _ := strconv.Atoi(string(template[i+1]))
			mask |= 1 << uint(n)
			i += 2
			continue
		}
		i++
	}
	return mask
}

// String implements fmt.Stringer for diagnostics and -disassemble
// dumps.
func (p *Pattern) String() string {
	if p.dialect == Regex {
		return fmt.Sprintf("/%s/", p.raw)
	}
	return p.raw
}
