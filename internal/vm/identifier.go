// Package vm implements the expression/opcode interpreter (component
// D): a small stack-based bytecode form compiled from the cookbook's
// expression and statement trees, and the cooperative interpreter that
// runs it.
//
// Grounded on original_source/src/cook/id.c and id/{variable,function,
// builtin,nothing}.c for the Identifier sum type, cook/opcode.c and
// opcode/*.c for the instruction set, and cook/opcode/context.h for
// the frame/value-stack execution context shape. The teacher's own
// expand.go plays the equivalent role for mkfile's much smaller
// expansion language; this package generalizes that idea to a
// Turing-complete language with user functions per spec.md §4.D, per
// Design Notes §9 ("model as sum types with an explicit kind
// discriminator... Global singletons... collect into a single
// 'runtime' context passed by reference").
package vm

import (
	"fmt"

	"github.com/mdhender/gocook/internal/strtab"
)

// IdentKind discriminates the four Identifier variants from the data
// model.
type IdentKind int

const (
	IdentVariable IdentKind = iota
	IdentFunction
	IdentBuiltin
	IdentNothing
)

// Builtin is a native operation: (name, args, position, ctx) ->
// (result, status).
type Builtin func(name string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status)

// Identifier is a name bound in a scope to one of the four variants.
type Identifier struct {
	Kind IdentKind

	// IdentVariable
	Value strtab.List

	// IdentFunction
	Body       *OpList
	ReturnName string

	// IdentBuiltin
	Native Builtin
}

// NewVariable wraps a value as a variable identifier.
func NewVariable(v strtab.List) *Identifier { return &Identifier{Kind: IdentVariable, Value: v} }

// NewFunction wraps a compiled opcode list as a user-function
// identifier.
func NewFunction(body *OpList) *Identifier { return &Identifier{Kind: IdentFunction, Body: body} }

// NewBuiltin wraps a native Go function as a builtin identifier.
func NewBuiltin(fn Builtin) *Identifier { return &Identifier{Kind: IdentBuiltin, Native: fn} }

// Nothing is the defined-but-empty binding `set` declarations install.
var Nothing = &Identifier{Kind: IdentNothing}

func (id *Identifier) String() string {
	switch id.Kind {
	case IdentVariable:
		return fmt.Sprintf("variable(%v)", id.Value)
	case IdentFunction:
		return "function(...)"
	case IdentBuiltin:
		return "builtin(...)"
	default:
		return "nothing"
	}
}

// Scope is a single mapping of name -> *Identifier. The global scope
// is one Scope; a call introduces a local Scope held in Frame.Locals.
// Context.lookup searches the innermost frame's locals, then the
// global scope (where the builtins are also bound), per spec.md §3.
type Scope struct {
	vars map[string]*Identifier
}

// NewScope returns an empty, ready scope.
func NewScope() *Scope { return &Scope{vars: make(map[string]*Identifier)} }

// Get looks up name directly in this scope only (no chaining).
func (s *Scope) Get(name string) (*Identifier, bool) {
	id, ok := s.vars[name]
	return id, ok
}

// Set binds name to id in this scope.
func (s *Scope) Set(name string, id *Identifier) {
	s.vars[name] = id
}

// Names returns every bound name, used for fuzzy-match suggestions.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.vars))
	for n := range s.vars {
		out = append(out, n)
	}
	return out
}

// Delete unbinds name.
func (s *Scope) Delete(name string) { delete(s.vars, name) }
