// Package cookerr implements the propagating status model that
// replaces the original C implementation's fatal_intl()/longjmp
// control flow (Design Notes §9): every operation that can fail
// returns a Status alongside its result, and a *Diagnostic carries the
// position and templated message for anything worth reporting to the
// user.
package cookerr

import (
	"fmt"
	"strings"
)

// Status is the uniform propagation value threaded through the
// opcode interpreter, the graph builder, and the scheduler.
type Status int

const (
	// Success: the operation completed and produced a usable result.
	Success Status = iota
	// Backtrack: the operation failed in a way the caller asked to be
	// allowed to retry a different way (graph builder only).
	Backtrack
	// Error: the operation failed outright.
	Error
	// Interrupt: the user's desist flag was observed.
	Interrupt
	// Wait: the operation is suspended pending an external event
	// (child process exit, subordinate graph walk).
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

// Kind classifies a Diagnostic per spec.md §7.
type Kind int

const (
	KindParse Kind = iota
	KindSemantic
	KindGraph
	KindRuntime
	KindCommand
	KindIO
	KindInterrupt
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindSemantic:
		return "semantic error"
	case KindGraph:
		return "graph error"
	case KindRuntime:
		return "runtime error"
	case KindCommand:
		return "command error"
	case KindIO:
		return "I/O error"
	case KindInterrupt:
		return "interrupt"
	default:
		return "error"
	}
}

// Position is (logical_filename, line_number, single_vs_double_colon)
// from the data model, carried on every diagnostic and every compiled
// opcode so messages stay accurate under #include redirection.
type Position struct {
	File      string
	Line      int
	DoubleColon bool
}

func (p Position) String() string {
	if p.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Diagnostic is a single user-visible error or warning.
type Diagnostic struct {
	Kind Kind
	Pos  Position
	// Template is a message with $name placeholders; Vars supplies
	// the substitutions, mirroring the original's sub_context
	// mechanism (spec.md §7) without pulling in a full message
	// catalogue (out of scope per spec.md §1).
	Template string
	Vars     map[string]string
	// Suggestion holds a fuzzy-match "did you mean" hint for unknown
	// identifiers, when one was found.
	Suggestion string
}

// New builds a Diagnostic from a template and substitution pairs,
// e.g. New(KindSemantic, pos, "unknown identifier $name", "name", id).
func New(kind Kind, pos Position, template string, kv ...string) *Diagnostic {
	vars := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		vars[kv[i]] = kv[i+1]
	}
	return &Diagnostic{Kind: kind, Pos: pos, Template: template, Vars: vars}
}

// Error renders the substituted message, implementing the error
// interface so a *Diagnostic can flow through normal Go error
// handling at package boundaries that don't care about Status.
func (d *Diagnostic) Error() string {
	msg := d.Template
	for k, v := range d.Vars {
		msg = strings.ReplaceAll(msg, "$"+k, v)
	}
	var b strings.Builder
	if d.Pos.File != "" {
		b.WriteString(d.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(d.Kind.String())
	b.WriteString(": ")
	b.WriteString(msg)
	if d.Suggestion != "" {
		b.WriteString(" (did you mean \"")
		b.WriteString(d.Suggestion)
		b.WriteString("\"?)")
	}
	return b.String()
}

// Result is the common return shape: a Status plus, when Status is
// Error, the Diagnostic explaining why.
type Result struct {
	Status Status
	Diag   *Diagnostic
}

// Ok is the zero-cost success Result.
var Ok = Result{Status: Success}

// Err wraps a Diagnostic as an Error-status Result.
func Err(d *Diagnostic) Result { return Result{Status: Error, Diag: d} }

// Collector gathers parse errors so they can all be reported at the
// end of parsing (spec.md §7: "Parse errors are collected and
// reported at the end of parsing; Cook exits without building.").
type Collector struct {
	diags []*Diagnostic
}

func (c *Collector) Add(d *Diagnostic) { c.diags = append(c.diags, d) }

func (c *Collector) Empty() bool { return len(c.diags) == 0 }

func (c *Collector) All() []*Diagnostic { return c.diags }

func (c *Collector) Error() string {
	lines := make([]string, len(c.diags))
	for i, d := range c.diags {
		lines[i] = d.Error()
	}
	return strings.Join(lines, "\n")
}
