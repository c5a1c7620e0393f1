// Package strtab implements the string interner and the ordered
// word-sequence value that the rest of cook treats as its one runtime
// value type.
//
// Grounded on original_source/src/common/str.h (hash-consed strings
// with reference counts) and common/wstr_list.h (ordered string
// lists), reworked per Design Notes §9: reference counting is
// replaced by Go's GC, and pointer equality on interned strings
// becomes equality of *Str, which the Go runtime already guarantees
// for equal pointers.
package strtab

import (
	"strings"
	"sync"
)

// Str is an interned, immutable byte sequence. Two Str values that
// compare equal by content always share the same pointer; pointer
// comparison is the contract's definition of string equality.
type Str struct {
	text string
	hash uint64
}

// Text returns the underlying bytes.
func (s *Str) Text() string {
	if s == nil {
		return ""
	}
	return s.text
}

// Hash returns the stable hash computed at intern time.
func (s *Str) Hash() uint64 { return s.hash }

func (s *Str) String() string { return s.Text() }

// Table is a hash-consing string table. The zero value is ready to
// use; a Table is safe for concurrent use.
type Table struct {
	mu   sync.Mutex
	rows map[string]*Str
}

// NewTable returns a ready-to-use interning table.
func NewTable() *Table {
	return &Table{rows: make(map[string]*Str)}
}

// Intern copies bytes and returns the canonical *Str for them. Calling
// Intern twice with equal content returns the same pointer.
func (t *Table) Intern(b []byte) *Str {
	return t.InternString(string(b))
}

// InternString is Intern without the extra copy when the caller
// already holds a string.
func (t *Table) InternString(s string) *Str {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.rows[s]; ok {
		return v
	}
	v := &Str{text: s, hash: fnv64a(s)}
	t.rows[s] = v
	return v
}

// Len reports how many distinct strings are currently interned.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

func fnv64a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// Accumulator supports O(n) build-by-append of a string with a single
// final intern, mirroring common/stracc.c.
type Accumulator struct {
	buf strings.Builder
}

// WriteString appends to the accumulator.
func (a *Accumulator) WriteString(s string) { a.buf.WriteString(s) }

// WriteByte appends a single byte.
func (a *Accumulator) WriteByte(b byte) error { return a.buf.WriteByte(b) }

// Reset empties the accumulator for reuse.
func (a *Accumulator) Reset() { a.buf.Reset() }

// Len reports the number of bytes accumulated so far.
func (a *Accumulator) Len() int { return a.buf.Len() }

// Intern finalizes the accumulator into one interned string.
func (a *Accumulator) Intern(t *Table) *Str {
	return t.InternString(a.buf.String())
}
