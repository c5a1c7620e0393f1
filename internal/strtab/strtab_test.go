package strtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIsPointerEqual(t *testing.T) {
	tab := NewTable()
	a := tab.InternString("hello.o")
	b := tab.InternString("hello.o")
	require.Same(t, a, b)
	assert.Equal(t, a.Hash(), b.Hash())

	c := tab.InternString("hello.c")
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, tab.Len())
}

func TestAccumulator(t *testing.T) {
	tab := NewTable()
	var acc Accumulator
	acc.WriteString("foo")
	acc.WriteString("bar")
	s := acc.Intern(tab)
	assert.Equal(t, "foobar", s.Text())

	acc.Reset()
	assert.Equal(t, 0, acc.Len())
}

func TestListTruth(t *testing.T) {
	assert.False(t, List(nil).Truth())
	assert.False(t, List{""}.Truth())
	assert.False(t, List{"a", ""}.Truth())
	assert.True(t, List{"a", "b"}.Truth())
}

func TestCatenate(t *testing.T) {
	cases := []struct {
		left, right, want List
	}{
		{nil, List{"a"}, List{"a"}},
		{List{"a"}, nil, List{"a"}},
		{List{"a", "b"}, List{"c", "d"}, List{"a", "bc", "d"}},
		{List{"a"}, List{"b"}, List{"ab"}},
	}
	for _, c := range cases {
		got := Catenate(c.left, c.right)
		assert.Equal(t, c.want, got)
	}
}

func TestStackFrames(t *testing.T) {
	var s Stack
	s.Push()
	s.AppendTop("a", "b")
	assert.Equal(t, List{"a", "b"}, s.Top())
	s.Push()
	s.AppendTop("c")
	assert.Equal(t, List{"c"}, s.Pop())
	assert.Equal(t, List{"a", "b"}, s.Pop())
	assert.Equal(t, 0, s.Depth())
}
