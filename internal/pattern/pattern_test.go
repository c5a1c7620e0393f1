package pattern

import (
	"testing"

	"github.com/mdhender/gocook/internal/cookerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookWildcard(t *testing.T) {
	p, err := Compile("%.o", Cook, cookerr.Position{})
	require.NoError(t, err)

	m, ok := p.Execute("hello.o")
	require.True(t, ok)
	assert.Equal(t, "hello", m.Stem())

	_, ok = p.Execute("hello.c")
	assert.False(t, ok)
}

func TestCookMultipleWildcardRejected(t *testing.T) {
	_, err := Compile("%.%", Cook, cookerr.Position{})
	assert.Error(t, err)
}

func TestReconstructRoundTrip(t *testing.T) {
	// Testable Properties §8.5: reconstruct_lhs after execute(p, s) == s.
	p, err := Compile("%.o", Cook, cookerr.Position{})
	require.NoError(t, err)
	s := "widget.o"
	m, ok := p.Execute(s)
	require.True(t, ok)
	got := m.ReconstructLHS("%.o")
	assert.Equal(t, s, got)
}

func TestReconstructRHSSuffixRule(t *testing.T) {
	p, err := Compile("%.o", Cook, cookerr.Position{})
	require.NoError(t, err)
	m, ok := p.Execute("a.o")
	require.True(t, ok)
	assert.Equal(t, "a.c", m.ReconstructRHS("%.c"))
}

func TestRegexBackrefsAndAmpersand(t *testing.T) {
	p, err := Compile(`^lib(.*)\.a$`, Regex, cookerr.Position{})
	require.NoError(t, err)
	m, ok := p.Execute("libfoo.a")
	require.True(t, ok)
	assert.Equal(t, "foo", m.groups[1])
	assert.Equal(t, "libfoo.a.bak", m.ReconstructRHS("&.bak"))
	assert.Equal(t, "foo.o", m.ReconstructRHS(`\1.o`))
}

func TestUsageMask(t *testing.T) {
	mask := UsageMask(Cook, "%1-%3")
	assert.Equal(t, uint16(1<<1|1<<3), mask)
}

func TestEmptyMatchIsIdentity(t *testing.T) {
	assert.Equal(t, "%.o", Empty.ReconstructLHS("%.o"))
}

func TestMatchStackDiscipline(t *testing.T) {
	var st Stack
	assert.Equal(t, Empty, st.Top())
	p, _ := Compile("%.o", Cook, cookerr.Position{})
	m, _ := p.Execute("a.o")
	st.Push(m)
	assert.Equal(t, "a", st.Top().Stem())
	st.Pop()
	assert.Equal(t, Empty, st.Top())
}
