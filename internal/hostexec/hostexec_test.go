package hostexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunSuccess(t *testing.T) {
	l := Local{Shell: []string{"sh", "-c"}}
	out, ok, err := l.Run("", "echo hi")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out, "hi")
}

func TestLocalRunFailureIsNotAnError(t *testing.T) {
	l := Local{Shell: []string{"sh", "-c"}}
	_, ok, err := l.Run("", "exit 1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalDefaultsShellWhenUnset(t *testing.T) {
	l := Local{}
	out, ok, err := l.Run("", "echo default")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out, "default")
}
