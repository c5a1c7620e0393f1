package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envSnapshot saves and clears COOK_-prefixed environment variables,
// the same isolation beads's config_test.go uses for its own prefix.
func envSnapshot(t *testing.T) func() {
	t.Helper()
	saved := make(map[string]string)
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "COOK_") {
			parts := strings.SplitN(env, "=", 2)
			saved[parts[0]] = os.Getenv(parts[0])
			os.Unsetenv(parts[0])
		}
	}
	return func() {
		for k := range saved {
			os.Unsetenv(k)
		}
		for k, val := range saved {
			os.Setenv(k, val)
		}
	}
}

func TestInitializeDefaults(t *testing.T) {
	defer envSnapshot(t)()
	require.NoError(t, Initialize())
	assert.Equal(t, 1, Parallelism())
	assert.Equal(t, []string{"sh", "-c"}, Shell())
	assert.True(t, Meter())
}

func TestEnvironmentOverridesDefault(t *testing.T) {
	defer envSnapshot(t)()
	os.Setenv("COOK_PARALLELISM", "4")
	require.NoError(t, Initialize())
	assert.Equal(t, 4, Parallelism())
}
