package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintFileRoundTrip(t *testing.T) {
	// Testable Properties §8.4: calling fingerprint_file twice with no
	// intervening content change yields the same string.
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello world"), 0o644))

	fp1, err := FingerprintFile(p)
	require.NoError(t, err)
	fp2, err := FingerprintFile(p)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.NotEmpty(t, fp1)
}

func TestFingerprintDirectoryOrderInvariant(t *testing.T) {
	dirA := t.TempDir()
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dirA, name), nil, 0o644))
	}
	fp1, err := FingerprintFile(dirA)
	require.NoError(t, err)

	dirB := t.TempDir()
	for _, name := range []string{"c", "b", "a"} {
		require.NoError(t, os.WriteFile(filepath.Join(dirB, name), nil, 0o644))
	}
	fp2, err := FingerprintFile(dirB)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2, "directory fingerprint must not depend on listing order")
}

func TestMissingFileFingerprintsToEmpty(t *testing.T) {
	fp, err := FingerprintFile(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, fp)
}

func TestCacheAuthoritativeOnUnchangedMtime(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(p, []byte("v1"), 0o644))

	m := NewManager()
	fp1, err := m.FileFingerprint(p)
	require.NoError(t, err)

	// Corrupt the cached content_fp directly; if the cache is truly
	// authoritative when stat_mtime matches, FileFingerprint must
	// return the corrupted value rather than rereading the file.
	v, ok := m.Lookup(p)
	require.True(t, ok)
	v.ContentFP = "corrupted"
	m.Assign(p, v)

	fp2, err := m.FileFingerprint(p)
	require.NoError(t, err)
	assert.Equal(t, "corrupted", fp2)
	assert.NotEqual(t, fp1, fp2)
}

func TestIngredientsFingerprintDiffers(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	target := filepath.Join(dir, "out")

	// No prior entry counts as "no difference" but is still stored.
	differed := m.IngredientsFingerprintDiffers(target, "fp1")
	assert.False(t, differed)

	differed = m.IngredientsFingerprintDiffers(target, "fp1")
	assert.False(t, differed)

	differed = m.IngredientsFingerprintDiffers(target, "fp2")
	assert.True(t, differed)

	v, ok := m.Lookup(target)
	require.True(t, ok)
	assert.Equal(t, "fp2", v.IngredientsFP)
}

func TestCacheSerializeDeserializeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.o")
	require.NoError(t, os.WriteFile(p, []byte("object"), 0o644))

	m := NewManager()
	_, err := m.FileFingerprint(p)
	require.NoError(t, err)
	m.IngredientsFingerprintDiffers(p, "ingfp")
	require.Empty(t, m.Flush())

	m2 := NewManager()
	v1, ok1 := m.Lookup(p)
	v2, ok2 := m2.Lookup(p)
	require.True(t, ok1)
	require.True(t, ok2)
	if diff := cmp.Diff(v1.ContentFP, v2.ContentFP); diff != "" {
		t.Errorf("content fp mismatch after reload (-want +got):\n%s", diff)
	}
	assert.Equal(t, v1.IngredientsFP, v2.IngredientsFP)
}

func TestFlushIsAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x")
	require.NoError(t, os.WriteFile(p, []byte("1"), 0o644))

	m := NewManager()
	_, err := m.FileFingerprint(p)
	require.NoError(t, err)
	require.Empty(t, m.Flush())

	info, err := os.Stat(filepath.Join(dir, CacheFileName))
	require.NoError(t, err)
	assert.False(t, info.ModTime().After(time.Now().Add(time.Second)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
