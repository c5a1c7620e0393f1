package fingerprint

import (
	"errors"
	"io"
	"os"
	"sort"
)

// FingerprintFile implements fp_fingerprint(path): reads the file
// bytes and composes their fingerprint. If path names a directory, it
// reads the entry names, sorts them lexically, and feeds NUL-separated
// names into the hash instead of file contents (spec.md §4.B). A
// missing file returns ("", nil); any other I/O failure is returned as
// an error, which callers must treat as fatal per spec.md §4.B.
func FingerprintFile(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	c := NewComposed()
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return "", err
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		sort.Strings(names)
		for _, n := range names {
			c.addn([]byte(n))
			c.addn([]byte{0})
		}
		return c.Sum(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(c, f); err != nil {
		return "", err
	}
	return c.Sum(), nil
}
