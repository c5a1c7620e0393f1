package fingerprint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CacheFileName is the per-directory cache file, named by the
// convention spec.md §6 documents.
const CacheFileName = ".cook.fp"

// Value is the fingerprint record for one path, per the data model:
// (oldest, newest, stat_mtime, content_fp, ingredients_fp). oldest and
// newest bracket the times at which this content hash was observed;
// stat_mtime is what the filesystem reported last time it was
// checked. The invariant the cache exists to exploit: if StatMtime
// equals the file's current on-disk mtime, ContentFP is authoritative
// and the file need not be rehashed.
type Value struct {
	Oldest        time.Time
	Newest        time.Time
	StatMtime     time.Time
	ContentFP     string
	IngredientsFP string // empty if never recorded
	// Extra holds the sixth on-disk field (the one just before the
	// filename) verbatim, so a field this implementation doesn't
	// otherwise interpret survives a rewrite. Only that one field is
	// kept; a line with further fields has them read as part of the
	// filename.
	Extra string
}

// dirCache is the in-memory, lazily-loaded state for one directory's
// cache file.
type dirCache struct {
	mu      sync.Mutex
	path    string // directory this cache covers
	loaded  bool
	dirty   bool
	entries map[string]Value // filename -> value
	order   []string         // preserves first-seen order for stable rewrites
}

func unixNano(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseUnixNano(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (d *dirCache) load() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return
	}
	d.loaded = true
	d.entries = make(map[string]Value)

	f, err := os.Open(filepath.Join(d.path, CacheFileName))
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 7 {
			continue
		}
		v := Value{
			Oldest:    parseUnixNano(fields[0]),
			Newest:    parseUnixNano(fields[1]),
			StatMtime: parseUnixNano(fields[2]),
			ContentFP: fields[3],
		}
		if fields[4] != "-" {
			v.IngredientsFP = fields[4]
		}
		if fields[5] != "-" {
			v.Extra = fields[5]
		}
		name := strings.Join(fields[6:], " ")
		if _, exists := d.entries[name]; !exists {
			d.order = append(d.order, name)
		}
		d.entries[name] = v
	}
}

func (d *dirCache) get(name string) (Value, bool) {
	d.load()
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.entries[name]
	return v, ok
}

func (d *dirCache) set(name string, v Value) {
	d.load()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[name]; !exists {
		d.order = append(d.order, name)
	}
	d.entries[name] = v
	d.dirty = true
}

func (d *dirCache) delete(name string) {
	d.load()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[name]; exists {
		delete(d.entries, name)
		for i, n := range d.order {
			if n == name {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
		d.dirty = true
	}
}

// serialize renders the cache in the on-disk line format:
// "oldest newest stat_mtime content_fp ingredients_fp extra filename".
// ingredients_fp and extra use "-" as the absent sentinel so a
// fixed-width prefix can always be parsed before the (possibly
// space-containing) filename.
func (d *dirCache) serialize() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	for _, name := range d.order {
		v, ok := d.entries[name]
		if !ok {
			continue
		}
		ing := v.IngredientsFP
		if ing == "" {
			ing = "-"
		}
		extra := v.Extra
		if extra == "" {
			extra = "-"
		}
		fmt.Fprintf(&b, "%s %s %s %s %s %s %s\n",
			unixNano(v.Oldest), unixNano(v.Newest), unixNano(v.StatMtime),
			v.ContentFP, ing, extra, name)
	}
	return []byte(b.String())
}
