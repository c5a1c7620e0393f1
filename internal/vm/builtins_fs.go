package vm

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/mdhender/gocook/internal/strtab"
)

// registerFSBuiltins installs filesystem-predicate and path builtins,
// grounded on original_source/src/cook/builtin/{exists,dirname,glob,
// resolve,readlink,mkdir}.c.
func registerFSBuiltins(scope *Scope) {
	scope.Set("exists", NewBuiltin(biExists))
	scope.Set("file_exists", NewBuiltin(biExists))
	scope.Set("dirname", NewBuiltin(biDirname))
	scope.Set("resolve", NewBuiltin(biResolve))
	scope.Set("reldir", NewBuiltin(biReldir))
	scope.Set("readlink", NewBuiltin(biReadlink))
	scope.Set("home", NewBuiltin(biHome))
	scope.Set("glob", NewBuiltin(biGlob))
	scope.Set("mkdir", NewBuiltin(biMkdir))
}

func statModTime(path string) (sec, nsec int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	mt := info.ModTime()
	return mt.Unix(), int64(mt.Nanosecond()), nil
}

func biExists(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	var out strtab.List
	for _, w := range flatten(args) {
		if _, err := os.Stat(w); err == nil {
			out = append(out, w)
		}
	}
	return out, Success
}

func biResolve(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	out := make(strtab.List, 0, len(flatten(args)))
	for _, w := range flatten(args) {
		abs, err := filepath.Abs(w)
		if err != nil {
			return nil, ctx.diagErr(pos, "resolve: $err", "", "err", err.Error())
		}
		out = append(out, abs)
	}
	return out, Success
}

// biReldir expresses each path after the first argument relative to
// that first argument (the base directory), the supplemented "reldir"
// builtin from spec.md §4. A path filepath.Rel cannot relate to the
// base is returned unchanged.
func biReldir(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) < 2 {
		return nil, ctx.diagErr(pos, "reldir requires base and a path list", "")
	}
	base, rest := flat[0], flat[1:]
	out := make(strtab.List, 0, len(rest))
	for _, w := range rest {
		rel, err := filepath.Rel(base, w)
		if err != nil {
			rel = w
		}
		out = append(out, rel)
	}
	return out, Success
}

func biReadlink(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	out := make(strtab.List, 0, len(flatten(args)))
	for _, w := range flatten(args) {
		target, err := os.Readlink(w)
		if err != nil {
			out = append(out, w)
			continue
		}
		out = append(out, target)
	}
	return out, Success
}

func biHome(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) == 0 {
		if h, err := os.UserHomeDir(); err == nil {
			return strtab.List{h}, Success
		}
		return strtab.List{}, Success
	}
	u, err := user.Lookup(flat[0])
	if err != nil {
		return strtab.List{}, Success
	}
	return strtab.List{u.HomeDir}, Success
}

func biGlob(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	var out strtab.List
	for _, pat := range flatten(args) {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, ctx.diagErr(pos, "glob: $err", "", "err", err.Error())
		}
		out = append(out, matches...)
	}
	return out, Success
}

func biMkdir(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	for _, dir := range flatten(args) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ctx.diagErr(pos, "mkdir: $err", "", "err", err.Error())
		}
	}
	return strtab.List{}, Success
}
