package vm

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mdhender/gocook/internal/strtab"
)

// registerStringBuiltins installs word-list manipulation builtins,
// grounded on original_source/src/cook/builtin/{words,substr,match,
// sort,addprefix,stringify}.c.
func registerStringBuiltins(scope *Scope) {
	scope.Set("words", NewBuiltin(biWords))
	scope.Set("word", NewBuiltin(biWord))
	scope.Set("substr", NewBuiltin(biSubstr))
	scope.Set("stringset", NewBuiltin(biStringset))
	scope.Set("sort", NewBuiltin(biSort))
	scope.Set("sort_newest", NewBuiltin(biSortNewest))
	scope.Set("addprefix", NewBuiltin(biAddprefix))
	scope.Set("addsuffix", NewBuiltin(biAddsuffix))
	scope.Set("basename", NewBuiltin(biBasename))
	scope.Set("suffix", NewBuiltin(biSuffix))
	scope.Set("stringify", NewBuiltin(biStringify))
	scope.Set("unstringify", NewBuiltin(biUnstringify))
}

func flatten(args []strtab.List) strtab.List {
	var out strtab.List
	for _, a := range args {
		out = append(out, a...)
	}
	return out
}

func biWords(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	words := flatten(args)
	if len(words) < 2 {
		return nil, ctx.diagErr(pos, "words requires at least a list and a starting index", "")
	}
	return strtab.List{strconv.Itoa(len(words) - 1)}, Success
}

func biWord(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) < 1 {
		return nil, ctx.diagErr(pos, "word requires an index", "")
	}
	n, err := strconv.Atoi(flat[0])
	if err != nil {
		return nil, ctx.diagErr(pos, "word index must be numeric", "")
	}
	rest := flat[1:]
	if n < 0 || n >= len(rest) {
		return strtab.List{}, Success
	}
	return strtab.List{rest[n]}, Success
}

func biSubstr(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) < 3 {
		return nil, ctx.diagErr(pos, "substr requires string, start, length", "")
	}
	s := flat[0]
	start, err1 := strconv.Atoi(flat[1])
	length, err2 := strconv.Atoi(flat[2])
	if err1 != nil || err2 != nil {
		return nil, ctx.diagErr(pos, "substr start/length must be numeric", "")
	}
	if start < 1 {
		start = 1
	}
	start--
	if start > len(s) {
		start = len(s)
	}
	end := start + length
	if length < 0 || end > len(s) {
		end = len(s)
	}
	return strtab.List{s[start:end]}, Success
}

func biStringset(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	seen := make(map[string]bool)
	var out strtab.List
	for _, w := range flatten(args) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out, Success
}

func biSort(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	out := append(strtab.List{}, flatten(args)...)
	sort.Strings(out)
	return out, Success
}

// biSortNewest orders its word list by filesystem mtime, newest
// first, per spec.md §4's supplemented "sort_newest" builtin. Missing
// files sort last.
func biSortNewest(_ string, args []strtab.List, _ Position, ctx *Context) (strtab.List, Status) {
	words := append(strtab.List{}, flatten(args)...)
	type stamped struct {
		name string
		sec  int64
		nsec int64
		ok   bool
	}
	rows := make([]stamped, len(words))
	for i, w := range words {
		sec, nsec, err := statModTime(w)
		rows[i] = stamped{name: w, sec: sec, nsec: nsec, ok: err == nil}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ok != rows[j].ok {
			return rows[i].ok
		}
		if rows[i].sec != rows[j].sec {
			return rows[i].sec > rows[j].sec
		}
		return rows[i].nsec > rows[j].nsec
	})
	out := make(strtab.List, len(rows))
	for i, r := range rows {
		out[i] = r.name
	}
	return out, Success
}

func biAddprefix(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) < 1 {
		return nil, ctx.diagErr(pos, "addprefix requires a prefix", "")
	}
	prefix, rest := flat[0], flat[1:]
	out := make(strtab.List, len(rest))
	for i, w := range rest {
		out[i] = prefix + w
	}
	return out, Success
}

func biAddsuffix(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) < 1 {
		return nil, ctx.diagErr(pos, "addsuffix requires a suffix", "")
	}
	suffix, rest := flat[0], flat[1:]
	out := make(strtab.List, len(rest))
	for i, w := range rest {
		out[i] = w + suffix
	}
	return out, Success
}

func biBasename(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	out := make(strtab.List, 0, len(flatten(args)))
	for _, w := range flatten(args) {
		idx := strings.LastIndexByte(w, '/')
		name := w
		if idx >= 0 {
			name = w[idx+1:]
		}
		if dot := strings.LastIndexByte(name, '.'); dot > 0 {
			name = name[:dot]
		}
		out = append(out, name)
	}
	return out, Success
}

func biDirname(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	out := make(strtab.List, 0, len(flatten(args)))
	for _, w := range flatten(args) {
		idx := strings.LastIndexByte(w, '/')
		if idx < 0 {
			out = append(out, ".")
			continue
		}
		if idx == 0 {
			out = append(out, "/")
			continue
		}
		out = append(out, w[:idx])
	}
	return out, Success
}

func biSuffix(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	out := make(strtab.List, 0, len(flatten(args)))
	for _, w := range flatten(args) {
		if dot := strings.LastIndexByte(w, '.'); dot >= 0 {
			out = append(out, w[dot:])
			continue
		}
		out = append(out, "")
	}
	return out, Success
}

func biStringify(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	return strtab.List{strconv.Quote(flatten(args).Join(" "))}, Success
}

func biUnstringify(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) != 1 {
		return nil, ctx.diagErr(pos, "unstringify requires exactly one quoted word", "")
	}
	s, err := strconv.Unquote(flat[0])
	if err != nil {
		return nil, ctx.diagErr(pos, "unstringify: invalid quoted string", "")
	}
	return strtab.List{s}, Success
}
