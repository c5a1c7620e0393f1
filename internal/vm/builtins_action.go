package vm

import (
	"fmt"
	"os"

	"github.com/mdhender/gocook/internal/strtab"
)

// registerActionBuiltins installs builtins with an observable side
// effect: running a command and collecting its output, printing
// diagnostics, and reading file contents, grounded on
// original_source/src/cook/builtin/{execute,collect,read,print,
// error,fail}.c.
func registerActionBuiltins(scope *Scope) {
	scope.Set("execute", NewBuiltin(biExecute))
	scope.Set("collect", NewBuiltin(biCollect))
	scope.Set("read", NewBuiltin(biRead))
	scope.Set("print", NewBuiltin(biPrint))
	scope.Set("error", NewBuiltin(biError))
	scope.Set("fail", NewBuiltin(biFailBuiltin))
}

// biExecute runs its argument word list as a command and discards
// its output, returning non-empty (true) iff it exited zero.
func biExecute(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	if ctx.Host == nil {
		return nil, ctx.diagErr(pos, "execute: no host bound to this context", "")
	}
	line := flatten(args).Join(" ")
	_, ok, err := ctx.Host.RunCommand("", line)
	if err != nil {
		return nil, ctx.diagErr(pos, "execute: $err", "", "err", err.Error())
	}
	if !ok {
		return strtab.List{}, Success
	}
	return strtab.List{"true"}, Success
}

// biCollect runs its argument word list as a command and returns its
// standard output split into words, the cookbook idiom for embedding
// a subprocess's result in an expression (e.g. `[collect uname -m]`).
func biCollect(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	if ctx.Host == nil {
		return nil, ctx.diagErr(pos, "collect: no host bound to this context", "")
	}
	line := flatten(args).Join(" ")
	out, ok, err := ctx.Host.RunCommand("", line)
	if err != nil {
		return nil, ctx.diagErr(pos, "collect: $err", "", "err", err.Error())
	}
	if !ok {
		return nil, ctx.diagErr(pos, "collect: command exited non-zero: $cmd", "", "cmd", line)
	}
	return strtab.List(splitWords(out)), Success
}

func splitWords(s string) []string {
	var out []string
	var cur []byte
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = nil
		}
	}
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			flush()
			continue
		}
		cur = append(cur, string(r)...)
	}
	flush()
	return out
}

func biRead(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) != 1 {
		return nil, ctx.diagErr(pos, "read requires exactly one path", "")
	}
	b, err := os.ReadFile(flat[0])
	if err != nil {
		return nil, ctx.diagErr(pos, "read: $err", "", "err", err.Error())
	}
	return strtab.List(splitWords(string(b))), Success
}

func biPrint(_ string, args []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	fmt.Println(flatten(args).Join(" "))
	return strtab.List{}, Success
}

func biError(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	return nil, ctx.diagErr(pos, "$msg", "", "msg", flatten(args).Join(" "))
}

func biFailBuiltin(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	return nil, ctx.diagErr(pos, "$msg", "", "msg", flatten(args).Join(" "))
}
