package vm

import "github.com/mdhender/gocook/internal/strtab"

// registerIntrospectBuiltins installs builtins that report the
// interpreter's own state rather than touching the filesystem or a
// subprocess, grounded on original_source/src/cook/builtin/{file_line,
// defined,thread_id}.c.
func registerIntrospectBuiltins(scope *Scope) {
	scope.Set("defined", NewBuiltin(biDefined))
	scope.Set("thread-id", NewBuiltin(biThreadID))
	scope.Set("__FILE__", NewBuiltin(biFile))
	scope.Set("__LINE__", NewBuiltin(biLine))
}

// biDefined reports whether its single argument names a bound
// identifier, checking the same local-then-global scope chain Context
// lookup uses.
func biDefined(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) != 1 {
		return nil, ctx.diagErr(pos, "defined requires exactly one name", "")
	}
	if id, _ := ctx.lookup(flat[0]); id != nil {
		return strtab.List{"true"}, Success
	}
	return strtab.List{}, Success
}

func biThreadID(_ string, _ []strtab.List, _ Position, ctx *Context) (strtab.List, Status) {
	return strtab.List{itoa(ctx.ThreadID)}, Success
}

func biFile(_ string, _ []strtab.List, pos Position, _ *Context) (strtab.List, Status) {
	return strtab.List{pos.File}, Success
}

func biLine(_ string, _ []strtab.List, pos Position, _ *Context) (strtab.List, Status) {
	return strtab.List{itoa(pos.Line)}, Success
}
