package vm

import "github.com/mdhender/gocook/internal/strtab"

// registerGraphBuiltins installs the builtins that re-enter the
// dependency graph engine through Context.Host, grounded on
// original_source/src/cook/builtin/{cando,uptodate,cook,
// collect}.c. Host.Cook blocks its calling goroutine until the
// sub-build finishes rather than returning Status Wait to the
// interpreter loop; the scheduler (component G) is responsible for
// running each top-level Context.Run on its own goroutine so this
// blocking is what actually produces the interpreter suspension
// spec.md §3 describes.
func registerGraphBuiltins(scope *Scope) {
	scope.Set("cando", NewBuiltin(biCanDo))
	scope.Set("uptodate", NewBuiltin(biUpToDate))
	scope.Set("cook", NewBuiltin(biCook))
	scope.Set("interior_files", NewBuiltin(biInteriorFiles))
	scope.Set("leaf_files", NewBuiltin(biLeafFiles))
}

func biCanDo(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) != 1 {
		return nil, ctx.diagErr(pos, "cando requires exactly one target", "")
	}
	if ctx.Host == nil {
		return nil, ctx.diagErr(pos, "cando: no host bound to this context", "")
	}
	if ctx.Host.CanDo(flat[0]) {
		return strtab.List{flat[0]}, Success
	}
	return strtab.List{}, Success
}

func biUpToDate(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) != 1 {
		return nil, ctx.diagErr(pos, "uptodate requires exactly one target", "")
	}
	if ctx.Host == nil {
		return nil, ctx.diagErr(pos, "uptodate: no host bound to this context", "")
	}
	if ctx.Host.UpToDate(flat[0]) {
		return strtab.List{flat[0]}, Success
	}
	return strtab.List{}, Success
}

// biCook re-enters the graph engine to build its argument targets
// synchronously (the original's "recurse into cook" builtin), used by
// recipes that need a nested build to finish before continuing.
func biCook(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	if ctx.Host == nil {
		return nil, ctx.diagErr(pos, "cook: no host bound to this context", "")
	}
	var ok strtab.List
	for _, target := range flatten(args) {
		if !ctx.Host.Cook(target) {
			return nil, ctx.diagErr(pos, "cook: failed to build $target", "", "target", target)
		}
		ok = append(ok, target)
	}
	return ok, Success
}

// interior_files and leaf_files classify a recipe's ingredient list
// by whether each ingredient is itself the target of another recipe
// (interior, derived) or has no recipe (leaf, source), per spec.md
// §3's graph-query builtins. Both delegate to the Host's cando check
// as the cheapest available "has a recipe" predicate, since the
// builtin layer has no direct view of the graph's node set.
func biInteriorFiles(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	if ctx.Host == nil {
		return nil, ctx.diagErr(pos, "interior_files: no host bound to this context", "")
	}
	var out strtab.List
	for _, f := range flatten(args) {
		if ctx.Host.CanDo(f) {
			out = append(out, f)
		}
	}
	return out, Success
}

func biLeafFiles(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	if ctx.Host == nil {
		return nil, ctx.diagErr(pos, "leaf_files: no host bound to this context", "")
	}
	var out strtab.List
	for _, f := range flatten(args) {
		if !ctx.Host.CanDo(f) {
			out = append(out, f)
		}
	}
	return out, Success
}
