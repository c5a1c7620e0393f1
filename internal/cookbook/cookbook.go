package cookbook

import (
	"fmt"

	"github.com/mdhender/gocook/internal/vm"
)

// Load installs a parsed Program's functions and runs its top-level
// assignments against ctx, in that order so a function body can
// already see its own name bound before any top-level variable
// initializer that might reference it runs (mirrors a C program's
// forward-declared-functions-first loading).
func Load(ctx *vm.Context, prog *Program) error {
	for name, body := range prog.Functions {
		ctx.Global.Set(name, vm.NewFunction(body))
	}
	if prog.Init == nil {
		return nil
	}
	status := ctx.Run(prog.Init, vm.Position{})
	if status != vm.Success {
		if ctx.LastDiagnostic != nil {
			return ctx.LastDiagnostic
		}
		return fmt.Errorf("cookbook: top-level initialization ended with status %s", status)
	}
	return nil
}

// Merge folds other's recipes, functions, and init statements into p,
// used once a #include-cooked target has been built and re-parsed.
func (p *Program) Merge(other *Program) {
	for name, body := range other.Functions {
		p.Functions[name] = body
	}
	for _, r := range other.Store.Recipes {
		p.Store.Add(r)
	}
	p.Init.Ops = append(p.Init.Ops, other.Init.Ops...)
	p.CookedInclude = append(p.CookedInclude, other.CookedInclude...)
}
