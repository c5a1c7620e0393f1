package vm

import (
	"os"
	"runtime"
	"strings"

	"github.com/mdhender/gocook/internal/strtab"
)

// registerEnvBuiltins installs process-environment and host-identity
// builtins, grounded on original_source/src/cook/builtin/{getenv,
// setenv,hostbind,os}.c.
func registerEnvBuiltins(scope *Scope) {
	scope.Set("getenv", NewBuiltin(biGetenv))
	scope.Set("setenv", NewBuiltin(biSetenv))
	scope.Set("environment", NewBuiltin(biEnvironment))
	scope.Set("hostname", NewBuiltin(biHostname))
	scope.Set("os", NewBuiltin(biOS))
	scope.Set("arch", NewBuiltin(biArch))
}

func biGetenv(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) != 1 {
		return nil, ctx.diagErr(pos, "getenv requires exactly one variable name", "")
	}
	v, ok := os.LookupEnv(flat[0])
	if !ok {
		return strtab.List{}, Success
	}
	return strtab.List{v}, Success
}

func biSetenv(_ string, args []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	flat := flatten(args)
	if len(flat) < 1 {
		return nil, ctx.diagErr(pos, "setenv requires a variable name", "")
	}
	value := ""
	if len(flat) > 1 {
		value = strings.Join(flat[1:], " ")
	}
	if err := os.Setenv(flat[0], value); err != nil {
		return nil, ctx.diagErr(pos, "setenv: $err", "", "err", err.Error())
	}
	return strtab.List{}, Success
}

func biEnvironment(_ string, _ []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	return strtab.List(os.Environ()), Success
}

func biHostname(_ string, _ []strtab.List, pos Position, ctx *Context) (strtab.List, Status) {
	h, err := os.Hostname()
	if err != nil {
		return nil, ctx.diagErr(pos, "hostname: $err", "", "err", err.Error())
	}
	return strtab.List{h}, Success
}

func biOS(_ string, _ []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	return strtab.List{runtime.GOOS}, Success
}

func biArch(_ string, _ []strtab.List, _ Position, _ *Context) (strtab.List, Status) {
	return strtab.List{runtime.GOARCH}, Success
}
