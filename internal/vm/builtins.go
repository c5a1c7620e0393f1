package vm

// RegisterBuiltins installs the builtin functions defined in
// builtins_*.go into scope, so cookbook expressions can call them by
// name. They are split across those files by category, mirroring the
// original's builtin/*.c file-per-builtin layout; a name not
// registered by one of the register* functions below is not a builtin.
func RegisterBuiltins(scope *Scope) {
	registerStringBuiltins(scope)
	registerFSBuiltins(scope)
	registerEnvBuiltins(scope)
	registerGraphBuiltins(scope)
	registerActionBuiltins(scope)
	registerIntrospectBuiltins(scope)
	registerExprBuiltin(scope)
}
