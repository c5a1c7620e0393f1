// Package hostexec implements the external remote-exec hook
// SPEC_FULL.md §3.1 adds: a Dispatcher abstraction so a recipe's
// HostBinding attribute can route its command to either a local
// subprocess or a named remote host via AWS Systems Manager, wiring
// the teacher's otherwise-unused aws-sdk-go dependency into a concrete
// cookbook feature.
package hostexec

import (
	"os/exec"
)

// Dispatcher runs a shell command line against whatever host key
// identifies, returning its combined output and whether it exited
// zero.
type Dispatcher interface {
	Run(hostKey, line string) (output string, ok bool, err error)
}

// Local runs every command on the machine cook itself is running on,
// via os/exec, ignoring hostKey.
type Local struct {
	Shell []string // defaults to {"sh", "-c"} when empty
}

func (l Local) Run(_ string, line string) (string, bool, error) {
	shell := l.Shell
	if len(shell) == 0 {
		shell = []string{"sh", "-c"}
	}
	cmd := exec.Command(shell[0], append(append([]string{}, shell[1:]...), line)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			return string(out), false, nil
		}
		return string(out), false, err
	}
	return string(out), true, nil
}
