//go:build unix

package toolexec

import (
	"os/exec"
	"syscall"
)

// detach starts the tool in its own process group so a terminal Ctrl-C,
// which signals the whole foreground group, reaches ecbatch but not the
// tool. ecbatch then stops handing out work and lets the tool finish.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
