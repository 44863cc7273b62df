//go:build !windows

package runner

import (
	"fmt"
	"os/exec"
	"syscall"
)

// processGroup terminates a POSIX process group rooted at a spawned
// child, via the negative of its PID.
type processGroup struct {
	pgid int
}

func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func processGroupOf(c *exec.Cmd) processGroup {
	return processGroup{pgid: c.Process.Pid}
}

func (g processGroup) signalTerm() error {
	if err := syscall.Kill(-g.pgid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("runner: SIGTERM process group %d: %w", g.pgid, err)
	}
	return nil
}

func (g processGroup) kill() error {
	if err := syscall.Kill(-g.pgid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("runner: SIGKILL process group %d: %w", g.pgid, err)
	}
	return nil
}
