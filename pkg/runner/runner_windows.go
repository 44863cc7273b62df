//go:build windows

package runner

import (
	"os/exec"
	"syscall"
)

// processGroup terminates a Windows process group rooted at a spawned
// child, created with CREATE_NEW_PROCESS_GROUP.
type processGroup struct {
	pid int
}

func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func processGroupOf(c *exec.Cmd) processGroup {
	return processGroup{pid: c.Process.Pid}
}

func (g processGroup) signalTerm() error {
	return syscall.GenerateConsoleCtrlEvent(syscall.CTRL_BREAK_EVENT, uint32(g.pid))
}

func (g processGroup) kill() error {
	p, err := syscall.OpenProcess(syscall.PROCESS_TERMINATE, false, uint32(g.pid))
	if err != nil {
		return err
	}
	defer syscall.CloseHandle(p)
	return syscall.TerminateProcess(p, 1)
}
