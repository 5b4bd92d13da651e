//go:build windows

package executor

import (
	"os/exec"
	"strconv"
	"syscall"
)

func configureCommandForCancellation(cmd *exec.Cmd) {
	// No console window for the interpreter.
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}

func terminateCommandOnCancel(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// /T includes child processes.
	pid := strconv.Itoa(cmd.Process.Pid)
	_ = exec.Command("taskkill", "/T", "/F", "/PID", pid).Run()
	_ = cmd.Process.Kill()
}
