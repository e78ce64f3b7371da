//go:build !windows

package relaunch

import "syscall"

// replaceProcess swaps the current process image via execve, so the
// restarted instance keeps the same PID and controlling terminal.
func replaceProcess(executable string, args []string, env []string) error {
	return syscall.Exec(executable, args, env)
}
