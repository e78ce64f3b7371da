//go:build windows

package relaunch

import (
	"os"
	"os/exec"
)

// replaceProcess has no execve on Windows: start a detached copy with
// the same arguments and exit the current process.
func replaceProcess(executable string, args []string, env []string) error {
	cmd := exec.Command(executable, args[1:]...)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}
