package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"OmniTrade/internal/registry"

	"github.com/shirou/gopsutil/v4/process"
)

// OSProcesses implements Processes against the host OS.
type OSProcesses struct{}

func (OSProcesses) Alive(pid int) bool { return registry.IsAlive(pid) }

func (OSProcesses) Terminate(pid int) error {
	if !registry.ValidPID(pid) {
		return fmt.Errorf("invalid pid %d", pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}

func (OSProcesses) Kill(pid int) error {
	if !registry.ValidPID(pid) {
		return fmt.Errorf("invalid pid %d", pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Kill()
}

// Spawn re-executes the current binary with args, detached from the caller,
// with stdout and stderr appended to logFile.
func (OSProcesses) Spawn(args []string, logFile string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("find executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return 0, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log file %s: %w", logFile, err)
	}
	defer f.Close()

	child := exec.Command(exe, args...)
	child.Stdout = f
	child.Stderr = f
	child.SysProcAttr = detachAttr()

	if err := child.Start(); err != nil {
		return 0, err
	}
	pid := child.Process.Pid
	_ = child.Process.Release()
	return pid, nil
}
