package common

import (
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/maxgio92/stackflow/internal/settings"
)

// ReadPidFile returns the PID stored in pidFile.
func ReadPidFile(pidFile string) (int, error) {
	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, errors.Wrap(err, "error reading PID file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID file")
	}

	return pid, nil
}

// WritePidFile stores pid in pidFile.
func WritePidFile(pidFile string, pid int) error {
	return errors.Wrap(os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0o644), "error writing PID file")
}

func IsDaemonRunning() bool {
	pid, err := ReadPidFile(settings.PidFile)
	if err != nil {
		return false
	}

	return IsRunning(pid)
}

// IsRunning reports whether a process with pid exists.
func IsRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
