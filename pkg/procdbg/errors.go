package procdbg

import (
	"github.com/pkg/errors"
)

var (
	ErrUnsupportedPlatform = errors.New("debug backend is not supported on this platform")
	ErrNotAttached         = errors.New("not attached to a process")
	ErrThreadRunning       = errors.New("thread is running")
	ErrBadSyscallFormat    = errors.New("unexpected syscall file format")
	ErrAddressNotMapped    = errors.New("address is not in an executable mapping")
	ErrModuleNotFound      = errors.New("module not found")
)
