package sampling

import (
	"context"
)

// Debugger is a debug session handle on a target process.
type Debugger interface {
	// Attach attaches to pid without suspending it and without taking it
	// over from another debugger.
	Attach(ctx context.Context, pid int) error
	// WaitForAttach blocks until the attach handshake has completed or ctx
	// is done.
	WaitForAttach(ctx context.Context) error
	// Detach ends the session. A detached handle cannot be reattached.
	Detach() error
}

// ThreadController enumerates the threads of the attached process and
// captures their stacks.
type ThreadController interface {
	ThreadIDs() ([]uint32, error)
	// CaptureStack returns the frames of thread tid, outermost first.
	CaptureStack(tid uint32) ([]RawStackFrame, error)
}

// ModuleParameters is the metadata of a loaded module as reported by the
// backend.
type ModuleParameters struct {
	Name string
	Base uint64
	Size uint64
}

// SymbolResolver answers symbol and module queries about addresses in the
// attached process.
type SymbolResolver interface {
	// NameByOffset returns the name of the symbol containing ip and the
	// displacement of ip from the symbol start.
	NameByOffset(ip uint64) (name string, displacement uint64, err error)
	// ModuleByOffset returns the backend index and the base address of the
	// module containing ip.
	ModuleByOffset(ip uint64) (index uint32, base uint64, err error)
	ModuleParameters(index uint32) (ModuleParameters, error)
}

// BackendFactory creates a new, unattached debug session handle.
// The handle must also implement ThreadController and SymbolResolver.
type BackendFactory func() (Debugger, error)
