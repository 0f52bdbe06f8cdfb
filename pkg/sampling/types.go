package sampling

import (
	"time"

	"github.com/maxgio92/stackflow/pkg/repository"
)

// RawStackFrame is one captured native frame.
type RawStackFrame struct {
	InstructionPointer uint64
}

// RawThreadSample is the unsymbolized call stack of one thread, outermost
// frame first.
type RawThreadSample struct {
	ThreadID uint32
	Frames   []RawStackFrame
}

// StackFrame is a symbolized frame. Symbol is repository.NoSymbol when the
// instruction pointer could not be resolved.
type StackFrame struct {
	InstructionPointer uint64
	Symbol             repository.SymbolID
}

// ThreadSample is the symbolized call stack of one thread, outermost frame
// first.
type ThreadSample struct {
	ThreadID uint32
	Frames   []StackFrame
}

// ProcessSample is the result of one sampling pass over all the threads of
// the target.
type ProcessSample struct {
	Timestamp time.Time
	Threads   []ThreadSample
}
