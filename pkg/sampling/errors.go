package sampling

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoBackend         = errors.New("no debug backend configured")
	ErrCapabilityMissing = errors.New("debug backend capability missing")
	ErrClientInvalid     = errors.New("sampling client is not attached")
	ErrQueueClosed       = errors.New("output queue is closed")
	ErrTaskStarted       = errors.New("sampling task already started")

	// ErrTargetExited is returned by backends once the target process is
	// gone. It invalidates the client.
	ErrTargetExited = errors.New("target process exited")
)

// AttachStep names a step of the attach protocol.
type AttachStep string

const (
	AttachStepCreate       AttachStep = "create session"
	AttachStepAttach       AttachStep = "attach"
	AttachStepCapabilities AttachStep = "query capabilities"
	AttachStepWait         AttachStep = "wait for attach"
)

// AttachError reports the attach protocol step that failed.
type AttachError struct {
	Step AttachStep
	Err  error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("attach failed at %s: %v", e.Step, e.Err)
}

func (e *AttachError) Unwrap() error {
	return e.Err
}
