package sampling

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/stackflow/pkg/process"
)

// Client owns the attach session to a target process. It captures raw
// stacks and symbolizes them against a Session.
//
// A Client is not safe for concurrent use: all calls must come from the
// goroutine that drives sampling.
type Client struct {
	process process.Process

	debugger Debugger
	threads  ThreadController
	symbols  SymbolResolver

	valid bool
	err   error

	*ClientOptions
}

// NewClient runs the attach protocol against p. It always returns a
// client; if any step fails the client is permanently invalid and Err
// reports why.
func NewClient(ctx context.Context, p process.Process, opts ...ClientOpt) *Client {
	c := &Client{
		process: p,
		ClientOptions: &ClientOptions{
			logger: log.Nop(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	c.logger = c.logger.With().Str("component", "sampling-client").Int("pid", p.PID).Logger()

	if err := c.attach(ctx); err != nil {
		c.err = err
		c.logger.Warn().Err(err).Str("process", p.Name).Msg("attach failed")
		return c
	}
	c.valid = true
	c.logger.Debug().Str("process", p.Name).Msg("attached")

	return c
}

func (c *Client) attach(ctx context.Context) error {
	if c.backend == nil {
		return &AttachError{Step: AttachStepCreate, Err: ErrNoBackend}
	}
	debugger, err := c.backend()
	if err != nil {
		return &AttachError{Step: AttachStepCreate, Err: err}
	}
	if debugger == nil {
		return &AttachError{Step: AttachStepCreate, Err: ErrNoBackend}
	}

	if err := debugger.Attach(ctx, c.process.PID); err != nil {
		return &AttachError{Step: AttachStepAttach, Err: err}
	}

	threads, ok := debugger.(ThreadController)
	if !ok {
		c.detach(debugger)
		return &AttachError{Step: AttachStepCapabilities, Err: errors.Wrap(ErrCapabilityMissing, "thread control")}
	}
	symbols, ok := debugger.(SymbolResolver)
	if !ok {
		c.detach(debugger)
		return &AttachError{Step: AttachStepCapabilities, Err: errors.Wrap(ErrCapabilityMissing, "symbol resolution")}
	}

	waitCtx := ctx
	if c.attachTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.attachTimeout)
		defer cancel()
	}
	if err := debugger.WaitForAttach(waitCtx); err != nil {
		c.detach(debugger)
		return &AttachError{Step: AttachStepWait, Err: err}
	}

	c.debugger = debugger
	c.threads = threads
	c.symbols = symbols

	return nil
}

func (c *Client) detach(debugger Debugger) {
	if err := debugger.Detach(); err != nil {
		c.logger.Debug().Err(err).Msg("error detaching")
	}
}

// IsValid reports whether the client is attached. Sampling an invalid
// client is a no-op.
func (c *Client) IsValid() bool {
	return c.valid
}

// Err returns the attach failure, ErrTargetExited once the target is gone,
// or ErrClientInvalid once the client has been closed.
func (c *Client) Err() error {
	if c.err != nil {
		return c.err
	}
	if !c.valid {
		return ErrClientInvalid
	}

	return nil
}

func (c *Client) Process() process.Process {
	return c.process
}

// Sample captures the raw stacks of all the threads of the target. Threads
// whose capture fails are left out; the others keep their enumeration
// order. If the target has exited the client detaches and turns invalid.
func (c *Client) Sample() []RawThreadSample {
	if !c.valid {
		return nil
	}

	tids, err := c.threads.ThreadIDs()
	if err != nil {
		if errors.Is(err, ErrTargetExited) {
			c.invalidate(err)
			return nil
		}
		c.metrics.enumFailures.Inc()
		c.logger.Debug().Err(err).Msg("error enumerating threads")
		return nil
	}

	samples := make([]RawThreadSample, 0, len(tids))
	for _, tid := range tids {
		frames, err := c.threads.CaptureStack(tid)
		if err != nil {
			c.metrics.captureFailures.Inc()
			c.logger.Debug().Err(err).Uint32("tid", tid).Msg("error capturing stack, skipping thread")
			continue
		}
		samples = append(samples, RawThreadSample{ThreadID: tid, Frames: frames})
	}
	c.metrics.threadsCaptured.Add(float64(len(samples)))

	return samples
}

func (c *Client) invalidate(err error) {
	c.valid = false
	c.err = err
	c.detach(c.debugger)
	c.logger.Info().Err(err).Msg("target went away, detached")
}

// ExportSample symbolizes raw against s. Every raw frame produces a
// StackFrame; unresolved frames carry repository.NoSymbol.
//
// ExportSample writes to the repositories of s without locking: the caller
// must have exclusive access to the session. Sampler holds the session
// lock for the whole pass.
func (c *Client) ExportSample(raw RawThreadSample, s *Session) ThreadSample {
	out := ThreadSample{
		ThreadID: raw.ThreadID,
		Frames:   make([]StackFrame, 0, len(raw.Frames)),
	}
	for _, f := range raw.Frames {
		out.Frames = append(out.Frames, StackFrame{
			InstructionPointer: f.InstructionPointer,
			Symbol:             c.resolveSymbol(f.InstructionPointer, s),
		})
	}

	return out
}

// Close detaches from the target. The client stays invalid afterwards.
func (c *Client) Close() error {
	if !c.valid {
		return nil
	}
	c.valid = false

	if err := c.debugger.Detach(); err != nil {
		return errors.Wrapf(err, "error detaching from pid %d", c.process.PID)
	}
	c.logger.Debug().Msg("detached")

	return nil
}
