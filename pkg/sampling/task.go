package sampling

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Source produces one ProcessSample per call. Sampler is the production
// implementation.
type Source interface {
	Valid() bool
	Sample() ProcessSample
	Close() error
}

type TaskState int32

const (
	TaskIdle TaskState = iota
	TaskRunning
	TaskStopped
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskRunning:
		return "running"
	case TaskStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Task drives a Source on its own goroutine and pushes every sample to an
// OutputQueue. Passes never overlap. A stopped task cannot be restarted.
type Task struct {
	source Source
	queue  *OutputQueue

	mu     sync.Mutex
	cancel context.CancelFunc
	state  *atomic.Int32
	passes *atomic.Uint64
	done   chan struct{}

	*TaskOptions
}

func NewTask(source Source, queue *OutputQueue, opts ...TaskOpt) *Task {
	t := &Task{
		source: source,
		queue:  queue,
		state:  atomic.NewInt32(int32(TaskIdle)),
		passes: atomic.NewUint64(0),
		done:   make(chan struct{}),
		TaskOptions: &TaskOptions{
			logger: log.Nop(),
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With().Str("component", "sampling-task").Logger()

	return t
}

// Begin starts sampling in the background until ctx is done, Stop is
// called, the source turns invalid or the queue is closed.
func (t *Task) Begin(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.CompareAndSwap(int32(TaskIdle), int32(TaskRunning)) {
		return errors.Wrapf(ErrTaskStarted, "task is %s", t.State())
	}

	ctx, t.cancel = context.WithCancel(ctx)
	go t.run(ctx)

	return nil
}

// Stop requests the task to end. A pass in progress completes first.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.CompareAndSwap(int32(TaskIdle), int32(TaskStopped)) {
		t.closeSource()
		close(t.done)
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
}

// Wait blocks until the task has stopped.
func (t *Task) Wait() {
	<-t.done
}

// Done is closed once the task has stopped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// Passes returns the number of samples pushed so far.
func (t *Task) Passes() uint64 {
	return t.passes.Load()
}

func (t *Task) run(ctx context.Context) {
	defer func() {
		t.closeSource()
		t.state.Store(int32(TaskStopped))
		close(t.done)
		t.logger.Debug().Uint64("passes", t.Passes()).Msg("sampling stopped")
	}()
	t.logger.Debug().Dur("interval", t.interval).Msg("sampling started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !t.source.Valid() {
			t.logger.Warn().Msg("sampling client is no longer valid")
			return
		}

		sample := t.source.Sample()
		if err := t.queue.Push(ctx, sample); err != nil {
			if errors.Is(err, ErrQueueClosed) {
				t.logger.Debug().Msg("output queue closed")
			}
			return
		}
		t.passes.Inc()

		if !t.sleep(ctx) {
			return
		}
	}
}

func (t *Task) sleep(ctx context.Context) bool {
	if t.interval <= 0 {
		return true
	}
	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (t *Task) closeSource() {
	if err := t.source.Close(); err != nil {
		t.logger.Debug().Err(err).Msg("error closing sampling source")
	}
}
