package render

import (
	"context"

	"github.com/pkg/errors"

	"github.com/maxgio92/stackflow/pkg/sampling"
)

// Consumer handles the samples popped from an output queue.
type Consumer interface {
	Consume(sample sampling.ProcessSample) error
}

// Discard drops every sample.
type Discard struct{}

func (Discard) Consume(sampling.ProcessSample) error {
	return nil
}

// Drain pops samples from queue and hands them to c until the queue is
// closed and empty, ctx is done or c fails.
func Drain(ctx context.Context, queue *sampling.OutputQueue, c Consumer) error {
	for {
		sample, err := queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, sampling.ErrQueueClosed) {
				return nil
			}
			return err
		}
		if err := c.Consume(sample); err != nil {
			return err
		}
	}
}
