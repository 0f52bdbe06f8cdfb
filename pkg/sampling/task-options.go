package sampling

import (
	"time"

	log "github.com/rs/zerolog"
)

type TaskOptions struct {
	interval time.Duration
	logger   log.Logger
}

type TaskOpt func(*Task)

// WithTaskInterval sets the pause between the end of a pass and the start
// of the next one.
func WithTaskInterval(interval time.Duration) TaskOpt {
	return func(t *Task) {
		t.interval = interval
	}
}

func WithTaskLogger(logger log.Logger) TaskOpt {
	return func(t *Task) {
		t.logger = logger
	}
}
