package wait

import (
	"context"
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/cmd/options"
)

// Options configures the wait command. Flags override the socket path
// and the timeout; the retry interval is only settable programmatically.
type Options struct {
	socketPath    string
	timeout       time.Duration
	retryInterval time.Duration

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := &Options{
		socketPath:    settings.HealthCheckSockPath,
		timeout:       settings.DefaultWaitTimeout,
		retryInterval: settings.DefaultWaitRetry,
		CommonOptions: &options.CommonOptions{
			Ctx:    context.Background(),
			Logger: log.Nop(),
		},
	}

	for _, f := range opts {
		f(o)
	}

	return o
}

func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Ctx = ctx
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithLogLevel(level string) Option {
	return func(o *Options) {
		o.LogLevel = level
	}
}

// WithRetryInterval sets how often the sampler socket is polled.
func WithRetryInterval(interval time.Duration) Option {
	return func(o *Options) {
		if interval > 0 {
			o.retryInterval = interval
		}
	}
}
