package run

import (
	"context"
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/cmd/options"
)

const (
	outputFolded  = "folded"
	outputSymbols = "symbols"
	outputNone    = "none"
)

type Options struct {
	pid  int
	name string

	interval      time.Duration
	queueSize     int
	attachTimeout time.Duration
	maxDepth      int
	duration      time.Duration

	output            string
	symIncludePattern string
	symExcludePattern string

	metricsAddress string
	socketPath     string

	detach bool
	report bool
	status bool

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := &Options{
		pid:           -1,
		interval:      settings.DefaultInterval,
		queueSize:     settings.DefaultQueueSize,
		attachTimeout: settings.DefaultAttachTimeout,
		maxDepth:      settings.DefaultMaxDepth,
		output:        outputFolded,
		socketPath:    settings.HealthCheckSockPath,
	}
	o.CommonOptions = new(options.CommonOptions)

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
