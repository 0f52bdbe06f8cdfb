package cmd

import (
	"context"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/stackflow/pkg/cmd/options"
)

type Options struct {
	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = &options.CommonOptions{
		Ctx:    context.Background(),
		Logger: log.Nop(),
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
