package sampling

import (
	"time"

	log "github.com/rs/zerolog"
)

type ClientOptions struct {
	backend       BackendFactory
	attachTimeout time.Duration

	metrics *Metrics
	logger  log.Logger
}

type ClientOpt func(*Client)

func WithClientBackend(factory BackendFactory) ClientOpt {
	return func(c *Client) {
		c.backend = factory
	}
}

// WithClientAttachTimeout bounds the wait for the attach handshake.
// Zero waits until the context passed to NewClient is done.
func WithClientAttachTimeout(timeout time.Duration) ClientOpt {
	return func(c *Client) {
		c.attachTimeout = timeout
	}
}

func WithClientMetrics(metrics *Metrics) ClientOpt {
	return func(c *Client) {
		c.metrics = metrics
	}
}

func WithClientLogger(logger log.Logger) ClientOpt {
	return func(c *Client) {
		c.logger = logger
	}
}
