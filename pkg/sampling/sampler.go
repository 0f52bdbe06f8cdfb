package sampling

import (
	"time"

	"go.uber.org/atomic"
)

// Sampler turns one raw capture of the client into a ProcessSample
// symbolized against the session.
type Sampler struct {
	client  *Client
	session *Session
	now     func() time.Time
	threads *atomic.Int64
}

type SamplerOpt func(*Sampler)

// WithSamplerClock sets the timestamp source of the produced samples.
func WithSamplerClock(now func() time.Time) SamplerOpt {
	return func(s *Sampler) {
		s.now = now
	}
}

func NewSampler(client *Client, session *Session, opts ...SamplerOpt) *Sampler {
	s := &Sampler{
		client:  client,
		session: session,
		now:     time.Now,
		threads: atomic.NewInt64(0),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Sampler) Valid() bool {
	return s.client.IsValid()
}

// Sample runs one sampling pass. The sample is timestamped when the pass
// starts.
func (s *Sampler) Sample() ProcessSample {
	ts := s.now()
	raw := s.client.Sample()

	sample := ProcessSample{
		Timestamp: ts,
		Threads:   make([]ThreadSample, 0, len(raw)),
	}

	s.session.mu.Lock()
	for _, r := range raw {
		sample.Threads = append(sample.Threads, s.client.ExportSample(r, s.session))
	}
	s.session.mu.Unlock()

	s.threads.Store(int64(len(sample.Threads)))
	s.client.metrics.passes.Inc()

	return sample
}

// Threads returns the number of threads captured by the last pass. It is
// safe to call concurrently with Sample.
func (s *Sampler) Threads() int {
	return int(s.threads.Load())
}

func (s *Sampler) Close() error {
	return s.client.Close()
}
