package procdbg

import (
	"time"

	log "github.com/rs/zerolog"
)

const (
	defaultMaxDepth        = 128
	defaultStackSize       = 64 << 10
	defaultSymbolCacheSize = 256
	defaultRefreshInterval = time.Second
	defaultAttachBackoff   = 10 * time.Second
	defaultProcMountPoint  = "/proc"
)

type Options struct {
	maxDepth        int
	stackSize       int
	symbolCacheSize uint32
	refreshInterval time.Duration
	attachBackoff   time.Duration
	mountPoint      string
	logger          log.Logger
}

type Opt func(o *Options)

func defaultOptions() *Options {
	return &Options{
		maxDepth:        defaultMaxDepth,
		stackSize:       defaultStackSize,
		symbolCacheSize: defaultSymbolCacheSize,
		refreshInterval: defaultRefreshInterval,
		attachBackoff:   defaultAttachBackoff,
		mountPoint:      defaultProcMountPoint,
		logger:          log.Nop(),
	}
}

// WithMaxDepth caps the number of frames captured per thread.
func WithMaxDepth(depth int) Opt {
	return func(o *Options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// WithStackSize sets how many bytes of stack are read above the stack
// pointer.
func WithStackSize(size int) Opt {
	return func(o *Options) {
		if size >= wordSize {
			o.stackSize = size
		}
	}
}

func WithSymbolCacheSize(size uint32) Opt {
	return func(o *Options) {
		if size > 0 {
			o.symbolCacheSize = size
		}
	}
}

// WithRefreshInterval sets the minimum time between two reloads of the
// memory mappings on address misses.
func WithRefreshInterval(interval time.Duration) Opt {
	return func(o *Options) {
		o.refreshInterval = interval
	}
}

// WithAttachBackoff bounds the retries of the attach handshake.
func WithAttachBackoff(maxElapsed time.Duration) Opt {
	return func(o *Options) {
		o.attachBackoff = maxElapsed
	}
}

func WithProcMountPoint(mountPoint string) Opt {
	return func(o *Options) {
		o.mountPoint = mountPoint
	}
}

func WithLogger(logger log.Logger) Opt {
	return func(o *Options) {
		o.logger = logger
	}
}
