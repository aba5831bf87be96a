package client

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultAddr           = "127.0.0.1:50051"
	DefaultConnectTimeout = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultPoolSize       = 10
	DefaultMinIdle        = 1
	DefaultMaxRetries     = 2
	DefaultRetryBackoff   = 100 * time.Millisecond

	// DefaultIdleTimeout is the staleness window after which an idle session
	// becomes eligible for eviction.
	DefaultIdleTimeout = 60 * time.Second
)

type Options struct {
	// Addr is the host:port of the VedDB server
	Addr string

	// ConnectTimeout bounds dialing a new session and waiting for a free one
	ConnectTimeout time.Duration

	// RequestTimeout bounds a single write-then-read exchange
	RequestTimeout time.Duration

	// PoolSize is the maximum number of sessions, leased plus idle
	PoolSize int

	// MinIdle sessions are opened eagerly and never evicted by staleness
	MinIdle int

	// MaxRetries is the number of additional attempts for idempotent reads.
	// Zero means DefaultMaxRetries; a negative value disables retries.
	MaxRetries int

	// RetryBackoff is the base delay between attempts. The delay grows
	// linearly: backoff, 2*backoff, 3*backoff, ...
	RetryBackoff time.Duration

	// IdleTimeout is the staleness window for idle session eviction
	IdleTimeout time.Duration

	// MaxFrameSize bounds the size of a single protocol frame
	MaxFrameSize int

	// TCPNoDelay controls TCP_NODELAY on new sessions
	TCPNoDelay bool

	Log *zap.Logger

	// Clock overrides the time source. Leave nil outside of tests.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}

	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}

	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}

	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}

	if o.MinIdle < 0 {
		o.MinIdle = 0
	}

	if o.MinIdle > o.PoolSize {
		o.MinIdle = o.PoolSize
	}

	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	} else if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}

	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}

	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	if o.Clock == nil {
		o.Clock = time.Now
	}

	return o
}
