package client

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pool owns a bounded collection of sessions to a single server.
//
// At all times leased + idle never exceeds the pool size, and a session is
// reachable from exactly one place: the idle collection or one caller's
// leased handle. Stale idle sessions are reaped opportunistically on
// Acquire/Release rather than by a background timer.
type Pool struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	drain  *sync.Cond
	idle   []*Session // ordered by last use, oldest first
	leased int
	closed bool

	// freed takes one token per released or discarded session so blocked
	// Acquire calls can re-run their checks.
	freed chan struct{}
	done  chan struct{}
}

// PoolStats is a point-in-time snapshot of the pool's bookkeeping.
type PoolStats struct {
	Idle     int
	Leased   int
	Capacity int
}

// NewPool eagerly opens MinIdle sessions. If any of them fails the ones
// already opened are closed and no pool is returned.
func NewPool(opts Options) (*Pool, error) {
	opts = opts.withDefaults()

	p := &Pool{
		opts:  opts,
		log:   opts.Log.Named("pool"),
		idle:  make([]*Session, 0, opts.PoolSize),
		freed: make(chan struct{}, opts.PoolSize),
		done:  make(chan struct{}),
	}
	p.drain = sync.NewCond(&p.mu)

	for i := 0; i < opts.MinIdle; i++ {
		s, err := OpenSession(opts)
		if err != nil {
			for _, open := range p.idle {
				open.Close()
			}

			return nil, fmt.Errorf("Failed to warm the pool: %w", err)
		}

		p.idle = append(p.idle, s)
	}

	p.log.Debug("Pool ready",
		zap.String("addr", opts.Addr),
		zap.Int("minIdle", opts.MinIdle),
		zap.Int("size", opts.PoolSize))

	return p, nil
}

// Acquire leases a session: an idle one if available, a freshly dialed one if
// the pool is below capacity, otherwise it blocks until a session is released
// or ctx expires, at which point it fails with ErrPoolExhausted.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		p.mu.Lock()

		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}

		p.reapLocked()

		if n := len(p.idle); n > 0 {
			s := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.leased++
			p.mu.Unlock()

			return s, nil
		}

		if p.leased < p.opts.PoolSize {
			// Reserve the slot before dialing so concurrent acquires cannot
			// overshoot the pool size.
			p.leased++
			p.mu.Unlock()

			s, err := OpenSession(p.opts)
			if err != nil {
				p.giveBackSlot()
				return nil, err
			}

			return s, nil
		}

		p.mu.Unlock()

		select {
		case <-p.freed:
			// Re-run the checks; another acquirer may have won the session.

		case <-p.done:
			return nil, ErrPoolClosed

		case <-ctx.Done():
			return nil, fmt.Errorf("No session became free before the deadline: %w",
				ErrPoolExhausted)
		}
	}
}

// Release returns a leased session. A healthy session goes back to the idle
// collection with its last-used time refreshed; a broken one is discarded,
// freeing its slot for a future Acquire to dial a replacement.
func (p *Pool) Release(s *Session, healthy bool) {
	p.mu.Lock()

	p.leased--

	if healthy && !s.Broken() && !p.closed {
		s.lastUsedAt = p.opts.Clock()
		p.idle = append(p.idle, s)
	} else {
		if err := s.Close(); err != nil {
			p.log.Debug("Discarded session did not close cleanly", zap.Error(err))
		}
	}

	p.reapLocked()
	p.drain.Broadcast()
	p.mu.Unlock()

	p.signalFreed()
}

// Close rejects further acquires, waits for every leased session to be
// released, then closes all idle sessions.
func (p *Pool) Close() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.closed = true
	close(p.done)

	for p.leased > 0 {
		p.drain.Wait()
	}

	var err error
	for _, s := range p.idle {
		err = multierr.Append(err, s.Close())
	}

	p.idle = nil
	p.mu.Unlock()

	p.log.Debug("Pool closed")

	return err
}

// Stats reports the current idle/leased counts.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		Idle:     len(p.idle),
		Leased:   p.leased,
		Capacity: p.opts.PoolSize,
	}
}

// reapLocked closes idle sessions that have outlived the staleness window,
// oldest first, but never below MinIdle. Callers hold p.mu.
func (p *Pool) reapLocked() {
	now := p.opts.Clock()

	for len(p.idle) > p.opts.MinIdle {
		s := p.idle[0]
		if now.Sub(s.lastUsedAt) <= p.opts.IdleTimeout {
			break
		}

		p.idle = p.idle[1:]
		if err := s.Close(); err != nil {
			p.log.Debug("Evicted session did not close cleanly", zap.Error(err))
		}

		p.log.Debug("Evicted stale session", zap.String("addr", s.RemoteAddr()))
	}
}

func (p *Pool) giveBackSlot() {
	p.mu.Lock()
	p.leased--
	p.drain.Broadcast()
	p.mu.Unlock()

	p.signalFreed()
}

func (p *Pool) signalFreed() {
	select {
	case p.freed <- struct{}{}:
	default:
	}
}
