package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veddb/veddb-go/protocol"
)

// Client is the public operation surface over a session pool. It is safe for
// concurrent use; every call leases its own session for the duration of one
// protocol exchange.
//
// Only the side-effect-free reads (Ping, Get, Keys) are retried on transport
// failures. Set and Delete are never retried automatically because duplicate
// delivery is observable; retrying mutations is the caller's decision.
type Client struct {
	pool *Pool
	opts Options
	log  *zap.Logger
}

// Dial builds a client and eagerly warms its pool. ctx only scopes option
// sourcing; the dials themselves are bounded by the connect timeout.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()

	pool, err := NewPool(opts)
	if err != nil {
		return nil, err
	}

	return &Client{
		pool: pool,
		opts: opts,
		log:  opts.Log.Named("client"),
	}, nil
}

// Ping checks that the server is reachable and speaking the protocol.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, protocol.Ping(), true)
	return err
}

// Get returns the value stored under key, or ErrNotFound.
func (c *Client) Get(ctx context.Context, key []byte) ([]byte, error) {
	resp, err := c.do(ctx, protocol.Get(key), true)
	if err != nil {
		return nil, err
	}

	if resp.Status == protocol.StatusNotFound {
		return nil, fmt.Errorf("Get %q: %w", key, ErrNotFound)
	}

	return resp.Payload, nil
}

// Set stores value under key.
func (c *Client) Set(ctx context.Context, key, value []byte) error {
	_, err := c.do(ctx, protocol.Set(key, value), false)
	return err
}

// Delete removes key. Deleting an absent key returns ErrNotFound.
func (c *Client) Delete(ctx context.Context, key []byte) error {
	resp, err := c.do(ctx, protocol.Delete(key), false)
	if err != nil {
		return err
	}

	if resp.Status == protocol.StatusNotFound {
		return fmt.Errorf("Delete %q: %w", key, ErrNotFound)
	}

	return nil
}

// Keys lists every key on the server.
func (c *Client) Keys(ctx context.Context) ([][]byte, error) {
	resp, err := c.do(ctx, protocol.Keys(), true)
	if err != nil {
		return nil, err
	}

	return protocol.DecodeKeys(resp.Payload)
}

// Close drains outstanding leases, closes every pooled session and rejects
// further calls with ErrPoolClosed.
func (c *Client) Close() error {
	return c.pool.Close()
}

// Stats exposes the pool bookkeeping.
func (c *Client) Stats() PoolStats {
	return c.pool.Stats()
}

// do runs one command through the pool, retrying transport failures when the
// operation is idempotent.
func (c *Client) do(ctx context.Context, cmd *protocol.Command, idempotent bool) (*protocol.Response, error) {
	bo := newBackoff(c.opts.RetryBackoff)

	for attempt := 0; ; attempt++ {
		resp, err := c.attempt(ctx, cmd)
		if err == nil {
			return resp, nil
		}

		if !idempotent || attempt >= c.opts.MaxRetries || !IsTransient(err) {
			return nil, err
		}

		c.log.Warn("Retrying after transport failure",
			zap.String("op", cmd.Op.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if sleepErr := bo.Sleep(ctx); sleepErr != nil {
			return nil, err
		}
	}
}

// attempt performs a single lease/execute/release cycle. A session that saw
// a transport failure is released broken so the pool replaces it.
func (c *Client) attempt(ctx context.Context, cmd *protocol.Command) (*protocol.Response, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	s, err := c.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, err
	}

	resp, err := s.Execute(cmd, c.opts.RequestTimeout)
	if err != nil {
		c.pool.Release(s, !s.Broken())
		return nil, err
	}

	c.pool.Release(s, true)

	if resp.Status.IsErr() {
		return nil, &ServerError{
			Code:    uint16(resp.Status),
			Message: resp.ErrorMessage(),
		}
	}

	return resp, nil
}
