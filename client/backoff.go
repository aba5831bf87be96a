package client

import (
	"context"
	"time"
)

// backoff implements a linearly increasing delay between retry attempts.
type backoff struct {
	step time.Duration
	cur  time.Duration
}

func newBackoff(step time.Duration) *backoff {
	return &backoff{step: step}
}

// Sleep waits for the next delay or until ctx is done, whichever comes first.
func (b *backoff) Sleep(ctx context.Context) error {
	b.cur += b.step

	timer := time.NewTimer(b.cur)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil

	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *backoff) Reset() {
	b.cur = 0
}
