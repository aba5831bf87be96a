package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/veddb/veddb-go/protocol"
)

var (
	ErrTimeout           = errors.New("Operation timed out")
	ErrConnectionRefused = errors.New("Connection refused")
	ErrSessionBroken     = errors.New("Session is broken and must not be reused")
	ErrPoolExhausted     = errors.New("Connection pool exhausted")
	ErrPoolClosed        = errors.New("Connection pool is closed")
	ErrNotFound          = errors.New("Key not found")
)

// ServerError is a non-OK status returned by the server together with its
// message payload. The code is preserved so callers can match on error
// classes this client version does not know about.
type ServerError struct {
	Code    uint16
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Server error 0x%02x", e.Code)
	}

	return fmt.Sprintf("Server error 0x%02x: %s", e.Code, e.Message)
}

// IsTransient reports whether err is a transport-class failure (I/O error,
// timeout, connection reset) that is safe to retry for idempotent reads.
// Domain outcomes, server errors, pool shutdown and framing violations are
// never transient.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false

	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPoolExhausted),
		errors.Is(err, ErrPoolClosed),
		errors.Is(err, protocol.ErrMalformed),
		errors.Is(err, protocol.ErrFrameTooLarge):
		return false

	case errors.Is(err, ErrTimeout), errors.Is(err, ErrConnectionRefused):
		return true
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// classifyNetErr folds timeouts and refused connections into their sentinel
// kinds and leaves everything else untouched.
func classifyNetErr(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%v: %w", err, ErrConnectionRefused)
	}

	return err
}
