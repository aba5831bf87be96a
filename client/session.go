package client

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/veddb/veddb-go/protocol"
)

// Session owns one TCP connection to a VedDB server and performs one
// write-then-read protocol exchange per Execute call.
//
// A session never serves two Execute calls at once. The pool's leasing
// discipline enforces this: a leased session is exclusively owned by the
// caller until it is released.
type Session struct {
	conn net.Conn
	addr string

	maxFrameSize int

	createdAt  time.Time
	lastUsedAt time.Time

	// broken is set on any I/O failure, timeout or malformed frame. A broken
	// session must be discarded, never pooled again.
	broken bool

	log *zap.Logger
}

// OpenSession dials addr within the connect timeout. The connect deadline is
// distinct from the per-request deadline applied by Execute.
func OpenSession(opts Options) (*Session, error) {
	opts = opts.withDefaults()

	conn, err := net.DialTimeout("tcp", opts.Addr, opts.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to %s: %w",
			opts.Addr, classifyNetErr(err))
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(opts.TCPNoDelay); err != nil {
			conn.Close()
			return nil, fmt.Errorf("Failed to configure connection to %s: %w",
				opts.Addr, err)
		}
	}

	now := opts.Clock()

	return &Session{
		conn:         conn,
		addr:         opts.Addr,
		maxFrameSize: opts.MaxFrameSize,
		createdAt:    now,
		lastUsedAt:   now,
		log:          opts.Log.Named("session"),
	}, nil
}

// Execute writes the full encoded command frame, then reads exactly one full
// response frame, all within the request timeout. Any failure in between
// marks the session broken.
func (s *Session) Execute(cmd *protocol.Command, requestTimeout time.Duration) (*protocol.Response, error) {
	if s.broken {
		return nil, ErrSessionBroken
	}

	if max := s.maxFrame(); cmd.EncodedSize() > max {
		// Nothing was written, the session is still usable.
		return nil, fmt.Errorf("Command of %d bytes with a %d byte limit: %w",
			cmd.EncodedSize(), max, protocol.ErrFrameTooLarge)
	}

	if err := s.conn.SetDeadline(time.Now().Add(requestTimeout)); err != nil {
		s.broken = true
		return nil, fmt.Errorf("Failed to arm request deadline: %w", err)
	}

	if err := protocol.WriteCommand(s.conn, cmd); err != nil {
		s.broken = true
		return nil, fmt.Errorf("Failed to send %s: %w", cmd.Op, classifyNetErr(err))
	}

	resp, err := protocol.ReadResponse(s.conn, s.maxFrame())
	if err != nil {
		s.broken = true
		return nil, fmt.Errorf("Failed to read %s response: %w",
			cmd.Op, classifyNetErr(err))
	}

	return resp, nil
}

// Broken reports whether the session has seen a transport or framing failure.
func (s *Session) Broken() bool {
	return s.broken
}

// RemoteAddr returns the peer address the session was opened against.
func (s *Session) RemoteAddr() string {
	return s.addr
}

func (s *Session) Close() error {
	s.broken = true
	return s.conn.Close()
}

func (s *Session) maxFrame() int {
	if s.maxFrameSize <= 0 {
		return protocol.DefaultMaxFrameSize
	}

	return s.maxFrameSize
}
