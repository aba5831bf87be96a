package transport

import (
	"go.uber.org/zap"

	"github.com/veddb/veddb-go/storage"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on
	Port int

	// Reuseport controls setting SO_REUSEPORT so several listeners can share
	// the same port
	Reuseport bool

	NumListeners int

	// MaxFrameSize bounds the size of a single protocol frame. Zero means the
	// protocol default.
	MaxFrameSize int

	Store storage.Store

	Log *zap.Logger
}
