package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime"
	"strconv"
	"sync"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/zap"

	"github.com/veddb/veddb-go/protocol"
	"github.com/veddb/veddb-go/storage"
)

// dispatchTimeout bounds one store operation on behalf of a client.
const dispatchTimeout = 3 * time.Second

// TCP serves the VedDB wire protocol over one or more listeners sharing a
// port. It exists for local development and as the stub peer in integration
// tests; it is not the production server.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	numListeners int
	listeners    []*TCPListener

	reuseport    bool
	maxFrameSize int

	store storage.Store

	log *zap.Logger
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners

	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	if !options.Reuseport {
		// Without SO_REUSEPORT only a single listener can bind the port.
		numListeners = 1
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		reuseport:    options.Reuseport,
		maxFrameSize: options.MaxFrameSize,
		store:        options.Store,
		log:          options.Log.Named("transport"),
	}
}

func (w *TCP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	w.cancel = cancel

	w.log.Info("Starting tcp listeners", zap.Int("count", w.numListeners))

	for i := 0; i < w.numListeners; i++ {
		listener := NewTCPListener(
			ctx,
			w.addr,
			w.store,
			w.maxFrameSize,
			w.reuseport,
			w.log.Named("listener").With(zap.Int("listener", len(w.listeners))),
		)

		if err := listener.Bind(); err != nil {
			w.Close()
			return err
		}

		w.listeners = append(w.listeners, listener)

		w.stopWaiter.Add(1)
		go func() {
			defer w.stopWaiter.Done()

			if err := listener.Serve(); err != nil {
				w.log.Error("Failed to serve", zap.Error(err))
			}
		}()
	}

	return nil
}

func (w *TCP) Store() storage.Store {
	return w.store
}

// Addr returns the bound address of the first listener. Useful when the
// server was started on port 0.
func (w *TCP) Addr() string {
	if len(w.listeners) == 0 {
		return w.addr
	}

	return w.listeners[0].Addr()
}

// Close immediately closes all active listeners and connections.
func (w *TCP) Close() error {
	w.log.Info("Stopping TCP server")

	if w.cancel != nil {
		w.cancel()
	}

	for _, listener := range w.listeners {
		listener.Close()
	}

	w.stopWaiter.Wait()
	w.log.Info("Listeners stopped")

	return nil
}

type TCPListener struct {
	ctx context.Context

	addr      string
	reuseport bool
	listener  net.Listener

	maxFrameSize int

	mu          sync.Mutex
	activeConns map[net.Conn]struct{}

	store storage.Store

	log *zap.Logger
}

func NewTCPListener(
	ctx context.Context,
	addr string,
	store storage.Store,
	maxFrameSize int,
	useReuseport bool,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:          ctx,
		addr:         addr,
		reuseport:    useReuseport,
		maxFrameSize: maxFrameSize,
		activeConns:  make(map[net.Conn]struct{}),
		store:        store,
		log:          log,
	}
}

// Bind claims the listening socket. Serve can only be called after a
// successful Bind, which lets callers rely on the server accepting
// connections as soon as Start returns.
func (t *TCPListener) Bind() (err error) {
	if t.reuseport {
		t.listener, err = reuseport.Listen("tcp", t.addr)
	} else {
		t.listener, err = net.Listen("tcp", t.addr)
	}

	return err
}

func (t *TCPListener) Addr() string {
	if t.listener == nil {
		return t.addr
	}

	return t.listener.Addr().String()
}

func (t *TCPListener) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for conn := range t.activeConns {
		conn.Close()
		delete(t.activeConns, conn)
	}

	if t.listener != nil {
		return t.listener.Close()
	}

	return nil
}

func (t *TCPListener) Serve() error {
	var loopWaiter sync.WaitGroup

	go func() {
		<-t.ctx.Done()

		if err := t.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Warn("TCP Listener did not close cleanly", zap.Error(err))
		}
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				// The listener was closed while we were waiting for new
				// connections, that's fine.
				loopWaiter.Wait()
				return nil
			}

			loopWaiter.Wait()
			return err
		}

		t.addConn(conn)

		loopWaiter.Add(1)
		go func() {
			defer loopWaiter.Done()
			defer t.removeConn(conn)

			t.serveConn(conn)
		}()
	}
}

// serveConn answers command frames on one connection until the client hangs
// up, the frame stream turns malformed or the server stops.
func (t *TCPListener) serveConn(conn net.Conn) {
	log := t.log.Named("conn").With(zap.String("peer", conn.RemoteAddr().String()))

	defer conn.Close()

	for {
		select {
		case <-t.ctx.Done():
			return

		default:
			cmd, err := protocol.ReadCommand(conn, t.maxFrameSize)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					return
				}

				if errors.Is(err, protocol.ErrMalformed) ||
					errors.Is(err, protocol.ErrFrameTooLarge) {
					// There is no way to resync a broken frame stream, reply
					// with the reason and drop the connection.
					t.writeResponse(conn, log, &protocol.Response{
						Status:  protocol.StatusErr,
						Payload: []byte(err.Error()),
					})
				}

				log.Warn("Failed to read client command", zap.Error(err))
				return
			}

			if !t.writeResponse(conn, log, t.dispatch(cmd)) {
				return
			}
		}
	}
}

func (t *TCPListener) writeResponse(conn net.Conn, log *zap.Logger, resp *protocol.Response) bool {
	if err := protocol.WriteResponse(conn, resp); err != nil {
		log.Warn("Failed to write response",
			zap.String("status", resp.Status.String()),
			zap.Error(err))
		return false
	}

	return true
}

func (t *TCPListener) dispatch(cmd *protocol.Command) *protocol.Response {
	ctx, cancel := context.WithTimeout(t.ctx, dispatchTimeout)
	defer cancel()

	switch cmd.Op {
	case protocol.OpPing:
		return &protocol.Response{Status: protocol.StatusOk}

	case protocol.OpSet:
		if err := t.store.Set(ctx, cmd.Key, cmd.Value); err != nil {
			return errResponse(err)
		}

		return &protocol.Response{Status: protocol.StatusOk}

	case protocol.OpGet:
		value, err := t.store.Get(ctx, cmd.Key)
		if err != nil {
			return errResponse(err)
		}

		return &protocol.Response{Status: protocol.StatusOk, Payload: value}

	case protocol.OpDelete:
		if err := t.store.Delete(ctx, cmd.Key); err != nil {
			return errResponse(err)
		}

		return &protocol.Response{Status: protocol.StatusOk}

	case protocol.OpKeys:
		keys, err := t.store.Keys(ctx)
		if err != nil {
			return errResponse(err)
		}

		return &protocol.Response{
			Status:  protocol.StatusOk,
			Payload: protocol.EncodeKeys(keys),
		}

	default:
		return &protocol.Response{
			Status:  protocol.StatusErr,
			Payload: []byte("Unknown opcode " + cmd.Op.String()),
		}
	}
}

func errResponse(err error) *protocol.Response {
	if errors.Is(err, storage.ErrNotFound) {
		return &protocol.Response{Status: protocol.StatusNotFound}
	}

	return &protocol.Response{
		Status:  protocol.StatusErr,
		Payload: []byte(err.Error()),
	}
}

func (t *TCPListener) addConn(conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCPListener) removeConn(conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}
