package transport_test

import (
	"context"
	"errors"
	"io"
	"net"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/veddb/veddb-go/protocol"
	"github.com/veddb/veddb-go/storage"
	"github.com/veddb/veddb-go/transport"
)

var _ = Describe("transport", func() {
	Describe("TCP", func() {
		It("accepts connections once Start returns", func() {
			tcp := makeTCPServer("")

			defer func() {
				Expect(tcp.Close()).To(Succeed())
			}()

			conn, err := net.Dial("tcp", tcp.Addr())
			Expect(err).To(Succeed())
			conn.Close()
		})

		It("responds OK to PING", func() {
			tcp := makeTCPServer("")
			conn := dial(tcp)

			defer func() {
				conn.Close()
				Expect(tcp.Close()).To(Succeed())
			}()

			resp := exchange(conn, protocol.Ping())
			Expect(resp.Status).To(Equal(protocol.StatusOk))
		})

		It("stores values via SET and returns them via GET", func() {
			tcp := makeTCPServer("")
			conn := dial(tcp)

			defer func() {
				conn.Close()
				Expect(tcp.Close()).To(Succeed())
			}()

			resp := exchange(conn, protocol.Set([]byte("name"), []byte("Alice")))
			Expect(resp.Status).To(Equal(protocol.StatusOk))

			resp = exchange(conn, protocol.Get([]byte("name")))
			Expect(resp.Status).To(Equal(protocol.StatusOk))
			Expect(resp.Payload).To(Equal([]byte("Alice")))
		})

		It("responds NOT_FOUND for a missing key", func() {
			tcp := makeTCPServer("")
			conn := dial(tcp)

			defer func() {
				conn.Close()
				Expect(tcp.Close()).To(Succeed())
			}()

			resp := exchange(conn, protocol.Get([]byte("missing")))
			Expect(resp.Status).To(Equal(protocol.StatusNotFound))
		})

		It("deletes keys and reports missing ones", func() {
			tcp := makeTCPServer(`{"name":"Alice"}`)
			conn := dial(tcp)

			defer func() {
				conn.Close()
				Expect(tcp.Close()).To(Succeed())
			}()

			resp := exchange(conn, protocol.Delete([]byte("name")))
			Expect(resp.Status).To(Equal(protocol.StatusOk))

			resp = exchange(conn, protocol.Delete([]byte("name")))
			Expect(resp.Status).To(Equal(protocol.StatusNotFound))
		})

		It("lists keys", func() {
			tcp := makeTCPServer(`{"a":"1","b":"2"}`)
			conn := dial(tcp)

			defer func() {
				conn.Close()
				Expect(tcp.Close()).To(Succeed())
			}()

			resp := exchange(conn, protocol.Keys())
			Expect(resp.Status).To(Equal(protocol.StatusOk))

			keys, err := protocol.DecodeKeys(resp.Payload)
			Expect(err).To(Succeed())
			Expect(keys).To(ConsistOf([]byte("a"), []byte("b")))
		})

		It("replies with an error and hangs up on a malformed frame", func() {
			tcp := makeTCPServer("")
			conn := dial(tcp)

			defer func() {
				conn.Close()
				Expect(tcp.Close()).To(Succeed())
			}()

			frame := protocol.EncodeCommand(protocol.Ping())
			frame[0] = 0xff

			_, err := conn.Write(frame)
			Expect(err).To(Succeed())

			resp, err := protocol.ReadResponse(conn, 0)
			Expect(err).To(Succeed())
			Expect(resp.Status.IsErr()).To(BeTrue())

			// The server drops the connection after a framing violation.
			_, err = protocol.ReadResponse(conn, 0)
			Expect(errors.Is(err, io.EOF) || errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})
	})
})

func makeTCPServer(restore string) *transport.TCP {
	store := storage.NewInmemoryStore()
	if restore != "" {
		Expect(store.Restore([]byte(restore))).To(Succeed())
	}

	log, err := zap.NewDevelopment()
	Expect(err).To(Succeed())

	tcp := transport.NewTCP(transport.Options{
		Log:          log,
		NumListeners: 1,
		Port:         0,
		Store:        store,
	})

	Expect(tcp.Start(context.Background())).To(Succeed())

	return tcp
}

func dial(tcp *transport.TCP) net.Conn {
	conn, err := net.Dial("tcp", tcp.Addr())
	Expect(err).To(Succeed())

	return conn
}

func exchange(conn net.Conn, cmd *protocol.Command) *protocol.Response {
	Expect(protocol.WriteCommand(conn, cmd)).To(Succeed())

	resp, err := protocol.ReadResponse(conn, 0)
	Expect(err).To(Succeed())

	return resp
}
