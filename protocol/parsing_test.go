package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/veddb/veddb-go/protocol"
)

var _ = Describe("Parsing", func() {
	Describe("ReadCommand()", func() {
		It("round-trips every opcode", func() {
			commands := []*protocol.Command{
				protocol.Ping(),
				protocol.Get([]byte("key")),
				protocol.Set([]byte("key"), []byte("value")),
				protocol.Delete([]byte("key")),
				protocol.Keys(),
			}

			for _, cmd := range commands {
				r := bytes.NewReader(protocol.EncodeCommand(cmd))

				decoded, err := protocol.ReadCommand(r, 0)
				Expect(err).To(Succeed())
				Expect(decoded.Op).To(Equal(cmd.Op))
				Expect(decoded.Key).To(Equal(append([]byte{}, cmd.Key...)))
				Expect(decoded.Value).To(Equal(append([]byte{}, cmd.Value...)))
			}
		})

		It("returns io.EOF when the stream is empty", func() {
			_, err := protocol.ReadCommand(bytes.NewReader(nil), 0)
			Expect(err).To(MatchError(io.EOF))
		})

		It("rejects a truncated header as malformed", func() {
			frame := protocol.EncodeCommand(protocol.Ping())

			_, err := protocol.ReadCommand(bytes.NewReader(frame[:10]), 0)
			Expect(errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})

		It("rejects a truncated payload as malformed", func() {
			frame := protocol.EncodeCommand(protocol.Set([]byte("key"), []byte("value")))

			_, err := protocol.ReadCommand(bytes.NewReader(frame[:len(frame)-1]), 0)
			Expect(errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})

		It("rejects a bad magic/version tag", func() {
			frame := protocol.EncodeCommand(protocol.Ping())
			frame[0] = 0xff

			_, err := protocol.ReadCommand(bytes.NewReader(frame), 0)
			Expect(errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})

		It("rejects declared lengths above the maximum frame size", func() {
			frame := protocol.EncodeCommand(protocol.Set([]byte("key"), []byte("value")))

			_, err := protocol.ReadCommand(bytes.NewReader(frame), 30)
			Expect(errors.Is(err, protocol.ErrFrameTooLarge)).To(BeTrue())
		})
	})

	Describe("ReadResponse()", func() {
		It("parses a valid OK response", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status:  protocol.StatusOk,
				Payload: []byte("hello"),
			})

			resp, err := protocol.ReadResponse(bytes.NewReader(frame), 0)
			Expect(err).To(Succeed())
			Expect(resp.Ok()).To(BeTrue())
			Expect(resp.Payload).To(Equal([]byte("hello")))
		})

		It("parses a NOT_FOUND response", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status: protocol.StatusNotFound,
			})

			resp, err := protocol.ReadResponse(bytes.NewReader(frame), 0)
			Expect(err).To(Succeed())
			Expect(resp.Status).To(Equal(protocol.StatusNotFound))
			Expect(resp.Ok()).To(BeFalse())
		})

		It("treats unknown status codes as server errors", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status:  protocol.Status(0x7f),
				Payload: []byte("future error class"),
			})

			resp, err := protocol.ReadResponse(bytes.NewReader(frame), 0)
			Expect(err).To(Succeed())
			Expect(resp.Status.IsErr()).To(BeTrue())
			Expect(resp.ErrorMessage()).To(Equal("future error class"))
		})

		It("rejects a truncated stream as malformed", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status:  protocol.StatusOk,
				Payload: []byte("hello"),
			})

			_, err := protocol.ReadResponse(bytes.NewReader(frame[:22]), 0)
			Expect(errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})

		It("rejects a declared payload above the maximum frame size before reading it", func() {
			header := make([]byte, protocol.ResponseHeaderSize)
			binary.LittleEndian.PutUint16(header[0:2], protocol.MagicVersion)
			binary.LittleEndian.PutUint16(header[2:4], uint16(protocol.StatusOk))
			binary.LittleEndian.PutUint32(header[4:8], 1<<30)

			_, err := protocol.ReadResponse(bytes.NewReader(header), 1024)
			Expect(errors.Is(err, protocol.ErrFrameTooLarge)).To(BeTrue())
		})
	})

	Describe("DecodeResponse()", func() {
		It("parses a complete frame held in memory", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status:  protocol.StatusOk,
				Payload: []byte("hello"),
			})

			resp, err := protocol.DecodeResponse(frame, 0)
			Expect(err).To(Succeed())
			Expect(resp.Payload).To(Equal([]byte("hello")))
		})

		It("rejects a frame shorter than its declared payload", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status:  protocol.StatusOk,
				Payload: []byte("hello"),
			})

			_, err := protocol.DecodeResponse(frame[:len(frame)-2], 0)
			Expect(errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})
	})

	Describe("Key lists", func() {
		It("round-trips a list of keys", func() {
			keys := [][]byte{[]byte("a"), []byte("b"), []byte("longer-key")}

			decoded, err := protocol.DecodeKeys(protocol.EncodeKeys(keys))
			Expect(err).To(Succeed())
			Expect(decoded).To(Equal(keys))
		})

		It("round-trips an empty list", func() {
			decoded, err := protocol.DecodeKeys(protocol.EncodeKeys(nil))
			Expect(err).To(Succeed())
			Expect(decoded).To(BeEmpty())
		})

		It("rejects a payload ending inside a length prefix", func() {
			_, err := protocol.DecodeKeys([]byte{0x01, 0x00})
			Expect(errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})

		It("rejects a payload ending inside a key", func() {
			payload := protocol.EncodeKeys([][]byte{[]byte("abcdef")})

			_, err := protocol.DecodeKeys(payload[:len(payload)-1])
			Expect(errors.Is(err, protocol.ErrMalformed)).To(BeTrue())
		})
	})
})
