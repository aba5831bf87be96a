package protocol_test

import (
	"bytes"
	"encoding/binary"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/veddb/veddb-go/protocol"
)

var _ = Describe("Writer", func() {
	Describe("EncodeCommand", func() {
		It("writes a 24 byte header before the payload", func() {
			frame := protocol.EncodeCommand(protocol.Set([]byte("key"), []byte("value")))
			Expect(frame).To(HaveLen(24 + 3 + 5))
		})

		It("starts with the magic/version tag in little-endian", func() {
			frame := protocol.EncodeCommand(protocol.Ping())
			Expect(binary.LittleEndian.Uint16(frame[0:2])).To(Equal(protocol.MagicVersion))
		})

		It("encodes the opcode and lengths", func() {
			frame := protocol.EncodeCommand(protocol.Set([]byte("key"), []byte("value")))

			Expect(binary.LittleEndian.Uint16(frame[2:4])).To(Equal(uint16(protocol.OpSet)))
			Expect(binary.LittleEndian.Uint32(frame[4:8])).To(Equal(uint32(3)))
			Expect(binary.LittleEndian.Uint32(frame[8:12])).To(Equal(uint32(5)))
		})

		It("places the key immediately before the value", func() {
			frame := protocol.EncodeCommand(protocol.Set([]byte("key"), []byte("value")))
			Expect(frame[24:27]).To(Equal([]byte("key")))
			Expect(frame[27:32]).To(Equal([]byte("value")))
		})

		It("leaves the reserved header bytes zero", func() {
			frame := protocol.EncodeCommand(protocol.Get([]byte("key")))
			Expect(frame[16:24]).To(Equal(make([]byte, 8)))
		})

		It("is deterministic", func() {
			cmd := protocol.Set([]byte("key"), []byte("value"))
			Expect(protocol.EncodeCommand(cmd)).To(Equal(protocol.EncodeCommand(cmd)))
		})
	})

	Describe("EncodeResponse", func() {
		It("writes a 20 byte header before the payload", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status:  protocol.StatusOk,
				Payload: []byte("hello"),
			})
			Expect(frame).To(HaveLen(20 + 5))
		})

		It("encodes the status and payload length", func() {
			frame := protocol.EncodeResponse(&protocol.Response{
				Status:  protocol.StatusNotFound,
				Payload: nil,
			})

			Expect(binary.LittleEndian.Uint16(frame[0:2])).To(Equal(protocol.MagicVersion))
			Expect(binary.LittleEndian.Uint16(frame[2:4])).To(Equal(uint16(protocol.StatusNotFound)))
			Expect(binary.LittleEndian.Uint32(frame[4:8])).To(Equal(uint32(0)))
		})
	})

	Describe("WriteCommand", func() {
		It("writes the full frame", func() {
			w := bytes.NewBuffer([]byte{})
			cmd := protocol.Delete([]byte("key"))

			Expect(protocol.WriteCommand(w, cmd)).To(Succeed())
			Expect(w.Bytes()).To(Equal(protocol.EncodeCommand(cmd)))
		})
	})
})
