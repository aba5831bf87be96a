package protocol

import (
	"encoding/binary"
	"io"
)

// EncodeCommand serialises cmd into a single command frame. Encoding is
// deterministic: the same command always yields the same bytes.
func EncodeCommand(cmd *Command) []byte {
	buf := make([]byte, cmd.EncodedSize())

	binary.LittleEndian.PutUint16(buf[0:2], MagicVersion)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(cmd.Op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(cmd.Key)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(cmd.Value)))
	binary.LittleEndian.PutUint32(buf[12:16], cmd.Flags)
	// buf[16:24] is reserved and stays zero

	n := copy(buf[CommandHeaderSize:], cmd.Key)
	copy(buf[CommandHeaderSize+n:], cmd.Value)

	return buf
}

// WriteCommand writes the full encoded command frame to w.
func WriteCommand(w io.Writer, cmd *Command) error {
	_, err := w.Write(EncodeCommand(cmd))
	return err
}

// EncodeResponse serialises resp into a single response frame.
func EncodeResponse(resp *Response) []byte {
	buf := make([]byte, ResponseHeaderSize+len(resp.Payload))

	binary.LittleEndian.PutUint16(buf[0:2], MagicVersion)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(resp.Status))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(resp.Payload)))
	// buf[8:20] is reserved and stays zero

	copy(buf[ResponseHeaderSize:], resp.Payload)

	return buf
}

// WriteResponse writes the full encoded response frame to w.
func WriteResponse(w io.Writer, resp *Response) error {
	_, err := w.Write(EncodeResponse(resp))
	return err
}
