package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformed     = errors.New("Malformed frame")
	ErrFrameTooLarge = errors.New("Frame exceeds the maximum frame size")
)

func maxFrame(maxFrameSize int) int {
	if maxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}

	return maxFrameSize
}

// ReadCommand reads exactly one command frame from r.
//
// An io.EOF before any header byte arrives is returned as-is so callers can
// tell a cleanly closed peer from a truncated frame.
func ReadCommand(r io.Reader, maxFrameSize int) (*Command, error) {
	var header [CommandHeaderSize]byte

	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			// Nothing was read, the peer closed cleanly between frames.
			return nil, io.EOF
		}

		return nil, truncatedOr(err, "Failed to read command header")
	}

	if magic := binary.LittleEndian.Uint16(header[0:2]); magic != MagicVersion {
		return nil, fmt.Errorf("Unexpected magic 0x%04x: %w", magic, ErrMalformed)
	}

	op := OpCode(binary.LittleEndian.Uint16(header[2:4]))
	keyLen := int(binary.LittleEndian.Uint32(header[4:8]))
	valueLen := int(binary.LittleEndian.Uint32(header[8:12]))
	flags := binary.LittleEndian.Uint32(header[12:16])

	if CommandHeaderSize+keyLen+valueLen > maxFrame(maxFrameSize) {
		return nil, fmt.Errorf("Declared command length %d: %w",
			keyLen+valueLen, ErrFrameTooLarge)
	}

	payload := make([]byte, keyLen+valueLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, truncatedOr(err, "Failed to read command payload")
	}

	return &Command{
		Op:    op,
		Key:   payload[:keyLen],
		Value: payload[keyLen:],
		Flags: flags,
	}, nil
}

// ReadResponse reads exactly one response frame from r. The header is read
// in full before the payload; a short read is never parsed as a response.
func ReadResponse(r io.Reader, maxFrameSize int) (*Response, error) {
	var header [ResponseHeaderSize]byte

	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			// The peer hung up before sending anything. That is a transport
			// failure, not a malformed frame.
			return nil, io.EOF
		}

		return nil, truncatedOr(err, "Failed to read response header")
	}

	status, payloadLen, err := parseResponseHeader(header)
	if err != nil {
		return nil, err
	}

	if ResponseHeaderSize+payloadLen > maxFrame(maxFrameSize) {
		return nil, fmt.Errorf("Declared payload length %d: %w",
			payloadLen, ErrFrameTooLarge)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, truncatedOr(err, "Failed to read response payload")
	}

	return &Response{Status: status, Payload: payload}, nil
}

// truncatedOr maps a stream that ended mid-frame onto ErrMalformed and lets
// every other I/O failure (deadline, reset) surface unchanged so that callers
// can classify it as a transport error.
func truncatedOr(err error, context string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", context, ErrMalformed)
	}

	return fmt.Errorf("%s: %w", context, err)
}

// DecodeResponse parses a complete response frame held in memory. It is the
// pure counterpart of ReadResponse.
func DecodeResponse(data []byte, maxFrameSize int) (*Response, error) {
	if len(data) < ResponseHeaderSize {
		return nil, fmt.Errorf("Response of %d bytes is too short: %w",
			len(data), ErrMalformed)
	}

	var header [ResponseHeaderSize]byte
	copy(header[:], data)

	status, payloadLen, err := parseResponseHeader(header)
	if err != nil {
		return nil, err
	}

	if ResponseHeaderSize+payloadLen > maxFrame(maxFrameSize) {
		return nil, fmt.Errorf("Declared payload length %d: %w",
			payloadLen, ErrFrameTooLarge)
	}

	if len(data) < ResponseHeaderSize+payloadLen {
		return nil, fmt.Errorf("Response ends before its declared payload: %w",
			ErrMalformed)
	}

	return &Response{
		Status:  status,
		Payload: data[ResponseHeaderSize : ResponseHeaderSize+payloadLen],
	}, nil
}

func parseResponseHeader(header [ResponseHeaderSize]byte) (Status, int, error) {
	if magic := binary.LittleEndian.Uint16(header[0:2]); magic != MagicVersion {
		return 0, 0, fmt.Errorf("Unexpected magic 0x%04x: %w", magic, ErrMalformed)
	}

	status := Status(binary.LittleEndian.Uint16(header[2:4]))
	payloadLen := int(binary.LittleEndian.Uint32(header[4:8]))

	return status, payloadLen, nil
}
