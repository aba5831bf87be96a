package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeKeys builds the payload of a KEYS response: each key is a
// little-endian u32 length followed by the key bytes.
func EncodeKeys(keys [][]byte) []byte {
	size := 0
	for _, key := range keys {
		size += 4 + len(key)
	}

	buf := make([]byte, 0, size)
	for _, key := range keys {
		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], uint32(len(key)))

		buf = append(buf, length[:]...)
		buf = append(buf, key...)
	}

	return buf
}

// DecodeKeys parses the payload of a KEYS response.
func DecodeKeys(payload []byte) ([][]byte, error) {
	keys := make([][]byte, 0)

	for len(payload) > 0 {
		if len(payload) < 4 {
			return nil, fmt.Errorf("Key list ends inside a length prefix: %w",
				ErrMalformed)
		}

		length := int(binary.LittleEndian.Uint32(payload[:4]))
		payload = payload[4:]

		if len(payload) < length {
			return nil, fmt.Errorf("Key list ends inside a key: %w", ErrMalformed)
		}

		keys = append(keys, payload[:length])
		payload = payload[length:]
	}

	return keys, nil
}
