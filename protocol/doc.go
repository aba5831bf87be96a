package protocol

// This package implements encoding and decoding of the binary frames that
// VedDB uses to communicate with its clients.
//
// This protocol aims to be
//
// - trivial to frame (fixed-size headers, explicit lengths)
// - cheap to parse (no scanning, no delimiters)
// - forward compatible (reserved header space, open status code range)
//
// Every exchange is a single command frame from the client followed by a
// single response frame from the server. There is no interleaving on a
// connection; a client that wants concurrency opens more connections.
//
// === Command frames
//
// A command frame is a fixed 24 byte header followed by the key bytes and
// then the value bytes. All integers are little-endian.
//
//   ```
//   offset  size  field
//   0       2     magic/version  (0x5644, "VD")
//   2       2     opcode
//   4       4     key length
//   8       4     value length
//   12      4     flags          (reserved bitfield, currently zero)
//   16      8     reserved
//   24      -     key bytes, immediately followed by value bytes
//   ```
//
// Opcodes are PING (0x01), SET (0x02), GET (0x03), DELETE (0x04) and
// KEYS (0x05). Ops without a value (everything except SET) encode a zero
// value length.
//
// === Response frames
//
// A response frame is a fixed 20 byte header followed by the payload.
//
//   ```
//   offset  size  field
//   0       2     magic/version  (0x5644, "VD")
//   2       2     status
//   4       4     payload length
//   8       12    reserved
//   20      -     payload bytes
//   ```
//
// Status 0x00 is OK and 0x01 is NOT FOUND. Any other value is a
// server-defined error class whose payload is a human readable UTF-8
// message. Clients must treat codes they do not recognise as server
// errors, not as malformed frames.
//
// === Payloads
//
// - GET responds OK with the value as the payload.
// - KEYS responds OK with a key list payload: each key is encoded as a
//   little-endian u32 length followed by the key bytes, concatenated.
// - PING, SET and DELETE respond OK with an empty payload.
//
// === Malformed frames
//
// A frame is malformed when its magic/version does not match, or when the
// stream ends before the declared lengths are satisfied. A frame whose
// declared lengths exceed the configured maximum frame size is rejected
// before any payload is read. A short read is never parsed as a response.
