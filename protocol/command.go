package protocol

// MagicVersion tags every frame. The high byte is 'V', the low byte 'D'.
// Bumping the protocol version means picking a new tag.
const MagicVersion uint16 = 0x5644

const (
	// CommandHeaderSize is the fixed size of an encoded command header.
	CommandHeaderSize = 24

	// ResponseHeaderSize is the fixed size of an encoded response header.
	ResponseHeaderSize = 20
)

// DefaultMaxFrameSize bounds the total size of a single frame (16MiB).
const DefaultMaxFrameSize = 16 * 1024 * 1024

type OpCode uint16

const (
	OpPing   OpCode = 0x01
	OpSet    OpCode = 0x02
	OpGet    OpCode = 0x03
	OpDelete OpCode = 0x04
	OpKeys   OpCode = 0x05
)

func (o OpCode) String() string {
	switch o {
	case OpPing:
		return "PING"
	case OpSet:
		return "SET"
	case OpGet:
		return "GET"
	case OpDelete:
		return "DELETE"
	case OpKeys:
		return "KEYS"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether the opcode is one this protocol version defines.
func (o OpCode) Known() bool {
	return o >= OpPing && o <= OpKeys
}

// Command is one client instruction to a VedDB server. Commands are built
// per call, encoded once and discarded.
type Command struct {
	Op    OpCode
	Key   []byte
	Value []byte

	// Flags is a reserved bitfield. It is carried on the wire for forward
	// compatibility and must be zero for the current protocol version.
	Flags uint32
}

// EncodedSize returns the full frame size of the encoded command.
func (c *Command) EncodedSize() int {
	return CommandHeaderSize + len(c.Key) + len(c.Value)
}

func Ping() *Command {
	return &Command{Op: OpPing}
}

func Get(key []byte) *Command {
	return &Command{Op: OpGet, Key: key}
}

func Set(key, value []byte) *Command {
	return &Command{Op: OpSet, Key: key, Value: value}
}

func Delete(key []byte) *Command {
	return &Command{Op: OpDelete, Key: key}
}

func Keys() *Command {
	return &Command{Op: OpKeys}
}
