package protocol

import "fmt"

type Status uint16

const (
	StatusOk       Status = 0x00
	StatusNotFound Status = 0x01

	// Statuses at or above StatusErr are server-defined error classes.
	// The response payload carries a human readable UTF-8 message.
	StatusErr Status = 0x02
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "OK"
	case StatusNotFound:
		return "NOT_FOUND"
	default:
		return fmt.Sprintf("ERR(0x%02x)", uint16(s))
	}
}

// IsErr reports whether the status is a server error class. Codes this
// protocol version does not define still report true so that newer servers
// degrade into generic errors rather than malformed frames.
func (s Status) IsErr() bool {
	return s >= StatusErr
}

// Known reports whether the status is one this protocol version defines by
// name. Unknown codes are still valid responses, see IsErr.
func (s Status) Known() bool {
	return s == StatusOk || s == StatusNotFound || s == StatusErr
}

// Response is one server reply to a single command.
type Response struct {
	Status  Status
	Payload []byte
}

// Ok reports whether the response indicates success.
func (r *Response) Ok() bool {
	return r.Status == StatusOk
}

// ErrorMessage returns the server error message carried in the payload, or
// the empty string when the response is not a server error.
func (r *Response) ErrorMessage() string {
	if !r.Status.IsErr() {
		return ""
	}

	return string(r.Payload)
}
