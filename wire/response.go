package wire

import (
	"bytes"
	"strings"
)

// Response is the payload of one response line.
//
// The codec does not interpret it. The helper methods apply the payload
// convention of the FurrDB server:
//
//	SET    -> OK
//	GET    -> the value, or an empty line when the key is missing
//	EXISTS -> 1 | 0
//	DEL    -> 1 | 0
//	KEYS   -> comma-joined sorted keys, or an empty line
//	EXIT   -> BYE
//	error  -> ERR <reason>
type Response struct {
	Payload []byte
}

// DecodeResponse wraps a message as a Response. The payload is the message
// content unchanged.
func DecodeResponse(msg []byte) Response {
	return Response{Payload: msg}
}

// String returns the payload as a string.
func (r Response) String() string {
	return string(r.Payload)
}

// IsEmpty reports whether the payload is an empty line.
func (r Response) IsEmpty() bool {
	return len(r.Payload) == 0
}

// IsOK reports whether the payload is exactly "OK".
func (r Response) IsOK() bool {
	return string(r.Payload) == PayloadOK
}

// IsError reports whether the payload is an "ERR" failure.
func (r Response) IsError() bool {
	if !bytes.HasPrefix(r.Payload, []byte(ErrorPrefix)) {
		return false
	}
	return len(r.Payload) == len(ErrorPrefix) || r.Payload[len(ErrorPrefix)] == ' '
}

// Err returns a *ServerError for "ERR" payloads, nil otherwise.
func (r Response) Err() error {
	if !r.IsError() {
		return nil
	}
	msg := strings.TrimPrefix(string(r.Payload[len(ErrorPrefix):]), Space)
	return &ServerError{Message: msg}
}

// Bool decodes a "1"/"0" payload. ok is false for any other payload.
func (r Response) Bool() (value bool, ok bool) {
	switch string(r.Payload) {
	case PayloadTrue:
		return true, true
	case PayloadFalse:
		return false, true
	default:
		return false, false
	}
}

// List splits a KEYS payload. An empty payload yields an empty list.
func (r Response) List() []string {
	if len(r.Payload) == 0 {
		return []string{}
	}
	return strings.Split(string(r.Payload), KeysSeparator)
}

// FormatError returns the payload for a failure with the given reason.
func FormatError(reason string) string {
	return ErrorPrefix + Space + reason
}
