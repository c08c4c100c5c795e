package wire

import (
	"errors"
	"fmt"
	"net"
)

// Error types for the FurrDB line protocol.
// They tell callers whether the connection can still be used after a failure:
// transport errors leave the byte stream at an unknown position and always
// require a new connection, codec and server errors do not.

var (
	// ErrEmptyCommand is returned by ParseCommand for a blank line.
	ErrEmptyCommand = errors.New("wire: empty command")
)

// TransportKind classifies a TransportError.
type TransportKind int

const (
	// KindWriteFailed indicates the connection failed while a message was being written.
	KindWriteFailed TransportKind = iota + 1
	// KindConnectionClosed indicates the peer closed the stream (or the read failed)
	// before a complete message was received.
	KindConnectionClosed
	// KindTimeout indicates a read or write deadline expired.
	KindTimeout
	// KindMessageTooLong indicates an inbound line exceeded the reader's limit.
	KindMessageTooLong
)

func (k TransportKind) String() string {
	switch k {
	case KindWriteFailed:
		return "write failed"
	case KindConnectionClosed:
		return "connection closed"
	case KindTimeout:
		return "timeout"
	case KindMessageTooLong:
		return "message too long"
	default:
		return fmt.Sprintf("TransportKind(%d)", int(k))
	}
}

// TransportError is a framing-level failure on the underlying stream.
//
// Connection handling: CLOSE. A partially written command or partially read
// response cannot be resumed.
type TransportError struct {
	Op   string // "read" or "write"
	Kind TransportKind
	Err  error // underlying I/O error, if any
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("wire: %s: %s", e.Op, e.Kind)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error was caused by an expired deadline.
func (e *TransportError) Timeout() bool {
	return e.Kind == KindTimeout
}

func (e *TransportError) ShouldCloseConnection() bool {
	return true
}

// CodecKind classifies a CodecError.
type CodecKind int

const (
	// KindInvalidArgument indicates input that cannot be encoded without
	// corrupting framing (or that breaks the verb's arity rules).
	KindInvalidArgument CodecKind = iota + 1
)

// CodecError is a local validation failure detected before anything is sent.
//
// Connection handling: REUSE. Nothing reached the wire.
type CodecError struct {
	Kind    CodecKind
	Message string
}

func (e *CodecError) Error() string {
	return "wire: invalid argument: " + e.Message
}

func (e *CodecError) ShouldCloseConnection() bool {
	return false
}

// ServerError is an "ERR <reason>" payload returned by the server.
//
// Connection handling: REUSE. The server answered with exactly one line.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "ERR " + e.Message
}

func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is implemented by every error type of this package.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns false for nil, CodecError and ServerError; true for TransportError
// and for any error it does not recognise.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}

func invalidArgument(format string, args ...any) *CodecError {
	return &CodecError{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// classifyIOError maps an I/O error from op to a TransportError.
func classifyIOError(op string, fallback TransportKind, err error) *TransportError {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TransportError{Op: op, Kind: KindTimeout, Err: err}
	}
	return &TransportError{Op: op, Kind: fallback, Err: err}
}
