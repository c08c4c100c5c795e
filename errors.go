package furr

import (
	"errors"

	"github.com/furrdb/furr/wire"
)

var (
	// ErrNotConnected is returned by Call once the session has ended.
	// No network I/O is attempted.
	ErrNotConnected = errors.New("furr: session not connected")

	// ErrTimeout is returned when Config.Timeout or the context deadline expires.
	// If the deadline fired during I/O the session is closed.
	ErrTimeout = errors.New("furr: call timed out")

	// ErrCancelled is returned when the context is cancelled.
	// If the cancellation interrupted I/O the session is closed.
	ErrCancelled = errors.New("furr: call cancelled")

	// ErrUnexpectedResponse is returned by the typed helpers when a payload
	// does not follow the server's convention for the verb.
	ErrUnexpectedResponse = errors.New("furr: unexpected response")

	// ErrEmptyValue is returned by Set: an empty value cannot be told apart
	// from a missing key when read back with GET.
	ErrEmptyValue error = &wire.CodecError{
		Kind:    wire.KindInvalidArgument,
		Message: "empty value is indistinguishable from a missing key",
	}

	ErrNoServers    = errors.New("furr: no servers available")
	ErrClientClosed = errors.New("furr: client closed")
)
