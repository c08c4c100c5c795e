package wire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldCloseConnection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"codec error", &CodecError{Kind: KindInvalidArgument, Message: "x"}, false},
		{"server error", &ServerError{Message: "x"}, false},
		{"wrapped server error", fmt.Errorf("get: %w", &ServerError{Message: "x"}), false},
		{"transport error", &TransportError{Op: "read", Kind: KindConnectionClosed}, true},
		{"wrapped transport error", fmt.Errorf("call: %w", &TransportError{Op: "write", Kind: KindWriteFailed}), true},
		{"unknown error", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldCloseConnection(tt.err))
		})
	}
}

func TestTransportError_Message(t *testing.T) {
	err := &TransportError{Op: "read", Kind: KindConnectionClosed, Err: io.EOF}
	assert.Equal(t, "wire: read: connection closed: EOF", err.Error())
	assert.ErrorIs(t, err, io.EOF)

	err = &TransportError{Op: "read", Kind: KindMessageTooLong}
	assert.Equal(t, "wire: read: message too long", err.Error())
}

func TestClassifyIOError(t *testing.T) {
	te := classifyIOError("read", KindConnectionClosed, os.ErrDeadlineExceeded)
	assert.Equal(t, KindTimeout, te.Kind)

	te = classifyIOError("write", KindWriteFailed, errors.New("broken pipe"))
	assert.Equal(t, KindWriteFailed, te.Kind)
}

func TestServerError_Message(t *testing.T) {
	assert.Equal(t, "ERR missing key", (&ServerError{Message: "missing key"}).Error())
}
