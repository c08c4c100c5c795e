package wire

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/furrdb/furr/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		expected string
	}{
		{"command", "SET a 1", "SET a 1\n"},
		{"empty message", "", "\n"},
		{"value with spaces", "SET k hello world", "SET k hello world\n"},
		{"utf-8", "SET k ünïcødé", "SET k ünïcødé\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteMessage(&buf, []byte(tt.msg)))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteMessage_RejectsNewline(t *testing.T) {
	conn := testutils.NewConnectionMock()

	err := WriteMessage(conn, []byte("SET a 1\nDEL a"))

	var ce *CodecError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindInvalidArgument, ce.Kind)
	assert.Zero(t, conn.WriteCalls(), "nothing may be written")
}

func TestWriteMessage_RetriesShortWrites(t *testing.T) {
	conn := testutils.NewConnectionMock()
	conn.MaxWrite = 3

	require.NoError(t, WriteMessage(conn, []byte("SET user:1:name Alice")))
	assert.Equal(t, "SET user:1:name Alice\n", conn.Written())
	assert.Greater(t, conn.WriteCalls(), 1)
}

func TestWriteMessage_WriteFailed(t *testing.T) {
	conn := testutils.NewConnectionMock()
	conn.WriteErr = errors.New("broken pipe")

	err := WriteMessage(conn, []byte("GET a"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindWriteFailed, te.Kind)
	assert.Equal(t, "write", te.Op)
	assert.True(t, ShouldCloseConnection(err))
}

func TestWriteMessage_ClosedConnection(t *testing.T) {
	conn := testutils.NewConnectionMock()
	require.NoError(t, conn.Close())

	err := WriteMessage(conn, []byte("KEYS"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindWriteFailed, te.Kind)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestWriteMessage_Timeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	// Nobody reads from server, so the pipe write blocks until the deadline.
	require.NoError(t, client.SetWriteDeadline(time.Now().Add(10*time.Millisecond)))

	err := WriteMessage(client, []byte("GET a"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindTimeout, te.Kind)
}

type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }

func TestWriteMessage_NoProgress(t *testing.T) {
	err := WriteMessage(zeroWriter{}, []byte("KEYS"))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindWriteFailed, te.Kind)
}

func TestWriteCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommand(&buf, NewSet("greeting", "hello there")))
	require.NoError(t, WriteCommand(&buf, NewGet("greeting")))
	assert.Equal(t, "SET greeting hello there\nGET greeting\n", buf.String())

	err := WriteCommand(&buf, NewGet("bad key"))
	var ce *CodecError
	require.ErrorAs(t, err, &ce)
}

func TestRoundTrip_LoopbackEcho(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := NewReader(conn)
		for {
			msg, err := r.ReadMessage()
			if err != nil {
				return
			}
			if WriteMessage(conn, msg) != nil {
				return
			}
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	r := NewReader(conn)

	commands := []Command{
		NewSet("user:1:name", "Alice"),
		NewSet("user:1:bio", "likes  double  spaces "),
		NewSet("empty", ""),
		NewSet("crlf", "ends with cr\r"),
		NewGet("user:1:name"),
		NewExists("user:1:email"),
		NewDel("user:1:email"),
		NewKeys(),
		NewExit(),
	}

	for _, cmd := range commands {
		encoded, err := Encode(cmd)
		require.NoError(t, err)
		require.NoError(t, WriteMessage(conn, encoded))

		msg, err := r.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, encoded, DecodeResponse(msg).Payload)
	}
}
