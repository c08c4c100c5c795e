package testutils

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// ConnectionMock is a net.Conn serving scripted reads and recording writes.
//
// Each Read returns at most one scripted chunk (a chunk larger than the read
// buffer is served across several reads), which lets tests control exactly
// where the byte stream is split. Once the chunks are exhausted Read returns
// ReadErr, io.EOF by default.
type ConnectionMock struct {
	mu     sync.Mutex
	chunks [][]byte
	writes bytes.Buffer

	// ReadErr is returned when no chunk is left.
	ReadErr error

	// WriteErr, when set, fails every Write without accepting bytes.
	WriteErr error

	// MaxWrite caps the bytes accepted per Write call (0 accepts everything).
	// Short writes return a nil error, like a misbehaving writer.
	MaxWrite int

	writeCalls int
	closed     bool
}

// NewConnectionMock creates a mock whose reads return chunks one by one.
func NewConnectionMock(chunks ...string) *ConnectionMock {
	m := &ConnectionMock{ReadErr: io.EOF}
	for _, c := range chunks {
		m.chunks = append(m.chunks, []byte(c))
	}
	return m
}

// SplitAt cuts s at the given increasing byte offsets.
func SplitAt(s string, offsets ...int) []string {
	parts := make([]string, 0, len(offsets)+1)
	prev := 0
	for _, off := range offsets {
		parts = append(parts, s[prev:off])
		prev = off
	}
	return append(parts, s[prev:])
}

func (m *ConnectionMock) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	if len(m.chunks) == 0 {
		return 0, m.ReadErr
	}

	n := copy(b, m.chunks[0])
	m.chunks[0] = m.chunks[0][n:]
	if len(m.chunks[0]) == 0 {
		m.chunks = m.chunks[1:]
	}
	return n, nil
}

func (m *ConnectionMock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCalls++
	if m.closed {
		return 0, net.ErrClosed
	}
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	if m.MaxWrite > 0 && len(b) > m.MaxWrite {
		b = b[:m.MaxWrite]
	}
	return m.writes.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns every byte accepted by Write so far.
func (m *ConnectionMock) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes.String()
}

// WriteCalls returns the number of Write invocations, including failed ones.
func (m *ConnectionMock) WriteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCalls
}

// IsClosed reports whether Close was called.
func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7070}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }
