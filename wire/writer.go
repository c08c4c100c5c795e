package wire

import (
	"bytes"
	"io"
	"sync"
)

const (
	maxConsecutiveEmptyWrites = 100

	// Buffers grown past this size are not returned to the pool.
	maxPooledBufferSize = 64 << 10
)

// Buffer pool for building outbound messages
var bufferPool = sync.Pool{
	New: func() any {
		// Typical command is well under 100 bytes
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBufferSize {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// WriteMessage writes msg followed by the delimiter to w.
//
// The message and its delimiter are sent as one byte sequence; short writes
// are retried until every byte is written or w fails.
// A message containing the delimiter is rejected with a *CodecError before
// anything is written. Write failures are returned as *TransportError.
func WriteMessage(w io.Writer, msg []byte) error {
	if bytes.IndexByte(msg, Delimiter) >= 0 {
		return invalidArgument("message contains a newline")
	}

	buf := getBuffer()
	defer putBuffer(buf)

	buf.Write(msg)
	buf.WriteByte(Delimiter)
	return writeFull(w, buf.Bytes())
}

// WriteCommand encodes cmd and writes it as one message.
func WriteCommand(w io.Writer, cmd Command) error {
	buf := getBuffer()
	defer putBuffer(buf)

	line, err := AppendCommand(buf.AvailableBuffer(), cmd)
	if err != nil {
		return err
	}
	line = append(line, Delimiter)
	return writeFull(w, line)
}

func writeFull(w io.Writer, p []byte) error {
	empty := 0
	for len(p) > 0 {
		n, err := w.Write(p)
		p = p[n:]
		if err != nil {
			return classifyIOError("write", KindWriteFailed, err)
		}
		if n > 0 {
			empty = 0
			continue
		}
		empty++
		if empty >= maxConsecutiveEmptyWrites {
			return &TransportError{Op: "write", Kind: KindWriteFailed, Err: io.ErrShortWrite}
		}
	}
	return nil
}
