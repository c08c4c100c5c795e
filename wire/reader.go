package wire

import (
	"bytes"
	"errors"
	"io"
	"math"
)

const maxConsecutiveEmptyReads = 100

var errNegativeRead = errors.New("wire: reader returned negative count from Read")

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxMessageSize sets the largest message (delimiter excluded) the Reader accepts.
// Values <= 0 keep DefaultMaxMessageSize. The buffer must also hold the
// delimiter, so n is capped at math.MaxInt-1.
func WithMaxMessageSize(n int) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.max = min(n, math.MaxInt-1)
		}
	}
}

// Reader splits a byte stream into newline-terminated messages.
//
// It owns the read buffer for one connection: bytes received after a delimiter
// stay buffered for the next ReadMessage call, so several messages delivered
// by one Read are returned one at a time. At most one partial message is held
// between calls.
//
// A Reader is not safe for concurrent use. After any error the Reader is
// unusable and every later call returns the same error.
type Reader struct {
	rd  io.Reader
	buf []byte
	r   int // start of unconsumed bytes
	w   int // end of buffered bytes

	// scanned is how many bytes after r are known not to contain a delimiter.
	scanned int

	max     int
	pending error // error returned together with data by the last Read
	err     error // sticky
}

// NewReader returns a Reader reading from rd.
func NewReader(rd io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{
		rd:  rd,
		max: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	size := defaultReadBufferSize
	if size > r.max+1 {
		size = r.max + 1
	}
	r.buf = make([]byte, size)
	return r
}

// ReadMessage returns the next message, without its delimiter.
//
// A bare delimiter yields an empty, non-nil message.
//
// Errors are always *TransportError:
//   - KindConnectionClosed: end of stream (or a failed read) before a delimiter.
//     Buffered bytes of the incomplete message are discarded, never returned.
//   - KindTimeout: the underlying connection's read deadline expired.
//   - KindMessageTooLong: the message exceeds the configured maximum size.
//
// The returned slice is owned by the caller.
func (r *Reader) ReadMessage() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}

	for {
		if i := bytes.IndexByte(r.buf[r.r+r.scanned:r.w], Delimiter); i >= 0 {
			end := r.r + r.scanned + i
			msg := make([]byte, end-r.r)
			copy(msg, r.buf[r.r:end])
			r.r = end + 1
			r.scanned = 0
			return msg, nil
		}
		r.scanned = r.w - r.r

		if r.scanned > r.max {
			return nil, r.fail(&TransportError{Op: "read", Kind: KindMessageTooLong})
		}

		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, r.fail(&TransportError{Op: "read", Kind: KindConnectionClosed, Err: io.EOF})
			}
			return nil, r.fail(classifyIOError("read", KindConnectionClosed, err))
		}
	}
}

// Buffered returns the number of received bytes not yet returned as a message.
func (r *Reader) Buffered() int {
	return r.w - r.r
}

// fail discards the partial message and makes err sticky.
func (r *Reader) fail(err *TransportError) error {
	r.r, r.w, r.scanned = 0, 0, 0
	r.err = err
	return err
}

// fill reads at least one byte into the buffer, compacting or growing it first.
func (r *Reader) fill() error {
	if r.pending != nil {
		err := r.pending
		r.pending = nil
		return err
	}

	if r.r > 0 {
		copy(r.buf, r.buf[r.r:r.w])
		r.w -= r.r
		r.r = 0
	}

	if r.w == len(r.buf) {
		size := r.max + 1
		if len(r.buf) <= size/2 {
			size = 2 * len(r.buf)
		}
		grown := make([]byte, size)
		copy(grown, r.buf[:r.w])
		r.buf = grown
	}

	for range maxConsecutiveEmptyReads {
		n, err := r.rd.Read(r.buf[r.w:])
		if n < 0 {
			panic(errNegativeRead)
		}
		r.w += n
		if n > 0 {
			// Deliver the data first, the error on the next fill.
			r.pending = err
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}
