package furr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/furrdb/furr/internal/coarsetime"
	"github.com/furrdb/furr/wire"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 7070
)

// Config holds the connection settings of a Session.
type Config struct {
	// Host is the server host name or IP. Defaults to DefaultHost.
	Host string

	// Port is the server TCP port. Defaults to DefaultPort.
	Port int

	// Timeout bounds each call (request write plus response read), and the
	// dial when the context has no deadline. A context deadline that expires
	// earlier wins. Zero means no timeout.
	Timeout time.Duration

	// Dialer is used to open the connection. If nil, a zero net.Dialer is used.
	Dialer *net.Dialer

	// MaxMessageSize bounds a response line. Defaults to wire.DefaultMaxMessageSize.
	MaxMessageSize int

	// Logger receives session lifecycle events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Addr returns the host:port address to dial.
func (c Config) Addr() string {
	c = c.withDefaults()
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// State is the lifecycle state of a Session.
type State int32

const (
	StateConnected State = iota
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Session is one connection driving a strict request/response sequence.
//
// Each Call writes one command and reads exactly one response line before
// returning. The protocol carries no request identifier, so calls are never
// pipelined: concurrent Calls on the same Session are serialized. A Call
// waiting for its turn gives up when its context is done, leaving the
// session usable.
//
// A Session ends after a successful EXIT, after Close, or after any transport
// failure, timeout or cancellation that interrupted I/O. Closed is terminal.
type Session struct {
	addr    string
	timeout time.Duration
	logger  *zap.Logger

	calls  chan struct{} // one slot: one call at a time
	conn   net.Conn
	reader *wire.Reader

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error

	createdAt time.Time
	lastUsed  atomic.Int64 // unix nanoseconds
}

// Dial connects to the server described by cfg.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	return dialAddr(ctx, cfg.Addr(), cfg)
}

// dialAddr connects to addr. cfg must have its defaults applied.
func dialAddr(ctx context.Context, addr string, cfg Config) (*Session, error) {
	if _, ok := ctx.Deadline(); !ok && cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	conn, err := cfg.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("furr: dial %s: %w", addr, err)
	}

	cfg.Logger.Debug("session connected", zap.String("addr", addr))
	return NewSession(conn, cfg), nil
}

// NewSession wraps an established connection. The session owns conn.
func NewSession(conn net.Conn, cfg Config) *Session {
	cfg = cfg.withDefaults()

	s := &Session{
		addr:      conn.RemoteAddr().String(),
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		calls:     make(chan struct{}, 1),
		conn:      conn,
		reader:    wire.NewReader(conn, wire.WithMaxMessageSize(cfg.MaxMessageSize)),
		createdAt: coarsetime.Now(),
	}
	s.lastUsed.Store(s.createdAt.UnixNano())
	return s
}

// Addr returns the remote address of the connection.
func (s *Session) Addr() string {
	return s.addr
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastUsed returns when the last call completed.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Call sends cmd and waits for its response line.
//
// Errors:
//   - ErrNotConnected: the session has ended; nothing is sent.
//   - *wire.CodecError: cmd cannot be encoded; nothing is sent and the
//     session stays usable.
//   - ErrTimeout / ErrCancelled: the deadline or the context fired. When this
//     interrupts I/O the session is closed; the returned error also wraps the
//     *wire.TransportError.
//   - *wire.TransportError: the connection failed; the session is closed.
//
// A successful EXIT call closes the session.
func (s *Session) Call(ctx context.Context, cmd wire.Command) (wire.Response, error) {
	if s.State() == StateClosed {
		return wire.Response{}, ErrNotConnected
	}

	line, err := wire.Encode(cmd)
	if err != nil {
		return wire.Response{}, err
	}

	if err := ctx.Err(); err != nil {
		return wire.Response{}, contextError(err)
	}

	select {
	case s.calls <- struct{}{}:
	case <-ctx.Done():
		return wire.Response{}, contextError(ctx.Err())
	}
	defer func() { <-s.calls }()

	// Closed while waiting for the previous call.
	if s.State() == StateClosed {
		return wire.Response{}, ErrNotConnected
	}

	if err := s.conn.SetDeadline(s.deadline(ctx)); err != nil {
		return wire.Response{}, s.fail(ctx, cmd, &wire.TransportError{Op: "write", Kind: wire.KindWriteFailed, Err: err})
	}

	// Cancellation unblocks pending I/O by expiring the deadline.
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = s.conn.SetDeadline(time.Unix(1, 0))
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	if err := wire.WriteMessage(s.conn, line); err != nil {
		return wire.Response{}, s.fail(ctx, cmd, err)
	}

	msg, err := s.reader.ReadMessage()
	if err != nil {
		return wire.Response{}, s.fail(ctx, cmd, err)
	}

	s.lastUsed.Store(coarsetime.Now().UnixNano())
	resp := wire.DecodeResponse(msg)

	if cmd.Verb == wire.VerbExit {
		s.logger.Debug("session ended by EXIT", zap.String("addr", s.addr), zap.Stringer("response", resp))
		_ = s.Close()
	}

	return resp, nil
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// deadline returns the earlier of the configured timeout and the context deadline.
// The zero time means no deadline.
func (s *Session) deadline(ctx context.Context) time.Time {
	var d time.Time
	if s.timeout > 0 {
		d = time.Now().Add(s.timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}

// fail closes the session after an I/O failure and maps the error.
func (s *Session) fail(ctx context.Context, cmd wire.Command, err error) error {
	_ = s.Close()

	var te *wire.TransportError
	if errors.As(err, &te) && te.Kind == wire.KindTimeout {
		if errors.Is(ctx.Err(), context.Canceled) {
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		} else {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
	}

	s.logger.Warn("session closed after failed call",
		zap.String("addr", s.addr),
		zap.String("verb", string(cmd.Verb)),
		zap.Error(err),
	)
	return err
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
