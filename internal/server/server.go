// Package server is a FurrDB server speaking the line protocol over TCP.
// It backs the furrdb command and the integration tests of the client.
package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/furrdb/furr/wire"
)

const DefaultAddr = "localhost:7070"

// Config holds the server settings.
type Config struct {
	// Addr is the TCP address ListenAndServe listens on. Defaults to DefaultAddr.
	Addr string

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Registerer receives the server metrics. If nil, metrics are not registered.
	Registerer prometheus.Registerer

	// MaxMessageSize bounds a request line. Defaults to wire.DefaultMaxMessageSize.
	MaxMessageSize int

	// IdleTimeout closes connections that send nothing for that long. Zero disables it.
	IdleTimeout time.Duration

	// Store is the data served. Defaults to a new empty store.
	Store *Store
}

// Server answers each request line with exactly one response line, in order.
type Server struct {
	cfg     Config
	logger  *zap.Logger
	store   *Store
	metrics *metrics

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}

	return &Server{
		cfg:     cfg,
		logger:  cfg.Logger,
		store:   cfg.Store,
		metrics: newMetrics(cfg.Registerer, cfg.Store),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Store returns the data served.
func (s *Server) Store() *Store {
	return s.store
}

// ListenAndServe listens on Config.Addr and serves until ctx is done or Close is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Close is called.
// It returns nil after a shutdown. The server owns ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.logger.Info("listening", zap.Stringer("addr", ln.Addr()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", zap.Error(err))
			return err
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(conn)
		}()
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting, closes every connection and waits for their handlers.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}
	s.closed = true

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.metrics.accepted.Inc()
	s.metrics.connections.Inc()
	return true
}

func (s *Server) untrack(conn net.Conn) {
	_ = conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	s.metrics.connections.Dec()
}

func (s *Server) handleConn(conn net.Conn) {
	logger := s.logger.With(zap.Stringer("remote", conn.RemoteAddr()))
	logger.Debug("connection opened")

	reader := wire.NewReader(conn, wire.WithMaxMessageSize(s.cfg.MaxMessageSize))

	for {
		if s.cfg.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}

		msg, err := reader.ReadMessage()
		if err != nil {
			var te *wire.TransportError
			if errors.As(err, &te) && te.Kind == wire.KindMessageTooLong {
				s.metrics.recordCommand("unknown", resultError)
				_ = wire.WriteMessage(conn, []byte(wire.FormatError("message too long")))
			}
			logger.Debug("connection closed", zap.Error(err))
			return
		}

		payload, verb, exit := s.execute(msg)
		if err := wire.WriteMessage(conn, []byte(payload)); err != nil {
			logger.Debug("write failed", zap.String("verb", verb), zap.Error(err))
			return
		}
		if exit {
			logger.Debug("connection ended by EXIT")
			return
		}
	}
}

// execute runs one request line and returns the response payload, the verb
// label for metrics, and whether the connection must end.
func (s *Server) execute(msg []byte) (payload string, verb string, exit bool) {
	cmd, err := wire.ParseCommand(msg)
	if err != nil {
		verb = "unknown"
		var ce *wire.CodecError
		switch {
		case errors.Is(err, wire.ErrEmptyCommand):
			payload = wire.FormatError("empty command")
		case errors.As(err, &ce):
			payload = wire.FormatError(ce.Message)
			if v, ok := wire.ParseVerb(firstToken(msg)); ok {
				verb = string(v)
			}
		default:
			payload = wire.FormatError(err.Error())
		}
		s.metrics.recordCommand(verb, resultError)
		return payload, verb, false
	}

	verb = string(cmd.Verb)
	payload, err = s.apply(cmd)
	if err != nil {
		s.metrics.recordCommand(verb, resultError)
		return wire.FormatError(err.Error()), verb, false
	}

	s.metrics.recordCommand(verb, resultOK)
	return payload, verb, cmd.Verb == wire.VerbExit
}

var errEmptyValue = errors.New("empty value")

func (s *Server) apply(cmd wire.Command) (string, error) {
	switch cmd.Verb {
	case wire.VerbSet:
		if cmd.Args[1] == "" {
			return "", errEmptyValue
		}
		s.store.Set(cmd.Args[0], cmd.Args[1])
		return wire.PayloadOK, nil
	case wire.VerbGet:
		v, _ := s.store.Get(cmd.Args[0])
		return v, nil
	case wire.VerbExists:
		return formatBool(s.store.Exists(cmd.Args[0])), nil
	case wire.VerbDel:
		return formatBool(s.store.Del(cmd.Args[0])), nil
	case wire.VerbKeys:
		return strings.Join(s.store.Keys(), wire.KeysSeparator), nil
	case wire.VerbExit:
		return wire.PayloadBye, nil
	default:
		return "", errors.New("unknown command")
	}
}

func formatBool(b bool) string {
	if b {
		return wire.PayloadTrue
	}
	return wire.PayloadFalse
}

func firstToken(msg []byte) string {
	fields := strings.Fields(string(msg))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
