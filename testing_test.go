package furr

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/furrdb/furr/internal/server"
	"github.com/furrdb/furr/internal/testutils"
)

// startServer runs a FurrDB server on a random local port until the test ends.
func startServer(t testing.TB) *server.Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := server.New(server.Config{Logger: zaptest.NewLogger(t)})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, time.Millisecond)
	return srv
}

// sessionConfig returns a Config pointing at srv.
func sessionConfig(t testing.TB, srv *server.Server) Config {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return Config{Host: host, Port: p, Timeout: 5 * time.Second, Logger: zaptest.NewLogger(t)}
}

// dialServer opens a session to srv, closed when the test ends.
func dialServer(t testing.TB, srv *server.Server) *Session {
	t.Helper()
	s, err := Dial(context.Background(), sessionConfig(t, srv))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newMockSession returns a session whose connection replays chunks.
func newMockSession(t testing.TB, chunks ...string) (*Session, *testutils.ConnectionMock) {
	t.Helper()
	mock := testutils.NewConnectionMock(chunks...)
	return NewSession(mock, Config{Logger: zaptest.NewLogger(t)}), mock
}

// newPipeSession returns a session over an in-memory pipe. The peer reads
// requests and hands them to handle, which may reply or stall.
func newPipeSession(t testing.TB, cfg Config, handle func(peer net.Conn, request string)) *Session {
	t.Helper()

	client, peer := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = peer.Close()
	})

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := peer.Read(buf)
			if err != nil {
				return
			}
			handle(peer, string(buf[:n]))
		}
	}()

	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}
	return NewSession(client, cfg)
}

// staticSelector always picks the same server.
func staticSelector(index int) ServerSelector {
	return func(key string, serverCount int) int {
		return index % serverCount
	}
}
