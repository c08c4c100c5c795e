package furr

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/furrdb/furr/wire"
)

// DefaultMaxSize is the default number of sessions per server.
const DefaultMaxSize = 10

// healthCheckKey is the key probed with EXISTS on idle sessions.
const healthCheckKey = "furr:health"

// ClientConfig holds the configuration of a pooled Client.
type ClientConfig struct {
	// MaxSize is the maximum number of sessions per server. Defaults to DefaultMaxSize.
	MaxSize int32

	// Timeout bounds each call. See Config.Timeout.
	Timeout time.Duration

	// Dialer opens the sessions. If nil, a zero net.Dialer is used.
	Dialer *net.Dialer

	// MaxMessageSize bounds a response line. Defaults to wire.DefaultMaxMessageSize.
	MaxMessageSize int

	// Logger receives client and session events. Defaults to a no-op logger.
	Logger *zap.Logger

	// NewPool builds the session pool of each server. Defaults to NewChannelPool.
	NewPool PoolFactory

	// SelectServer picks the server owning a key. Defaults to DefaultServerSelector.
	SelectServer ServerSelector

	// NewCircuitBreaker creates the circuit breaker of a server.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) *CircuitBreaker

	// HealthCheckInterval is how often idle sessions are checked. Zero disables checks.
	HealthCheckInterval time.Duration

	// MaxConnLifetime is how long a session may be reused. Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is how long a session may stay idle. Zero means no limit.
	MaxConnIdleTime time.Duration

	// for tests
	constructor func(ctx context.Context, addr string) (*Session, error)
}

type serverPool struct {
	addr           string
	pool           Pool
	circuitBreaker *CircuitBreaker // nil if not configured
}

// ServerPoolStats contains the stats of one server.
type ServerPoolStats struct {
	Addr                string
	PoolStats           PoolStats
	CircuitBreakerState string // empty without a circuit breaker
}

// Client spreads keys over several servers and keeps a pool of sessions per
// server. It is safe for concurrent use. Each pooled session carries one
// request at a time.
type Client struct {
	servers      Servers
	selectServer ServerSelector
	config       ClientConfig
	session      Config
	logger       *zap.Logger

	mu    sync.RWMutex
	pools map[string]*serverPool

	closed          atomic.Bool
	closeOnce       sync.Once
	stopHealthCheck chan struct{}
	healthCheckDone chan struct{}

	stats clientStatsCollector
}

// NewClient creates a client for servers. Sessions are opened lazily.
func NewClient(servers Servers, config ClientConfig) (*Client, error) {
	if len(servers.List()) == 0 {
		return nil, ErrNoServers
	}

	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxSize
	}
	if config.NewPool == nil {
		config.NewPool = NewChannelPool
	}
	if config.SelectServer == nil {
		config.SelectServer = DefaultServerSelector
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	c := &Client{
		servers:      servers,
		selectServer: config.SelectServer,
		config:       config,
		session: Config{
			Timeout:        config.Timeout,
			Dialer:         config.Dialer,
			MaxMessageSize: config.MaxMessageSize,
			Logger:         config.Logger,
		}.withDefaults(),
		logger:          config.Logger,
		pools:           make(map[string]*serverPool),
		stopHealthCheck: make(chan struct{}),
		healthCheckDone: make(chan struct{}),
	}

	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	} else {
		close(c.healthCheckDone)
	}

	return c, nil
}

// Close stops the health checks and closes every pool.
// Operations after Close return ErrClientClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopHealthCheck)
		<-c.healthCheckDone

		c.mu.Lock()
		defer c.mu.Unlock()
		for _, sp := range c.pools {
			sp.pool.Close()
		}
	})
}

func (c *Client) poolForKey(key string) (*serverPool, error) {
	servers := c.servers.List()
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	idx := c.selectServer(key, len(servers))
	if idx < 0 || idx >= len(servers) {
		return nil, fmt.Errorf("furr: server selector returned %d for %d servers", idx, len(servers))
	}
	return c.getOrCreatePool(servers[idx])
}

func (c *Client) getOrCreatePool(addr string) (*serverPool, error) {
	c.mu.RLock()
	sp, exists := c.pools[addr]
	c.mu.RUnlock()
	if exists {
		return sp, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if sp, exists := c.pools[addr]; exists {
		return sp, nil
	}

	constructor := func(ctx context.Context) (*Session, error) {
		if c.config.constructor != nil {
			return c.config.constructor(ctx, addr)
		}
		return dialAddr(ctx, addr, c.session)
	}

	pool, err := c.config.NewPool(constructor, c.config.MaxSize)
	if err != nil {
		return nil, err
	}

	sp = &serverPool{addr: addr, pool: pool}
	if c.config.NewCircuitBreaker != nil {
		sp.circuitBreaker = c.config.NewCircuitBreaker(addr)
	}
	c.pools[addr] = sp

	c.logger.Debug("server pool created", zap.String("addr", addr), zap.Int32("max_size", c.config.MaxSize))
	return sp, nil
}

// exec routes cmd to the server owning key.
func (c *Client) exec(ctx context.Context, key string, cmd wire.Command) (wire.Response, error) {
	if c.closed.Load() {
		return wire.Response{}, ErrClientClosed
	}

	sp, err := c.poolForKey(key)
	if err != nil {
		return wire.Response{}, err
	}
	return c.execOn(ctx, sp, cmd)
}

func (c *Client) execOn(ctx context.Context, sp *serverPool, cmd wire.Command) (wire.Response, error) {
	if sp.circuitBreaker == nil {
		return c.execDirect(ctx, sp.pool, cmd)
	}
	return sp.circuitBreaker.Execute(func() (wire.Response, error) {
		return c.execDirect(ctx, sp.pool, cmd)
	})
}

// execDirect runs one call on a pooled session. Sessions ended by the call
// are destroyed, others go back to the pool.
func (c *Client) execDirect(ctx context.Context, pool Pool, cmd wire.Command) (wire.Response, error) {
	res, err := pool.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return wire.Response{}, contextError(ctxErr)
		}
		if errors.Is(err, ErrPoolClosed) {
			return wire.Response{}, ErrClientClosed
		}
		return wire.Response{}, err
	}

	session := res.Value()
	resp, err := session.Call(ctx, cmd)
	if session.State() == StateClosed {
		res.Destroy()
	} else {
		res.Release()
	}
	return resp, err
}

// Set stores value under key on the server owning key.
func (c *Client) Set(ctx context.Context, key, value string) error {
	cmd, err := newSetCommand(key, value)
	if err != nil {
		c.stats.recordError()
		return err
	}

	resp, err := c.exec(ctx, key, cmd)
	if err == nil {
		err = decodeSet(resp)
	}
	if err != nil {
		c.stats.recordError()
		return err
	}

	c.stats.recordSet()
	return nil
}

// Get fetches key. A missing key returns Item{Found: false} and no error.
func (c *Client) Get(ctx context.Context, key string) (Item, error) {
	resp, err := c.exec(ctx, key, wire.NewGet(key))
	if err != nil {
		c.stats.recordError()
		return Item{}, err
	}

	item, err := decodeGet(key, resp)
	if err != nil {
		c.stats.recordError()
		return Item{}, err
	}

	c.stats.recordGet(item.Found)
	return item, nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := c.exec(ctx, key, wire.NewExists(key))
	if err != nil {
		c.stats.recordError()
		return false, err
	}

	ok, err := decodeBool(wire.VerbExists, resp)
	if err != nil {
		c.stats.recordError()
		return false, err
	}

	c.stats.recordExists()
	return ok, nil
}

// Del removes key and reports whether it existed.
func (c *Client) Del(ctx context.Context, key string) (bool, error) {
	resp, err := c.exec(ctx, key, wire.NewDel(key))
	if err != nil {
		c.stats.recordError()
		return false, err
	}

	ok, err := decodeBool(wire.VerbDel, resp)
	if err != nil {
		c.stats.recordError()
		return false, err
	}

	c.stats.recordDel()
	return ok, nil
}

// Keys asks every server for its keys and returns them merged, sorted and
// without duplicates. It fails if any server fails.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	if c.closed.Load() {
		c.stats.recordError()
		return nil, ErrClientClosed
	}

	servers := c.servers.List()
	if len(servers) == 0 {
		c.stats.recordError()
		return nil, ErrNoServers
	}

	results := make([][]string, len(servers))
	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range servers {
		g.Go(func() error {
			sp, err := c.getOrCreatePool(addr)
			if err != nil {
				return err
			}
			resp, err := c.execOn(gctx, sp, wire.NewKeys())
			if err != nil {
				return fmt.Errorf("furr: keys from %s: %w", addr, err)
			}
			keys, err := decodeKeys(resp)
			if err != nil {
				return fmt.Errorf("furr: keys from %s: %w", addr, err)
			}
			results[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.stats.recordError()
		return nil, err
	}

	merged := slices.Concat(results...)
	slices.Sort(merged)
	merged = slices.Compact(merged)

	c.stats.recordKeys()
	return merged, nil
}

func (c *Client) healthCheckLoop() {
	defer close(c.healthCheckDone)

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkAllPools()
		}
	}
}

func (c *Client) checkAllPools() {
	c.mu.RLock()
	pools := make([]*serverPool, 0, len(c.pools))
	for _, sp := range c.pools {
		pools = append(pools, sp)
	}
	c.mu.RUnlock()

	for _, sp := range pools {
		c.checkPoolSessions(sp)
	}
}

// checkPoolSessions destroys idle sessions that are too old, idle for too
// long, or fail a probe.
func (c *Client) checkPoolSessions(sp *serverPool) {
	now := time.Now()

	for _, res := range sp.pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			c.logger.Debug("destroying session past its lifetime", zap.String("addr", sp.addr))
			res.Destroy()
			continue
		}

		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			c.logger.Debug("destroying idle session", zap.String("addr", sp.addr))
			res.Destroy()
			continue
		}

		if err := c.healthCheck(res.Value()); err != nil {
			c.logger.Info("destroying unhealthy session", zap.String("addr", sp.addr), zap.Error(err))
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// healthCheck probes a session with EXISTS.
func (c *Client) healthCheck(s *Session) error {
	ctx := context.Background()
	if c.config.Timeout <= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.HealthCheckInterval)
		defer cancel()
	}

	resp, err := s.Call(ctx, wire.NewExists(healthCheckKey))
	if err != nil {
		return err
	}
	if _, err := decodeBool(wire.VerbExists, resp); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// AllPoolStats returns the stats of every server pool created so far.
func (c *Client) AllPoolStats() []ServerPoolStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]ServerPoolStats, 0, len(c.pools))
	for _, sp := range c.pools {
		s := ServerPoolStats{
			Addr:      sp.addr,
			PoolStats: sp.pool.Stats(),
		}
		if sp.circuitBreaker != nil {
			s.CircuitBreakerState = sp.circuitBreaker.State().String()
		}
		stats = append(stats, s)
	}
	slices.SortFunc(stats, func(a, b ServerPoolStats) int {
		return cmp.Compare(a.Addr, b.Addr)
	})
	return stats
}
