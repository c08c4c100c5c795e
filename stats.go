package furr

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a session pool.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total sessions created
	DestroyedConns    uint64 // Total sessions destroyed
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Sessions in the pool (active + idle)
	IdleConns   int32 // Idle sessions available
	ActiveConns int32 // Sessions currently in use
}

// ClientStats contains statistics about client operations.
type ClientStats struct {
	Gets    uint64 // GET calls
	GetHits uint64 // GET calls that found the key
	Sets    uint64
	Exists  uint64
	Dels    uint64
	Keys    uint64 // KEYS fan-outs
	Errors  uint64 // Failed operations of any kind
}

// poolStatsCollector is updated by the pools. The zero value is ready to use.
type poolStatsCollector struct {
	acquireCount      atomic.Uint64
	acquireWaitCount  atomic.Uint64
	createdConns      atomic.Uint64
	destroyedConns    atomic.Uint64
	acquireErrors     atomic.Uint64
	acquireWaitTimeNs atomic.Uint64

	totalConns  atomic.Int32
	idleConns   atomic.Int32
	activeConns atomic.Int32
}

func (c *poolStatsCollector) recordAcquire() {
	c.acquireCount.Add(1)
}

func (c *poolStatsCollector) recordAcquireWait(d time.Duration) {
	c.acquireWaitCount.Add(1)
	c.acquireWaitTimeNs.Add(uint64(d.Nanoseconds()))
}

func (c *poolStatsCollector) recordAcquireError() {
	c.acquireErrors.Add(1)
}

// recordCreate counts a new session, handed out as active.
func (c *poolStatsCollector) recordCreate() {
	c.createdConns.Add(1)
	c.totalConns.Add(1)
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordAcquireIdle() {
	c.idleConns.Add(-1)
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordRelease() {
	c.idleConns.Add(1)
	c.activeConns.Add(-1)
}

// recordDestroyActive counts the destruction of a session held by a caller.
func (c *poolStatsCollector) recordDestroyActive() {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
	c.activeConns.Add(-1)
}

// recordDestroyIdle counts the destruction of a session that was idle in the pool.
func (c *poolStatsCollector) recordDestroyIdle() {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
	c.idleConns.Add(-1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		AcquireCount:      c.acquireCount.Load(),
		AcquireWaitCount:  c.acquireWaitCount.Load(),
		CreatedConns:      c.createdConns.Load(),
		DestroyedConns:    c.destroyedConns.Load(),
		AcquireErrors:     c.acquireErrors.Load(),
		AcquireWaitTimeNs: c.acquireWaitTimeNs.Load(),
		TotalConns:        c.totalConns.Load(),
		IdleConns:         c.idleConns.Load(),
		ActiveConns:       c.activeConns.Load(),
	}
}

// clientStatsCollector is updated by the client. The zero value is ready to use.
type clientStatsCollector struct {
	gets    atomic.Uint64
	getHits atomic.Uint64
	sets    atomic.Uint64
	exists  atomic.Uint64
	dels    atomic.Uint64
	keys    atomic.Uint64
	errors  atomic.Uint64
}

func (c *clientStatsCollector) recordGet(found bool) {
	c.gets.Add(1)
	if found {
		c.getHits.Add(1)
	}
}

func (c *clientStatsCollector) recordSet()    { c.sets.Add(1) }
func (c *clientStatsCollector) recordExists() { c.exists.Add(1) }
func (c *clientStatsCollector) recordDel()    { c.dels.Add(1) }
func (c *clientStatsCollector) recordKeys()   { c.keys.Add(1) }
func (c *clientStatsCollector) recordError()  { c.errors.Add(1) }

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:    c.gets.Load(),
		GetHits: c.getHits.Load(),
		Sets:    c.sets.Load(),
		Exists:  c.exists.Load(),
		Dels:    c.dels.Load(),
		Keys:    c.keys.Load(),
		Errors:  c.errors.Load(),
	}
}
