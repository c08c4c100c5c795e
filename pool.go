package furr

import (
	"context"
	"errors"
	"time"
)

// ErrPoolClosed is returned by Acquire once the pool has been closed.
var ErrPoolClosed = errors.New("furr: pool closed")

// Pool holds the sessions opened to one server.
type Pool interface {
	// Acquire returns an idle session or creates one. It blocks while the pool
	// is full, until a session is released or ctx is done.
	Acquire(ctx context.Context) (Resource, error)

	// AcquireAllIdle takes every idle session out of the pool.
	AcquireAllIdle() []Resource

	// Close destroys idle sessions. Sessions still acquired are destroyed on release.
	Close()

	Stats() PoolStats
}

// Resource is a session checked out of a Pool.
// Exactly one of Release, ReleaseUnused or Destroy must be called.
type Resource interface {
	Value() *Session
	Release()
	ReleaseUnused()
	Destroy()
	CreationTime() time.Time
	IdleDuration() time.Duration
}

// PoolFactory builds a Pool from a session constructor.
type PoolFactory func(constructor func(ctx context.Context) (*Session, error), maxSize int32) (Pool, error)
