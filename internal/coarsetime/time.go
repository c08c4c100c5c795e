// Package coarsetime provides a clock that is cheap to read on hot paths.
//
// A background goroutine, started on first use, refreshes the cached time
// every Resolution. Readings may lag the wall clock by up to Resolution, which
// is fine for idle and lifetime bookkeeping of pooled sessions.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is the refresh interval of the cached clock.
const Resolution = 50 * time.Millisecond

var (
	now   atomic.Int64 // unix nanoseconds
	start sync.Once
)

func run() {
	now.Store(time.Now().UnixNano())

	ticker := time.NewTicker(Resolution)
	go func() {
		for t := range ticker.C {
			now.Store(t.UnixNano())
		}
	}()
}

// Now returns the cached time.
func Now() time.Time {
	start.Do(run)
	return time.Unix(0, now.Load())
}

// Since returns the time elapsed since t according to the cached clock.
// It never returns a negative duration.
func Since(t time.Time) time.Duration {
	d := Now().Sub(t)
	if d < 0 {
		return 0
	}
	return d
}
