package furr

import (
	"context"
	"sync"
	"time"

	"github.com/furrdb/furr/internal/coarsetime"
)

// NewChannelPool creates a channel-based session pool. This is the default pool.
func NewChannelPool(constructor func(ctx context.Context) (*Session, error), maxSize int32) (Pool, error) {
	return &channelPool{
		constructor: constructor,
		maxSize:     maxSize,
		resources:   make(chan *channelResource, maxSize),
	}, nil
}

type channelResource struct {
	session      *Session
	pool         *channelPool
	creationTime time.Time
	lastUsedTime time.Time
}

func (r *channelResource) Value() *Session {
	return r.session
}

func (r *channelResource) Release() {
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

// ReleaseUnused returns the session without touching its idle clock.
func (r *channelResource) ReleaseUnused() {
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	_ = r.session.Close()
	r.pool.removeResource()
	r.pool.stats.recordDestroyActive()
}

func (r *channelResource) CreationTime() time.Time {
	return r.creationTime
}

func (r *channelResource) IdleDuration() time.Duration {
	return coarsetime.Since(r.lastUsedTime)
}

type channelPool struct {
	constructor func(ctx context.Context) (*Session, error)
	maxSize     int32

	mu        sync.Mutex
	resources chan *channelResource
	size      int32
	closed    bool

	stats poolStatsCollector
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()
	res, err := p.acquire(ctx)
	if err != nil {
		p.stats.recordAcquireError()
		return nil, err
	}
	return res, nil
}

func (p *channelPool) acquire(ctx context.Context) (Resource, error) {
	var waitStart time.Time
	for {
		select {
		case res, ok := <-p.resources:
			if !ok {
				return nil, ErrPoolClosed
			}
			if r := p.activate(res); r != nil {
				return r, nil
			}
			continue
		default:
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if p.size < p.maxSize {
			p.size++
			p.mu.Unlock()
			return p.create(ctx)
		}
		p.mu.Unlock()

		// Pool is full, wait for a release.
		if waitStart.IsZero() {
			waitStart = time.Now()
		}
		select {
		case res, ok := <-p.resources:
			if !ok {
				return nil, ErrPoolClosed
			}
			if r := p.activate(res); r != nil {
				p.stats.recordAcquireWait(time.Since(waitStart))
				return r, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *channelPool) create(ctx context.Context) (Resource, error) {
	session, err := p.constructor(ctx)
	if err != nil {
		p.removeResource()
		return nil, err
	}

	p.stats.recordCreate()

	now := coarsetime.Now()
	return &channelResource{
		session:      session,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}, nil
}

// activate hands out an idle resource, or destroys it when its session has ended.
func (p *channelPool) activate(res *channelResource) *channelResource {
	p.stats.recordAcquireIdle()
	if res.session.State() == StateClosed {
		res.Destroy()
		return nil
	}
	return res
}

func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || res.session.State() == StateClosed {
		_ = res.session.Close()
		p.size--
		p.stats.recordDestroyActive()
		return
	}

	select {
	case p.resources <- res:
		p.stats.recordRelease()
	default:
		_ = res.session.Close()
		p.size--
		p.stats.recordDestroyActive()
	}
}

func (p *channelPool) removeResource() {
	p.mu.Lock()
	p.size--
	p.mu.Unlock()
}

func (p *channelPool) AcquireAllIdle() []Resource {
	var idle []Resource
	for {
		select {
		case res, ok := <-p.resources:
			if !ok {
				return idle
			}
			p.stats.recordAcquireIdle()
			idle = append(idle, res)
		default:
			return idle
		}
	}
}

func (p *channelPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.resources)
	p.mu.Unlock()

	for res := range p.resources {
		_ = res.session.Close()
		p.removeResource()
		p.stats.recordDestroyIdle()
	}
}

func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
