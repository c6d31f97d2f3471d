package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/conn"
)

// Dialer opens a new Connection, supplied by the owning Node so this
// package stays independent of how addresses and credentials resolve.
type Dialer func(ctx context.Context) (*conn.Connection, error)

// Stats is a point-in-time snapshot of a Pool's accounting, exposed for
// metrics (spec §5: "atomic in-use count for metrics and back-pressure").
type Stats struct {
	Idle      int
	InUse     int32
	Cap       int32
	Exhausted int64
}

// Pool is the per-node idle connection pool (spec §4.3, §5): a cap
// enforced via atomic CAS on an in-use counter, and a bounded idle
// queue guarded by a mutex. acquire never blocks past a failed CAS —
// it returns "pool exhausted" immediately instead of waiting for a
// release, unlike a conventional checkout pool.
type Pool struct {
	dial Dialer
	cap  int32

	mu   sync.Mutex
	idle []*conn.Connection

	inUse     atomic.Int32
	exhausted atomic.Int64
}

// New builds a Pool with capacity cap, using dial to open new
// connections when the idle queue is empty and the pool is under cap.
func New(dial Dialer, capacity int) *Pool {
	return &Pool{dial: dial, cap: int32(capacity)}
}

// Acquire pops the most-recently-used idle connection, discarding any
// that are Broken or idle-expired, opening a fresh one if none remain
// and the pool is under cap. It fails immediately — never blocks — when
// the cap is already reached (spec §5).
func (p *Pool) Acquire(ctx context.Context) (*conn.Connection, error) {
	for {
		c := p.popIdle()
		if c == nil {
			break
		}
		if c.IsBroken() || c.Expired() {
			c.Close()
			p.inUse.Add(-1)
			continue
		}
		return c, nil
	}

	for {
		cur := p.inUse.Load()
		if cur >= p.cap {
			p.exhausted.Add(1)
			return nil, aeroerr.New(aeroerr.Connection, "connection pool exhausted")
		}
		if p.inUse.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	c, err := p.dial(ctx)
	if err != nil {
		p.inUse.Add(-1)
		return nil, err
	}
	return c, nil
}

// popIdle removes and returns an idle connection that was already
// counted against inUse (Release leaves its slot claimed while it sits
// idle), or nil if the queue is empty. The caller's slot in inUse stays claimed when it
// returns a live connection, exactly mirroring the claim Acquire makes
// for a freshly dialed one.
func (p *Pool) popIdle() *conn.Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	c := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return c
}

// Release returns c to the idle queue unless it is Broken, in which
// case it is closed and its slot freed. A connection that would exceed
// cap is also closed rather than queued.
func (p *Pool) Release(c *conn.Connection) {
	if c.IsBroken() {
		c.Close()
		p.inUse.Add(-1)
		return
	}

	p.mu.Lock()
	if int32(len(p.idle)) >= p.cap {
		p.mu.Unlock()
		c.Close()
		p.inUse.Add(-1)
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Discard closes c without returning it to the idle queue, freeing its
// inUse slot. Callers use this instead of Release when they know a
// connection has just failed.
func (p *Pool) Discard(c *conn.Connection) {
	c.Close()
	p.inUse.Add(-1)
}

// EvictIdle closes and removes every idle connection that has exceeded
// its idle-timeout, called periodically by the owning Node's upkeep.
func (p *Pool) EvictIdle() {
	p.mu.Lock()
	live := p.idle[:0]
	var expired []*conn.Connection
	for _, c := range p.idle {
		if c.Expired() {
			expired = append(expired, c)
		} else {
			live = append(live, c)
		}
	}
	p.idle = live
	p.mu.Unlock()

	for _, c := range expired {
		c.Close()
		p.inUse.Add(-1)
	}
}

// Close drains and closes every idle connection. In-flight connections
// acquired by callers are not tracked here, and the owning Node's Close
// does not wait for them either; a connection released after Close is
// queued as idle again.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
}

// Stats reports the pool's current accounting.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idleLen := len(p.idle)
	p.mu.Unlock()
	return Stats{
		Idle:      idleLen,
		InUse:     p.inUse.Load(),
		Cap:       p.cap,
		Exhausted: p.exhausted.Load(),
	}
}
