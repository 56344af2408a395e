package sql

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"
)

// Opener opens one physical database session. *Driver implements it.
type Opener interface {
	OpenConn(ctx context.Context) (*Conn, error)
}

// freeList is a min-heap of freed connections ordered by free time, so the
// oldest-freed connection is reused first. Spreading checkouts across the
// pool this way lets the idle-time health check retire stale sessions
// predictably instead of always recycling the same hot one.
type freeList []*Conn

func (f freeList) Len() int            { return len(f) }
func (f freeList) Less(i, j int) bool  { return f[i].freedAt.Before(f[j].freedAt) }
func (f freeList) Swap(i, j int)       { f[i], f[j] = f[j], f[i]; f[i].index = i; f[j].index = j }
func (f *freeList) Push(x any)         { c := x.(*Conn); c.index = len(*f); *f = append(*f, c) }
func (f *freeList) Pop() any {
	old := *f
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.index = -1
	*f = old[:n-1]
	return c
}

// Pool owns up to maxOpen reusable connections. Connections are created
// lazily on demand; callers contending for an exhausted pool block until a
// connection is freed or their timeout elapses.
//
// A single mutex guards the free list and the live count. Blocked
// allocators wait on a condition broadcast issued whenever any connection
// is freed or retired; wakeups are best-effort and every woken caller
// re-checks under the mutex.
type Pool struct {
	opener  Opener
	maxOpen int

	mu   sync.Mutex
	cond *sync.Cond
	free freeList
	open int
}

// NewPool returns a pool bounded at maxOpen live connections. A maxOpen of
// zero or less means a single connection.
func NewPool(opener Opener, maxOpen int) *Pool {
	if maxOpen <= 0 {
		maxOpen = 1
	}
	p := &Pool{opener: opener, maxOpen: maxOpen}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// CachedSize returns the number of free connections in the pool.
func (p *Pool) CachedSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// AllocatedCount returns the number of live connections, free or checked out.
func (p *Pool) AllocatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Allocate returns a connection: the oldest-freed one if any are free,
// a newly opened one if the pool is below its maximum, and otherwise it
// waits for a release.
//
// wait > 0 blocks up to wait; wait == 0 fails immediately; wait < 0 blocks
// indefinitely. ErrPoolExhausted is returned when the timeout elapses (or
// a non-blocking call found nothing) with the pool at its maximum. The
// context is used for dialing only; a blocked Allocate is cancelled solely
// by its timeout.
func (p *Pool) Allocate(ctx context.Context, wait time.Duration) (*Conn, error) {
	var deadline time.Time
	if wait > 0 {
		deadline = time.Now().Add(wait)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if len(p.free) > 0 {
			c := heap.Pop(&p.free).(*Conn)
			c.freed = false
			return c, nil
		}
		if p.open < p.maxOpen {
			// Reserve the slot before dialing so concurrent allocators
			// cannot overshoot the maximum, then dial unlocked.
			p.open++
			p.mu.Unlock()
			c, err := p.opener.OpenConn(ctx)
			p.mu.Lock()
			if err != nil {
				p.open--
				p.cond.Broadcast()
				return nil, wrapError(err)
			}
			return c, nil
		}
		switch {
		case wait == 0:
			return nil, p.exhausted()
		case wait > 0:
			remain := time.Until(deadline)
			if remain <= 0 {
				return nil, p.exhausted()
			}
			t := time.AfterFunc(remain, p.cond.Broadcast)
			p.cond.Wait()
			t.Stop()
		default:
			p.cond.Wait()
		}
	}
}

func (p *Pool) exhausted() error {
	return fmt.Errorf("%w: maximum %d connections in use", ErrPoolExhausted, p.maxOpen)
}

// Free returns a connection to the pool, tagged with the current time. If
// err indicates an operational failure of the underlying connection, the
// connection is retired instead of recycled. Freeing an already-freed
// connection is a no-op, so nested error handling cannot double-count.
func (p *Pool) Free(c *Conn, err error) {
	if c == nil {
		return
	}
	p.mu.Lock()
	if c.freed {
		p.mu.Unlock()
		return
	}
	c.freed = true
	if IsOperational(err) || c.closed {
		p.retireLocked(c)
	} else {
		c.freedAt = time.Now()
		heap.Push(&p.free, c)
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Close forcibly closes a connection and decrements the live count. It is
// used for retirement and manual teardown. A connection sitting in the free
// list is removed from it first, so a later Allocate cannot pop a closed
// session.
func (p *Pool) Close(c *Conn) error {
	p.mu.Lock()
	if c.closed {
		p.mu.Unlock()
		return nil
	}
	if c.index >= 0 {
		heap.Remove(&p.free, c.index)
	}
	c.freed = true
	err := p.retireLocked(c)
	p.mu.Unlock()
	p.cond.Broadcast()
	return err
}

func (p *Pool) retireLocked(c *Conn) error {
	p.open--
	return c.Close()
}
