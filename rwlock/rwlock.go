package rwlock

import (
	"context"

	"github.com/jonboulle/clockwork"
	sync "github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	_ "github.com/hoylen/asyncmutex/internal/deadlock"
)

// A Lock is a reader/writer lock for tasks that may suspend while holding it.
// The lock can be held by an arbitrary number of readers or a single writer.
//
// Requests that cannot be granted at once wait in a single FIFO queue shared
// by readers and writers. A waiting writer excludes every reader that arrives
// after it, even while the lock is still read-locked, so writers are never
// starved by a stream of readers.
//
// The lock is not reentrant: a task that already holds it and asks again is
// just another request and can deadlock against itself.
//
// As with sync.RWMutex, a hold is not associated with a particular task.
// One task may acquire the lock and arrange for another to release it.
type Lock struct {
	mtx       sync.Mutex
	state     state
	queue     *waitQueue
	suspender Suspender
	clock     clockwork.Clock
	logger    *zap.Logger
	metrics   *Metrics
}

// Status is a point-in-time view of a lock, for diagnostics.
type Status struct {
	Readers int  `json:"readers"`
	Writer  bool `json:"writer"`
	Waiting int  `json:"waiting"`
}

// New creates an unlocked *Lock.
func New(opts ...OptionFunc) *Lock {
	l := &Lock{
		queue:     newWaitQueue(),
		suspender: Blocking,
		clock:     clockwork.NewRealClock(),
		logger:    zap.NewNop(),
		metrics:   NopMetrics(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RLock locks l for reading.
//
// If no request is queued and the lock is unlocked or read-locked, RLock
// returns at once without suspending. Otherwise the request joins the tail of
// the queue and the caller suspends until a release reaches it.
//
// RLock returns an error only when ctx is done before the request is granted;
// the request then leaves the queue. If the grant won the race, RLock returns
// nil and the caller holds the lock.
func (l *Lock) RLock(ctx context.Context) error {
	return l.acquire(ctx, Read)
}

// Lock locks l for writing.
// It follows the same queueing and cancellation rules as RLock.
func (l *Lock) Lock(ctx context.Context) error {
	return l.acquire(ctx, Write)
}

// TryRLock locks l for reading if that is possible without waiting.
func (l *Lock) TryRLock() bool {
	return l.tryAcquire(Read)
}

// TryLock locks l for writing if that is possible without waiting.
func (l *Lock) TryLock() bool {
	return l.tryAcquire(Write)
}

// Unlock releases one hold on l, read or write, and grants as many queued
// requests as the new state admits, in arrival order.
// It returns ErrNotLocked if l is not locked.
func (l *Lock) Unlock() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	released := Read
	if l.state == writeLocked {
		released = Write
	}
	if err := l.state.release(); err != nil {
		return err
	}
	l.metrics.holdGauge(released).Add(-1)
	l.grantQueued()
	return nil
}

// IsLocked reports whether l is held in either mode.
func (l *Lock) IsLocked() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.state != unlocked
}

// IsReadLocked reports whether l is held by one or more readers.
func (l *Lock) IsReadLocked() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.state > 0
}

// IsWriteLocked reports whether l is held by a writer.
func (l *Lock) IsWriteLocked() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.state == writeLocked
}

// Readers returns the number of read holds.
func (l *Lock) Readers() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.state > 0 {
		return int(l.state)
	}
	return 0
}

// Waiting returns the number of requests queued and not yet granted.
func (l *Lock) Waiting() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.queue.waiting()
}

// Status returns a snapshot of l.
func (l *Lock) Status() Status {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	st := Status{
		Writer:  l.state == writeLocked,
		Waiting: l.queue.waiting(),
	}
	if l.state > 0 {
		st.Readers = int(l.state)
	}
	return st
}

func (l *Lock) acquire(ctx context.Context, mode Mode) error {
	req, err := l.enqueue(ctx, mode)
	if err != nil || req == nil {
		return err
	}
	if err := l.suspender.Suspend(ctx, req.signal.Done()); err != nil {
		return l.abandon(req, err)
	}
	return nil
}

// enqueue grants mode at once when nothing is queued ahead of it and returns
// a nil request. Otherwise it queues and returns the new request, unless ctx
// is already done.
func (l *Lock) enqueue(ctx context.Context, mode Mode) (*request, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.queue.empty() && l.state.canGrant(mode) {
		l.state.grant(mode)
		l.metrics.holdGauge(mode).Add(1)
		l.metrics.GrantsTotal.With("mode", mode.String()).Add(1)
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := newRequest(mode, l.clock.Now())
	l.queue.push(req)
	l.metrics.Waiting.Add(1)
	l.logger.Debug("lock request queued",
		zap.Stringer("mode", mode),
		zap.Int("state", int(l.state)),
		zap.Int("waiting", l.queue.waiting()),
	)
	return req, nil
}

func (l *Lock) tryAcquire(mode Mode) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if !l.queue.empty() || !l.state.canGrant(mode) {
		return false
	}
	l.state.grant(mode)
	l.metrics.holdGauge(mode).Add(1)
	l.metrics.GrantsTotal.With("mode", mode.String()).Add(1)
	return true
}

// abandon takes req out of the queue after its caller gave up with cause.
// A request granted in the meantime is kept and the caller owns the hold.
func (l *Lock) abandon(req *request, cause error) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if req.signal.Settled() {
		return nil
	}
	l.queue.abandon(req)
	l.metrics.Waiting.Add(-1)
	l.metrics.AbandonedTotal.With("mode", req.mode.String()).Add(1)
	l.logger.Debug("lock request abandoned",
		zap.Stringer("mode", req.mode),
		zap.Error(cause),
		zap.Int("waiting", l.queue.waiting()),
	)
	// the abandoned request may have been the one blocking the head
	l.grantQueued()
	return cause
}

// grantQueued drains the queue against the current state. Caller holds l.mtx.
func (l *Lock) grantQueued() {
	granted := l.queue.drain(&l.state)
	if len(granted) == 0 {
		return
	}
	now := l.clock.Now()
	for _, req := range granted {
		mode := req.mode.String()
		l.metrics.Waiting.Add(-1)
		l.metrics.holdGauge(req.mode).Add(1)
		l.metrics.GrantsTotal.With("mode", mode).Add(1)
		l.metrics.WaitSeconds.With("mode", mode).Observe(now.Sub(req.enqueued).Seconds())
		req.signal.Resolve(struct{}{})
	}
}
