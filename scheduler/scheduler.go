package scheduler

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	sync "github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	_ "github.com/hoylen/asyncmutex/internal/deadlock"
	"github.com/hoylen/asyncmutex/promise"
	"github.com/hoylen/asyncmutex/rwlock"
)

var _ rwlock.Suspender = (*Scheduler)(nil)

// Scheduler runs submitted tasks cooperatively: at most one task executes at
// any moment, and a running task hands the turn over only at a suspension
// point (Suspend, Sleep or Yield). Code between two suspension points runs
// without interleaving with other tasks of the same scheduler.
//
// A task that blocks without going through a suspension point stalls every
// other task of its scheduler.
type Scheduler struct {
	// turn holds a token while a task is running
	turn   chan struct{}
	clock  clockwork.Clock
	logger *zap.Logger
	wg     sync.WaitGroup
	nextID atomic.Uint64
}

// OptionFunc is function type for scheduler optional settings
type OptionFunc func(*Scheduler)

// WithClock sets the clock that drives Sleep
func WithClock(clock clockwork.Clock) OptionFunc {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets a logger for task lifecycle events
func WithLogger(logger *zap.Logger) OptionFunc {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a Scheduler with no tasks.
func New(opts ...OptionFunc) *Scheduler {
	s := &Scheduler{
		turn:   make(chan struct{}, 1),
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Go submits fn as a new task. The returned promise settles when fn returns.
func (s *Scheduler) Go(ctx context.Context, fn func(ctx context.Context) error) *promise.Promise[struct{}] {
	return Submit(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Submit submits fn as a new task of s and returns a promise of its result.
// The task starts once it gets the turn; a panic in fn rejects the promise.
func Submit[T any](ctx context.Context, s *Scheduler, fn func(ctx context.Context) (T, error)) *promise.Promise[T] {
	id := s.nextID.Add(1)
	logger := s.logger.With(zap.Uint64("task", id))
	s.wg.Add(1)
	return promise.New(func(resolve func(T), reject func(error)) {
		defer s.wg.Done()
		s.acquireTurn()
		defer s.releaseTurn()

		logger.Debug("task started")
		res, err := fn(ctx)
		if err != nil {
			logger.Debug("task failed", zap.Error(err))
			reject(err)
			return
		}
		logger.Debug("task finished")
		resolve(res)
	})
}

// Wait blocks until every task submitted so far has returned.
// It must not be called from inside a task.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Suspend hands the turn over until ready is closed or ctx is done, then
// waits for the turn again. It returns ctx.Err() if ctx finished first.
// Suspend implements rwlock.Suspender, so locks built with
// rwlock.WithSuspender(s) let other tasks run while one waits.
func (s *Scheduler) Suspend(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	default:
	}
	s.releaseTurn()
	defer s.acquireTurn()
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sleep hands the turn over for d, as measured by the scheduler's clock.
func (s *Scheduler) Sleep(ctx context.Context, d time.Duration) error {
	s.releaseTurn()
	defer s.acquireTurn()
	select {
	case <-s.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Yield lets other runnable tasks go first.
func (s *Scheduler) Yield() {
	s.releaseTurn()
	runtime.Gosched()
	s.acquireTurn()
}

func (s *Scheduler) acquireTurn() {
	s.turn <- struct{}{}
}

func (s *Scheduler) releaseTurn() {
	select {
	case <-s.turn:
	default:
		panic("scheduler: suspension point used outside of a task")
	}
}
