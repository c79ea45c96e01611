package rwlock

import "context"

//go:generate mockgen -destination=mocks/suspender.go -package=mocks github.com/hoylen/asyncmutex/rwlock Suspender

// Suspender parks the calling task until ready is closed or ctx is done.
// It returns nil once ready is closed and ctx.Err() if the task gave up first.
//
// The default suspender blocks the calling goroutine. A cooperative scheduler
// plugs in here to hand its turn to other tasks while the caller waits.
type Suspender interface {
	Suspend(ctx context.Context, ready <-chan struct{}) error
}

// SuspenderFunc adapts a function to the Suspender interface.
type SuspenderFunc func(ctx context.Context, ready <-chan struct{}) error

func (f SuspenderFunc) Suspend(ctx context.Context, ready <-chan struct{}) error {
	return f(ctx, ready)
}

// Blocking is the Suspender used when none is configured.
var Blocking Suspender = SuspenderFunc(block)

func block(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	default:
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
