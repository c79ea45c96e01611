package promise

import (
	"context"
	"fmt"

	sync "github.com/sasha-s/go-deadlock"

	_ "github.com/hoylen/asyncmutex/internal/deadlock"
)

// Promise represents the eventual completion or failure of an asynchronous
// operation and its resulting value. A promise settles exactly once;
// every later attempt to resolve or reject it is ignored.
type Promise[T any] struct {
	mtx     sync.Mutex
	result  T
	err     error
	settled bool
	doneCh  chan struct{}
}

// Pending returns an unsettled promise. The owner settles it with Resolve or Reject.
func Pending[T any]() *Promise[T] {
	return &Promise[T]{
		doneCh: make(chan struct{}),
	}
}

// New creates and returns a new Promise instance.
// The execution function is called in a separate goroutine and does not block the caller.
// It settles the promise by invoking "resolve" on success or "reject" on failure.
// If execution returns without settling, the promise resolves with the zero value;
// if it panics, the promise is rejected.
func New[T any](execution func(resolve func(data T), reject func(err error))) *Promise[T] {
	promise := Pending[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				promise.Reject(fmt.Errorf("recovered: %v", r))
				return
			}
			var zero T
			promise.Resolve(zero)
		}()
		execution(func(data T) { promise.Resolve(data) }, func(err error) { promise.Reject(err) })
	}()
	return promise
}

// Resolve settles the promise with val. It returns false if the promise was already settled.
func (p *Promise[T]) Resolve(val T) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.settled {
		return false
	}
	p.result = val
	p.settle()
	return true
}

// Reject settles the promise with err. It returns false if the promise was already settled.
func (p *Promise[T]) Reject(err error) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.settled {
		return false
	}
	p.err = err
	p.settle()
	return true
}

func (p *Promise[T]) settle() {
	p.settled = true
	close(p.doneCh)
}

// Settled reports whether the promise has been resolved or rejected.
func (p *Promise[T]) Settled() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.settled
}

// Done returns a channel that is closed once the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.doneCh
}

// Await waits for the promise to settle or for ctx to be done, whichever happens first.
// A promise that is already settled wins over a done context.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.doneCh:
		return p.value()
	default:
	}
	select {
	case <-p.doneCh:
		return p.value()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (p *Promise[T]) value() (T, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.result, p.err
}

// Then wraps origin promise and uses the resolver function to convert origin result value of type T into type M
func Then[T, M any](promise *Promise[T], resolveT func(T) M) *Promise[M] {
	return New(func(resolveM func(M), reject func(error)) {
		resultT, err := promise.Await(context.Background())
		if err != nil {
			reject(err)
			return
		}
		resolveM(resolveT(resultT))
	})
}
