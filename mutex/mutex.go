package mutex

import (
	"context"

	"github.com/hoylen/asyncmutex/rwlock"
)

// A Mutex is a mutual exclusion lock for tasks that may suspend while
// holding it. It is an rwlock.Lock that is only ever locked for writing,
// so waiters are served strictly in arrival order.
type Mutex struct {
	rw *rwlock.Lock
}

// New creates an unlocked *Mutex. The options configure the underlying rwlock.Lock.
func New(opts ...rwlock.OptionFunc) *Mutex {
	return &Mutex{rw: rwlock.New(opts...)}
}

// Lock locks m. If the lock is already in use, the calling task suspends
// until the mutex is available or ctx is done.
func (m *Mutex) Lock(ctx context.Context) error {
	return m.rw.Lock(ctx)
}

// TryLock tries to lock m without waiting and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	return m.rw.TryLock()
}

// Unlock unlocks m. It returns rwlock.ErrNotLocked if m is not locked.
func (m *Mutex) Unlock() error {
	return m.rw.Unlock()
}

// IsLocked reports whether m is held.
func (m *Mutex) IsLocked() bool {
	return m.rw.IsLocked()
}

// Waiting returns the number of tasks waiting for m.
func (m *Mutex) Waiting() int {
	return m.rw.Waiting()
}

// Protect runs body while holding m and unlocks m on every exit path.
func (m *Mutex) Protect(ctx context.Context, body func(ctx context.Context) error) error {
	return m.rw.ProtectWrite(ctx, body)
}

// Protect runs body while holding m and returns its value and error unchanged.
func Protect[T any](ctx context.Context, m *Mutex, body func(ctx context.Context) (T, error)) (T, error) {
	return rwlock.ProtectWrite(ctx, m.rw, body)
}
