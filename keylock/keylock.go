package keylock

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	sync "github.com/sasha-s/go-deadlock"

	_ "github.com/hoylen/asyncmutex/internal/deadlock"
	"github.com/hoylen/asyncmutex/rwlock"
)

// KeyLock is a set of named read/write locks, created on first use and
// dropped once no caller references them.
//
// Multi-key requests take their keys in sorted order, so two requests that
// share keys can never hold one each while waiting for the other.
type KeyLock struct {
	mtx   sync.Mutex
	locks map[string]*entry
	opts  []rwlock.OptionFunc
}

type entry struct {
	lock *rwlock.Lock
	refs int
}

// New creates an empty KeyLock. The options configure every per-key lock.
func New(opts ...rwlock.OptionFunc) *KeyLock {
	return &KeyLock{
		locks: make(map[string]*entry),
		opts:  opts,
	}
}

// LockKeys locks every key in keys for writing.
// On success the returned unlock releases them all. It is safe to call from
// several goroutines and more than once; only the first call has an effect.
// If ctx is done before every key is held, the keys already taken are
// released and ctx.Err() is returned.
func (l *KeyLock) LockKeys(ctx context.Context, keys []string) (unlock func() error, err error) {
	return l.lockKeys(ctx, keys, rwlock.Write)
}

// RLockKeys is LockKeys with shared holds.
func (l *KeyLock) RLockKeys(ctx context.Context, keys []string) (unlock func() error, err error) {
	return l.lockKeys(ctx, keys, rwlock.Read)
}

// Len returns the number of keys currently referenced.
func (l *KeyLock) Len() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.locks)
}

func (l *KeyLock) lockKeys(ctx context.Context, keys []string, mode rwlock.Mode) (func() error, error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	locks := l.ref(keys)
	for i, lock := range locks {
		var err error
		if mode == rwlock.Write {
			err = lock.Lock(ctx)
		} else {
			err = lock.RLock(ctx)
		}
		if err != nil {
			releaseErr := release(locks[:i])
			l.unref(keys)
			if releaseErr != nil {
				return nil, multierror.Append(err, releaseErr)
			}
			return nil, err
		}
	}

	var locked atomic.Bool
	locked.Store(true)
	return func() error {
		if !locked.CompareAndSwap(true, false) {
			return nil
		}
		err := release(locks)
		l.unref(keys)
		return err
	}, nil
}

// release unlocks locks in reverse order.
func release(locks []*rwlock.Lock) error {
	var result error
	for i := len(locks) - 1; i >= 0; i-- {
		if err := locks[i].Unlock(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func (l *KeyLock) ref(keys []string) []*rwlock.Lock {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	locks := make([]*rwlock.Lock, 0, len(keys))
	for _, key := range keys {
		e, ok := l.locks[key]
		if !ok {
			e = &entry{lock: rwlock.New(l.opts...)}
			l.locks[key] = e
		}
		e.refs++
		locks = append(locks, e.lock)
	}
	return locks
}

func (l *KeyLock) unref(keys []string) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, key := range keys {
		e := l.locks[key]
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
	}
}
