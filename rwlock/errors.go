package rwlock

import "errors"

// ErrNotLocked is returned by Unlock when the lock is not held at all.
// It signals a caller bug and leaves the lock state unchanged.
var ErrNotLocked = errors.New("rwlock: unlock of unlocked lock")
