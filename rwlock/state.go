package rwlock

import "fmt"

// Mode is the kind of hold a lock request asks for.
type Mode int

const (
	// Read is a shared hold; any number of readers may hold the lock together.
	Read Mode = iota
	// Write is an exclusive hold.
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// state is the lock counter: 0 unlocked, -1 write-locked, N>0 held by N readers.
type state int

const (
	unlocked    state = 0
	writeLocked state = -1
)

func (s state) canGrant(m Mode) bool {
	switch {
	case s == unlocked:
		return true
	case s > 0:
		return m == Read
	default:
		return false
	}
}

// grant applies the transition for m. The caller checks canGrant first.
func (s *state) grant(m Mode) {
	if m == Write {
		*s = writeLocked
		return
	}
	*s++
}

// release drops one hold.
func (s *state) release() error {
	switch {
	case *s == unlocked:
		return ErrNotLocked
	case *s == writeLocked:
		*s = unlocked
	default:
		*s--
	}
	return nil
}
