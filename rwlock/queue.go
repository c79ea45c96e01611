package rwlock

import (
	"time"

	"github.com/eapache/queue"

	"github.com/hoylen/asyncmutex/promise"
)

// request is one pending acquire call.
type request struct {
	mode      Mode
	signal    *promise.Promise[struct{}]
	enqueued  time.Time
	abandoned bool
}

func newRequest(mode Mode, now time.Time) *request {
	return &request{
		mode:     mode,
		signal:   promise.Pending[struct{}](),
		enqueued: now,
	}
}

// waitQueue keeps pending requests in arrival order.
// Abandoned requests stay in the ring until a drain reaches them;
// the head of a non-empty queue is always a live request once drain returns.
type waitQueue struct {
	ring *queue.Queue
	live int
}

func newWaitQueue() *waitQueue {
	return &waitQueue{ring: queue.New()}
}

func (w *waitQueue) push(r *request) {
	w.ring.Add(r)
	w.live++
}

func (w *waitQueue) empty() bool {
	return w.ring.Length() == 0
}

// waiting is the number of live requests.
func (w *waitQueue) waiting() int {
	return w.live
}

func (w *waitQueue) abandon(r *request) {
	if r.abandoned {
		return
	}
	r.abandoned = true
	w.live--
}

// drain pops requests from the head for as long as st admits them, applies
// their transitions and returns them in grant order. It stops at the first
// live request st cannot admit.
func (w *waitQueue) drain(st *state) []*request {
	var granted []*request
	for w.ring.Length() > 0 {
		r := w.ring.Peek().(*request)
		if r.abandoned {
			w.ring.Remove()
			continue
		}
		if !st.canGrant(r.mode) {
			break
		}
		w.ring.Remove()
		w.live--
		st.grant(r.mode)
		granted = append(granted, r)
	}
	return granted
}
