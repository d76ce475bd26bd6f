package engine

import (
	"sync"

	"github.com/roach88/varsync/internal/variables"
)

// pendingSlot holds at most one notification that has not started yet.
//
// A newer notification replaces the pending one: every pass re-derives
// its state from the whole document, so only the latest request matters.
//
// Thread-safety: Put may be called from any goroutine while the Run loop
// takes. The slot uses a channel for signaling so the loop can wait on it
// together with a context and a timer.
type pendingSlot struct {
	mu      sync.Mutex
	pending variables.Notification
	has     bool
	closed  bool
	signal  chan struct{} // Signals a Put (buffered, size 1)
}

func newPendingSlot() *pendingSlot {
	return &pendingSlot{
		signal: make(chan struct{}, 1),
	}
}

// Put stores n, discarding any pending notification.
// Returns replaced=true when one was discarded, ok=false if the slot is
// closed.
func (s *pendingSlot) Put(n variables.Notification) (replaced, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false
	}
	replaced = s.has
	s.pending = n
	s.has = true

	// non-blocking: a buffer of 1 coalesces signals
	select {
	case s.signal <- struct{}{}:
	default:
	}
	return replaced, true
}

// Take removes and returns the pending notification.
// Returns (Notification{}, false) if nothing is pending.
func (s *pendingSlot) Take() (variables.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.has {
		return variables.Notification{}, false
	}
	n := s.pending
	// drop the reference so the editor can be collected
	s.pending = variables.Notification{}
	s.has = false
	return n, true
}

// Pending reports whether a notification is waiting.
func (s *pendingSlot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.has
}

// Wait returns a channel that signals when a notification may have been
// put. The channel is closed by Close.
func (s *pendingSlot) Wait() <-chan struct{} {
	return s.signal
}

// Closed reports whether Close was called.
func (s *pendingSlot) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close discards the pending notification and wakes waiters.
func (s *pendingSlot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.pending = variables.Notification{}
	s.has = false
	close(s.signal)
}
