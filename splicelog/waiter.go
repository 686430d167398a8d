package splicelog

import "sync"

// Waiter is an edge-triggered signal: Set wakes every goroutine currently
// blocked on a channel obtained from C, and a goroutine that calls C after
// that Set gets a fresh channel that stays open until the next Set. A
// close-and-replace channel plays the role of an auto-reset event without
// needing an explicit Clear call from consumers.
type Waiter struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewWaiter returns a Waiter with no pending signal.
func NewWaiter() *Waiter {
	return &Waiter{ch: make(chan struct{})}
}

// Set wakes all current waiters. Safe to call with no waiters present.
func (w *Waiter) Set() {
	w.mu.Lock()
	close(w.ch)
	w.ch = make(chan struct{})
	w.mu.Unlock()
}

// C returns a channel that closes the next time Set is called. Calls made
// between two Sets return the same channel; once it has closed, callers
// should re-call C for the next edge rather than reusing the old channel.
func (w *Waiter) C() <-chan struct{} {
	w.mu.Lock()
	ch := w.ch
	w.mu.Unlock()
	return ch
}
