package store

import (
	"sync"
	"time"
)

// Timer is a cancellable one-shot. Unlike a bare [time.AfterFunc], the
// callback and Stop are serialized: once Stop returns, the callback either
// already ran or never will. Every timer-owning slice relies on this to
// replace a timer without racing its queued callback.
type Timer struct {
	mu      sync.Mutex
	t       *time.Timer
	settled bool
}

// After arms a timer that runs fn once after d, unless stopped first.
func After(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		tm.mu.Lock()
		if tm.settled {
			tm.mu.Unlock()
			return
		}
		tm.settled = true
		tm.mu.Unlock()
		fn()
	})
	return tm
}

// Stop cancels the timer. It reports whether the callback was prevented
// from running; false means it already fired.
func (tm *Timer) Stop() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.settled {
		return false
	}
	tm.settled = true
	tm.t.Stop()
	return true
}

// Ticker runs fn at a fixed interval until stopped. Once Stop returns, no
// new invocation of fn begins; an invocation already past the stop check
// may still be completing. fn runs outside the ticker's lock, so it may
// call Stop on its own ticker without deadlocking.
type Ticker struct {
	mu      sync.Mutex
	done    chan struct{}
	stopped bool
}

// Every starts a ticker invoking fn every d.
func Every(d time.Duration, fn func()) *Ticker {
	tk := &Ticker{done: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-tk.done:
				return
			case <-ticker.C:
				tk.mu.Lock()
				if tk.stopped {
					tk.mu.Unlock()
					return
				}
				tk.mu.Unlock()
				fn()
			}
		}
	}()
	return tk
}

// Stop halts the ticker. Safe to call more than once.
func (tk *Ticker) Stop() {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	if tk.stopped {
		return
	}
	tk.stopped = true
	close(tk.done)
}
