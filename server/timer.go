package server

import (
	"sync"
	"time"
)

// FunctionDelayer debounces calls by key.  Delay schedules fn to run once the
// configured duration has passed without another Delay for the same key; each
// repeated Delay pushes the call back.  With a 3 second delay, two Delay("x")
// calls two seconds apart run the function once, five seconds after the first.
//
// Only the function given to the first Delay of a burst is run.
type FunctionDelayer struct {
	sync.Mutex
	Duration time.Duration
	timers   map[string]*time.Timer
	stopped  bool
}

// NewFunctionDelayer creates a new FunctionDelayer with the specified duration.
func NewFunctionDelayer(duration time.Duration) *FunctionDelayer {
	return &FunctionDelayer{
		Duration: duration,
		timers:   make(map[string]*time.Timer),
	}
}

// Delay schedules fn under key, or resets the pending timer for key.  It
// reports whether a new call was scheduled.  After Stop, Delay does nothing.
func (f *FunctionDelayer) Delay(key string, fn func()) bool {
	f.Lock()
	defer f.Unlock()

	if f.stopped {
		return false
	}
	return f.schedule(key, fn)
}

// schedule is Delay with the lock held.  A timer that already fired is left to
// its callback, which may still be waiting for the lock, and a new one takes
// its place.
func (f *FunctionDelayer) schedule(key string, fn func()) bool {
	if t, ok := f.timers[key]; ok && t.Stop() {
		t.Reset(f.Duration)
		return false
	}
	var t *time.Timer
	t = time.AfterFunc(f.Duration, func() {
		f.Lock()
		f.forget(key, t)
		f.Unlock()
		fn()
	})
	f.timers[key] = t
	return true
}

// forget drops t from the pending timers unless a later Delay already
// replaced it.  Callers hold the lock.
func (f *FunctionDelayer) forget(key string, t *time.Timer) {
	if f.timers[key] == t {
		delete(f.timers, key)
	}
}

// Pending reports whether a call is scheduled for key.
func (f *FunctionDelayer) Pending(key string) bool {
	f.Lock()
	defer f.Unlock()
	_, ok := f.timers[key]
	return ok
}

// Stop cancels every pending call.  Calls already running are not interrupted.
func (f *FunctionDelayer) Stop() {
	f.Lock()
	defer f.Unlock()

	f.stopped = true
	for key, t := range f.timers {
		t.Stop()
		delete(f.timers, key)
	}
}
