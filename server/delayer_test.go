package server

import (
	"sync"
	"time"

	. "gopkg.in/check.v1"
)

type DelayerSuite struct{}

var _ = Suite(&DelayerSuite{})

type callRecorder struct {
	sync.Mutex
	Calls []string
}

func (r *callRecorder) fn(key string) func() {
	return func() {
		r.Lock()
		defer r.Unlock()
		r.Calls = append(r.Calls, key)
	}
}

func (r *callRecorder) AssertCalls(c *C, keys ...string) {
	r.Lock()
	defer r.Unlock()
	if len(keys) == 0 {
		c.Assert(r.Calls, HasLen, 0)
		return
	}
	c.Assert(r.Calls, DeepEquals, keys)
}

func (d *DelayerSuite) TestSingleDelay(c *C) {
	r := &callRecorder{}
	f := NewFunctionDelayer(100 * time.Millisecond)
	c.Assert(f.Delay("reload", r.fn("reload")), Equals, true)
	c.Assert(f.Pending("reload"), Equals, true)
	time.Sleep(75 * time.Millisecond)
	r.AssertCalls(c)
	time.Sleep(75 * time.Millisecond)
	r.AssertCalls(c, "reload")
	c.Assert(f.Pending("reload"), Equals, false)
	time.Sleep(100 * time.Millisecond)
	r.AssertCalls(c, "reload")
}

func (d *DelayerSuite) TestRepeatedDelayPushesBack(c *C) {
	r := &callRecorder{}
	f := NewFunctionDelayer(100 * time.Millisecond)
	f.Delay("reload", r.fn("first"))
	time.Sleep(75 * time.Millisecond)
	c.Assert(f.Delay("reload", r.fn("second")), Equals, false)
	time.Sleep(75 * time.Millisecond)
	// 150ms after the first call, 75ms after the reset
	r.AssertCalls(c)
	time.Sleep(75 * time.Millisecond)
	r.AssertCalls(c, "first")
}

func (d *DelayerSuite) TestDelayAfterFiring(c *C) {
	r := &callRecorder{}
	f := NewFunctionDelayer(100 * time.Millisecond)
	f.Delay("reload", r.fn("reload"))
	time.Sleep(150 * time.Millisecond)
	r.AssertCalls(c, "reload")
	c.Assert(f.Delay("reload", r.fn("reload")), Equals, true)
	time.Sleep(150 * time.Millisecond)
	r.AssertCalls(c, "reload", "reload")
}

func (d *DelayerSuite) TestDelayWhileCallbackWaits(c *C) {
	r := &callRecorder{}
	f := NewFunctionDelayer(100 * time.Millisecond)
	f.Delay("reload", r.fn("first"))

	f.Lock()
	time.Sleep(150 * time.Millisecond) // the first timer fired and waits for the lock
	c.Assert(f.schedule("reload", r.fn("second")), Equals, true)
	f.Unlock()

	time.Sleep(50 * time.Millisecond)
	r.AssertCalls(c, "first")
	c.Assert(f.Pending("reload"), Equals, true)
	c.Assert(f.Delay("reload", r.fn("third")), Equals, false)
	time.Sleep(150 * time.Millisecond)
	r.AssertCalls(c, "first", "second")
	c.Assert(f.Pending("reload"), Equals, false)
}

func (d *DelayerSuite) TestIndependentKeys(c *C) {
	r := &callRecorder{}
	f := NewFunctionDelayer(100 * time.Millisecond)
	f.Delay("a.csv", r.fn("a.csv")) // fires at 100ms
	f.Delay("b.csv", r.fn("b.csv")) // fires at 100ms
	time.Sleep(75 * time.Millisecond)
	r.AssertCalls(c)
	f.Delay("a.csv", r.fn("a.csv")) // now fires at 175ms
	time.Sleep(75 * time.Millisecond)
	r.AssertCalls(c, "b.csv")
	f.Delay("c.csv", r.fn("c.csv")) // fires at 250ms
	time.Sleep(75 * time.Millisecond)
	r.AssertCalls(c, "b.csv", "a.csv")
	time.Sleep(75 * time.Millisecond)
	r.AssertCalls(c, "b.csv", "a.csv", "c.csv")
}

func (d *DelayerSuite) TestStop(c *C) {
	r := &callRecorder{}
	f := NewFunctionDelayer(50 * time.Millisecond)
	f.Delay("reload", r.fn("reload"))
	f.Stop()
	c.Assert(f.Pending("reload"), Equals, false)
	c.Assert(f.Delay("reload", r.fn("reload")), Equals, false)
	time.Sleep(100 * time.Millisecond)
	r.AssertCalls(c)
}
