package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	. "gopkg.in/check.v1"
)

type WatcherSuite struct{}

var _ = Suite(&WatcherSuite{})

func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func (w *WatcherSuite) TestReloadsOnChange(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "diabetes_demo.csv")
	c.Assert(os.WriteFile(path, []byte("patient_id,name\n"), 0644), IsNil)

	svc := NewMockService()
	delayer := NewFunctionDelayer(50 * time.Millisecond)
	defer delayer.Stop()
	watcher, err := NewWatcher(path, path, delayer, svc, zerolog.Nop())
	c.Assert(err, IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	// Other files in the directory are ignored
	c.Assert(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644), IsNil)
	time.Sleep(200 * time.Millisecond)
	c.Assert(svc.ReloadCount(), Equals, 0)

	c.Assert(os.WriteFile(path, []byte("patient_id,name\np1,A\n"), 0644), IsNil)
	c.Assert(waitFor(func() bool { return svc.ReloadCount() > 0 }, 2*time.Second), Equals, true)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		c.Fatal("watcher did not stop")
	}
}

func (w *WatcherSuite) TestMissingDirectory(c *C) {
	_, err := NewWatcher(filepath.Join(c.MkDir(), "nope", "data.csv"), "data.csv", NewFunctionDelayer(time.Second), NewMockService(), zerolog.Nop())
	c.Assert(err, ErrorMatches, "watch .*")
}
