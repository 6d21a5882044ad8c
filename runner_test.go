package mdstream

import (
	"context"
	"errors"
	"testing"
	"time"
)

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop() { close(t.stopped) }

type manualClock struct {
	ticker   *manualTicker
	interval chan time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{
		ticker:   &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})},
		interval: make(chan time.Duration, 1),
	}
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	c.interval <- d
	return c.ticker
}

// tick delivers one tick and reports false once the runner has stopped.
func (c *manualClock) tick(t *testing.T, r *Runner) bool {
	t.Helper()
	select {
	case c.ticker.ch <- time.Now():
		return true
	case <-r.Done():
		return false
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not accept tick")
		return false
	}
}

func startRunner(t *testing.T, ctx context.Context, r *Runner) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	return errc
}

func TestRunnerDrivesSessionToCompletion(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	s := newTestSession(t, lineConfig(), sink)
	clock := newManualClock()
	r := NewRunner(s, WithClock(clock))
	errc := startRunner(t, context.Background(), r)

	if got := <-clock.interval; got != DefaultInterval {
		t.Fatalf("unexpected tick interval %s", got)
	}
	if err := r.Append("# a\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.Append("b\nc"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	for i := 0; clock.tick(t, r); i++ {
		if i > 100 {
			t.Fatalf("runner did not finish")
		}
	}
	if err := <-errc; err != nil {
		t.Fatalf("run: %v", err)
	}
	select {
	case <-clock.ticker.stopped:
	default:
		t.Fatalf("ticker was not stopped")
	}
	if s.State() != StateFinished || sink.count("complete") != 1 {
		t.Fatalf("expected finished session, state %s calls %q", s.State(), sink.Calls())
	}
	if got := sink.Reveals(2); len(got) != 2 || got[1] != "b\nc" {
		t.Fatalf("unexpected reveals %q", got)
	}
	if err := r.Append("late"); !errors.Is(err, ErrRunnerStopped) {
		t.Fatalf("expected ErrRunnerStopped, got %v", err)
	}
}

func TestRunnerCancelAborts(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	s := newTestSession(t, lineConfig(), sink)
	clock := newManualClock()
	r := NewRunner(s, WithClock(clock))
	ctx, cancel := context.WithCancel(context.Background())
	errc := startRunner(t, ctx, r)
	<-clock.interval

	if err := r.Append("unfinished"); err != nil {
		t.Fatalf("append: %v", err)
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.State() != StateAborted {
		t.Fatalf("expected aborted session, got %s", s.State())
	}
	calls := sink.Calls()
	if len(calls) != 1 || calls[0] != `flush "unfinished"` {
		t.Fatalf("unexpected calls %q", calls)
	}
}

func TestRunnerPauseHoldsTicks(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	s := newTestSession(t, lineConfig(), sink)
	clock := newManualClock()
	r := NewRunner(s, WithClock(clock))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := startRunner(t, ctx, r)
	<-clock.interval

	_ = r.Append("x\ny\n\n")
	_ = r.Pause()
	clock.tick(t, r)
	clock.tick(t, r)
	_ = r.Append("")
	if len(sink.Calls()) != 0 {
		t.Fatalf("paused runner emitted %q", sink.Calls())
	}
	_ = r.Resume()
	clock.tick(t, r)
	_ = r.Append("")
	if got := sink.Reveals(1); len(got) != 1 || got[0] != "x\n" {
		t.Fatalf("unexpected reveals %q", got)
	}
	_ = r.FinishImmediately()
	_ = r.Abort()
	if err := <-errc; err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := sink.Reveals(1); got[len(got)-1] != "x\ny\n\n" {
		t.Fatalf("finish immediately should reveal everything, got %q", got)
	}
}

func TestRunnerRunsOnce(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, DefaultConfig(), nil)
	clock := newManualClock()
	r := NewRunner(s, WithClock(clock))
	errc := startRunner(t, context.Background(), r)
	<-clock.interval
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("second Run should fail")
	}
	_ = r.Finish()
	if err := <-errc; err != nil {
		t.Fatalf("run: %v", err)
	}
}
