package mdstream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Ticker delivers the ticks that pace a Runner.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates Tickers. Tests substitute a Clock they advance by hand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (t systemTicker) C() <-chan time.Time { return t.t.C }
func (t systemTicker) Stop() { t.t.Stop() }

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock that paces ticks.
func WithClock(clock Clock) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

type runnerOp struct {
	name string
	fn   func(*Session) error
	res  chan error
}

// Runner owns a Session on a single goroutine. Operations may be called from
// any goroutine; they are queued and applied in arrival order between ticks.
type Runner struct {
	session *Session
	clock   Clock
	ops     chan runnerOp
	done    chan struct{}
	started atomic.Bool
}

// NewRunner returns a Runner for s. Call Run to start the loop.
func NewRunner(s *Session, opts ...RunnerOption) *Runner {
	r := &Runner{
		session: s,
		clock:   SystemClock{},
		ops:     make(chan runnerOp),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run ticks the session at its configured interval and applies queued
// operations until the session is Finished or Aborted. Cancelling ctx aborts
// the session and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("mdstream: run: already started")
	}
	defer close(r.done)
	ticker := r.clock.NewTicker(r.session.Config().Interval)
	defer ticker.Stop()
	log := r.session.log
	log.Debug("runner started", "interval", r.session.Config().Interval.String())
	for !r.session.Done() {
		select {
		case <-ctx.Done():
			if err := r.session.Abort(); err != nil {
				return err
			}
			log.Debug("runner cancelled", "err", ctx.Err())
			return ctx.Err()
		case op := <-r.ops:
			err := op.fn(r.session)
			if err != nil {
				log.Debug("runner op failed", "op", op.name, "err", err)
			}
			op.res <- err
		case <-ticker.C():
			if err := r.session.Tick(); err != nil {
				return fmt.Errorf("mdstream: run: %w", err)
			}
		}
	}
	log.Debug("runner stopped", "state", r.session.State().String())
	return nil
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) do(name string, fn func(*Session) error) error {
	op := runnerOp{name: name, fn: fn, res: make(chan error, 1)}
	select {
	case r.ops <- op:
	case <-r.done:
		return fmt.Errorf("mdstream: %s: %w", name, ErrRunnerStopped)
	}
	return <-op.res
}

// Append queues Session.Append.
func (r *Runner) Append(chunk string) error {
	return r.do("append", func(s *Session) error { return s.Append(chunk) })
}

// Pause queues Session.Pause.
func (r *Runner) Pause() error {
	return r.do("pause", (*Session).Pause)
}

// Resume queues Session.Resume.
func (r *Runner) Resume() error {
	return r.do("resume", (*Session).Resume)
}

// FinishImmediately queues Session.FinishImmediately.
func (r *Runner) FinishImmediately() error {
	return r.do("finish immediately", (*Session).FinishImmediately)
}

// Finish queues Session.Finish. Run returns once the reveal drains.
func (r *Runner) Finish() error {
	return r.do("finish", (*Session).Finish)
}

// Abort queues Session.Abort.
func (r *Runner) Abort() error {
	return r.do("abort", (*Session).Abort)
}
