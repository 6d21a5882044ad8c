package mdstream

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"pkt.systems/pslog"
)

// State is the lifecycle state of a Session.
type State uint8

const (
	StateIdle State = iota
	StateStreaming
	StatePaused
	StateFinished
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// SessionRequest configures NewSession.
type SessionRequest struct {
	Config  Config
	Sink    Sink
	Options []SessionOption
}

// Session drives one stream from raw chunks to host commands. It composes a
// Buffer, a Scheduler and a Coordinator and is the only writer of their
// state.
//
// A Session must be driven from one goroutine at a time. Calls that overlap,
// including calls made from inside Sink callbacks, fail with
// ErrReentrantCall. Use a Runner to drive a session from several goroutines.
type Session struct {
	id        string
	cfg       Config
	log       pslog.Logger
	buf       *Buffer
	sched     *Scheduler
	coord     *Coordinator
	state     State
	finishing bool
	modules   []Module
	busy      atomic.Bool
}

// NewSession validates req.Config and returns an Idle session.
func NewSession(req SessionRequest) (*Session, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}
	var opts sessionConfig
	for _, opt := range req.Options {
		if opt != nil {
			opt(&opts)
		}
	}
	if opts.id == "" {
		opts.id = uuid.NewString()
	}
	logger := opts.logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("session", opts.id)
	return &Session{
		id:    opts.id,
		cfg:   req.Config,
		log:   logger,
		buf:   NewBuffer(),
		sched: NewScheduler(req.Config.Unit, req.Config.UnitsPerChunk, req.Config.Interval),
		coord: NewCoordinator(req.Sink, logger, req.Config.MaxCorrections),
	}, nil
}

func (s *Session) enter(op string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("mdstream: %s: %w", op, ErrReentrantCall)
	}
	return nil
}

func (s *Session) leave() {
	s.busy.Store(false)
}

// Append adds a chunk of markdown. Modules it completes are queued for reveal
// even while the session is paused. Empty chunks are no-ops.
func (s *Session) Append(chunk string) error {
	if err := s.enter("append"); err != nil {
		return err
	}
	defer s.leave()
	if s.state == StateAborted {
		return nil
	}
	if s.state == StateFinished || s.finishing {
		return fmt.Errorf("mdstream: append: %w", ErrSessionFinished)
	}
	if chunk == "" {
		return nil
	}
	if s.state == StateIdle {
		s.state = StateStreaming
	}
	s.enqueue(s.buf.Append(chunk))
	return nil
}

func (s *Session) enqueue(mods []Module) {
	for _, m := range mods {
		s.modules = append(s.modules, m)
		s.sched.Schedule(m)
		s.log.Debug("module complete", "module", m.ID, "kind", m.Kind.String(), "bytes", m.Len(), "forced", m.Forced)
	}
}

// Tick advances the reveal by one step. It does nothing unless the session
// is streaming.
func (s *Session) Tick() error {
	if err := s.enter("tick"); err != nil {
		return err
	}
	defer s.leave()
	if s.state != StateStreaming {
		return nil
	}
	s.coord.ApplyAll(s.sched.Tick())
	s.complete()
	return nil
}

// Pause freezes the reveal. Appended text is still classified.
func (s *Session) Pause() error {
	if err := s.enter("pause"); err != nil {
		return err
	}
	defer s.leave()
	if s.state != StateIdle && s.state != StateStreaming {
		return nil
	}
	s.sched.Pause()
	s.state = StatePaused
	return nil
}

// Resume continues a paused reveal from where it stopped.
func (s *Session) Resume() error {
	if err := s.enter("resume"); err != nil {
		return err
	}
	defer s.leave()
	if s.state != StatePaused {
		return nil
	}
	s.sched.Resume()
	if s.buf.Len() == 0 && !s.finishing {
		s.state = StateIdle
	} else {
		s.state = StateStreaming
	}
	return nil
}

// FinishImmediately reveals every completed module in full without waiting
// for ticks.
func (s *Session) FinishImmediately() error {
	if err := s.enter("finish immediately"); err != nil {
		return err
	}
	defer s.leave()
	if s.state == StateFinished || s.state == StateAborted {
		return nil
	}
	s.coord.ApplyAll(s.sched.FinishImmediately())
	s.complete()
	return nil
}

// Finish signals the end of input. The remaining tail is classified as final
// and queued. StreamComplete is emitted once the reveal queue drains, which
// may happen before Finish returns.
func (s *Session) Finish() error {
	if err := s.enter("finish"); err != nil {
		return err
	}
	defer s.leave()
	if s.state == StateFinished || s.state == StateAborted || s.finishing {
		return nil
	}
	s.finishing = true
	s.enqueue(s.buf.Finish())
	s.log.Debug("input finished", "bytes", s.buf.Len(), "modules", len(s.modules))
	s.complete()
	return nil
}

func (s *Session) complete() {
	if !s.finishing || !s.sched.Idle() {
		return
	}
	s.coord.Apply(StreamComplete{})
	s.state = StateFinished
	s.log.Debug("stream complete", "modules", len(s.modules))
}

// Abort stops the reveal, hands the host every unrevealed byte through a
// Flush command and makes all later calls no-ops. Already applied commands
// are not rolled back.
func (s *Session) Abort() error {
	if err := s.enter("abort"); err != nil {
		return err
	}
	defer s.leave()
	if s.state == StateFinished || s.state == StateAborted {
		return nil
	}
	remaining := s.sched.Cancel()
	if !s.buf.Finished() {
		remaining += s.buf.PendingTail()
	}
	s.coord.Apply(Flush{Remaining: remaining})
	s.state = StateAborted
	s.log.Info("session aborted", "unrevealed", len(remaining))
	return nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Config returns the configuration the session was created with.
func (s *Session) Config() Config {
	return s.cfg
}

// Done reports whether the session reached Finished or Aborted.
func (s *Session) Done() bool {
	return s.state == StateFinished || s.state == StateAborted
}

// Finishing reports whether Finish was called.
func (s *Session) Finishing() bool {
	return s.finishing
}

// Modules returns every module completed so far, in text order.
func (s *Session) Modules() []Module {
	out := make([]Module, len(s.modules))
	copy(out, s.modules)
	return out
}

// Module returns the completed module with the given id.
func (s *Session) Module(id int) (Module, bool) {
	if id < 1 || id > len(s.modules) {
		return Module{}, false
	}
	return s.modules[id-1], true
}

// Pending returns the classifier's guess for the open tail.
func (s *Session) Pending() (Module, bool) {
	return s.buf.Pending()
}

// PendingTail returns the text that has not completed a module yet.
func (s *Session) PendingTail() string {
	return s.buf.PendingTail()
}

// Oscillations returns how many commands were dropped by the layout guard.
func (s *Session) Oscillations() int {
	return s.coord.Oscillations()
}
