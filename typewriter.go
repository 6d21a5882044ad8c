package mdstream

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a RevealTask.
type TaskStatus uint8

const (
	TaskPending TaskStatus = iota
	TaskActive
	TaskPaused
	TaskDone
	TaskCancelled
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskActive:
		return "active"
	case TaskPaused:
		return "paused"
	case TaskDone:
		return "done"
	case TaskCancelled:
		return "cancelled"
	}
	return "unknown"
}

// RevealTask tracks the paced reveal of one completed module. Revealed is a
// byte offset into FullText that only grows and always sits on a grapheme
// cluster boundary.
type RevealTask struct {
	ModuleID      int
	Kind          Kind
	FullText      string
	Revealed      int
	Unit          Unit
	UnitsPerChunk int
	Interval      time.Duration
	Status        TaskStatus
}

// Text returns the revealed prefix.
func (t *RevealTask) Text() string {
	return t.FullText[:t.Revealed]
}

// Remaining returns the text not yet revealed.
func (t *RevealTask) Remaining() string {
	return t.FullText[t.Revealed:]
}

// Scheduler reveals completed modules one at a time in arrival order. The
// host's timing source calls Tick; each tick advances the active task by
// UnitsPerChunk units.
type Scheduler struct {
	unit     Unit
	per      int
	interval time.Duration
	active   *RevealTask
	queue    []*RevealTask
	paused   bool
}

// NewScheduler returns a Scheduler revealing unitsPerChunk units of unit per
// tick. interval is recorded on every task for hosts that pace ticks per task.
func NewScheduler(unit Unit, unitsPerChunk int, interval time.Duration) *Scheduler {
	if unitsPerChunk <= 0 {
		unitsPerChunk = 1
	}
	return &Scheduler{unit: unit, per: unitsPerChunk, interval: interval}
}

// Schedule queues m for reveal behind every previously scheduled module.
func (s *Scheduler) Schedule(m Module) *RevealTask {
	t := &RevealTask{
		ModuleID:      m.ID,
		Kind:          m.Kind,
		FullText:      m.Content,
		Unit:          s.unit,
		UnitsPerChunk: s.per,
		Interval:      s.interval,
		Status:        TaskPending,
	}
	s.queue = append(s.queue, t)
	return t
}

func (s *Scheduler) activate() (*RevealTask, bool) {
	if s.active != nil {
		return s.active, false
	}
	if len(s.queue) == 0 {
		return nil, false
	}
	t := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	t.Status = TaskActive
	s.active = t
	return t, true
}

// Tick advances the active task, activating the next queued task when none
// is active. It returns nil while paused.
func (s *Scheduler) Tick() []Command {
	if s.paused {
		return nil
	}
	t, started := s.activate()
	if t == nil {
		return nil
	}
	var cmds []Command
	if started {
		cmds = append(cmds, BeginModule{ID: t.ModuleID, Kind: t.Kind})
	}
	if next := advance(t.FullText, t.Revealed, t.Unit, t.UnitsPerChunk); next > t.Revealed {
		t.Revealed = next
		cmds = append(cmds, UpdateReveal{ID: t.ModuleID, Text: t.Text()})
	}
	if t.Revealed == len(t.FullText) {
		t.Status = TaskDone
		s.active = nil
		cmds = append(cmds, FinalizeModule{ID: t.ModuleID})
	}
	return cmds
}

// Pause freezes the reveal at its current offset.
func (s *Scheduler) Pause() {
	s.paused = true
	if s.active != nil {
		s.active.Status = TaskPaused
	}
}

// Resume continues the reveal exactly where Pause left it.
func (s *Scheduler) Resume() {
	s.paused = false
	if s.active != nil {
		s.active.Status = TaskActive
	}
}

// Paused reports whether ticks are suppressed.
func (s *Scheduler) Paused() bool {
	return s.paused
}

// FinishImmediately reveals the active task and every queued task in full,
// in order, regardless of pause state.
func (s *Scheduler) FinishImmediately() []Command {
	var cmds []Command
	for {
		t, started := s.activate()
		if t == nil {
			return cmds
		}
		if started {
			cmds = append(cmds, BeginModule{ID: t.ModuleID, Kind: t.Kind})
		}
		if t.Revealed < len(t.FullText) {
			t.Revealed = len(t.FullText)
			cmds = append(cmds, UpdateReveal{ID: t.ModuleID, Text: t.FullText})
		}
		t.Status = TaskDone
		s.active = nil
		cmds = append(cmds, FinalizeModule{ID: t.ModuleID})
	}
}

// Cancel drops the active and queued tasks and returns their unrevealed text
// in order.
func (s *Scheduler) Cancel() string {
	var b strings.Builder
	if s.active != nil {
		b.WriteString(s.active.Remaining())
		s.active.Status = TaskCancelled
		s.active = nil
	}
	for i, t := range s.queue {
		b.WriteString(t.FullText)
		t.Status = TaskCancelled
		s.queue[i] = nil
	}
	s.queue = s.queue[:0]
	return b.String()
}

// Active returns the task currently being revealed, or nil.
func (s *Scheduler) Active() *RevealTask {
	return s.active
}

// Queued returns the number of tasks waiting behind the active one.
func (s *Scheduler) Queued() int {
	return len(s.queue)
}

// Idle reports whether no task is active or queued.
func (s *Scheduler) Idle() bool {
	return s.active == nil && len(s.queue) == 0
}
