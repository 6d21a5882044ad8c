package mdstream

import "pkt.systems/pslog"

// Coordinator applies render commands to a Sink. It drops reveal updates that
// would not change what the host shows and bounds how often a command is
// re-applied when the host keeps reporting size changes. The host stays the
// only party that measures.
type Coordinator struct {
	sink           Sink
	log            pslog.Logger
	maxCorrections int
	last           map[int]string
	finalized      map[int]struct{}
	oscillations   int
}

// NewCoordinator returns a Coordinator applying commands to sink.
func NewCoordinator(sink Sink, logger pslog.Logger, maxCorrections int) *Coordinator {
	if sink == nil {
		sink = DiscardSink{}
	}
	if maxCorrections < 0 {
		maxCorrections = 0
	}
	return &Coordinator{
		sink:           sink,
		log:            logger,
		maxCorrections: maxCorrections,
		last:           make(map[int]string),
		finalized:      make(map[int]struct{}),
	}
}

// Apply forwards cmd to the sink.
func (c *Coordinator) Apply(cmd Command) {
	switch cmd := cmd.(type) {
	case BeginModule:
		c.sink.OnBeginModule(cmd.ID, cmd.Kind)
	case UpdateReveal:
		if _, done := c.finalized[cmd.ID]; done {
			return
		}
		if prev, ok := c.last[cmd.ID]; ok && prev == cmd.Text {
			return
		}
		c.last[cmd.ID] = cmd.Text
		c.sink.OnRevealUpdate(cmd.ID, cmd.Text)
		c.settle(cmd.ID, func() { c.sink.OnRevealUpdate(cmd.ID, cmd.Text) })
	case FinalizeModule:
		if _, done := c.finalized[cmd.ID]; done {
			return
		}
		c.finalized[cmd.ID] = struct{}{}
		text, revealed := c.last[cmd.ID]
		delete(c.last, cmd.ID)
		c.sink.OnModuleFinalized(cmd.ID)
		if !revealed {
			c.settle(cmd.ID, nil)
			return
		}
		c.settle(cmd.ID, func() { c.sink.OnRevealUpdate(cmd.ID, text) })
	case Flush:
		c.sink.OnFlush(cmd.Remaining)
	case StreamComplete:
		c.sink.OnStreamComplete()
	}
}

// ApplyAll applies cmds in order.
func (c *Coordinator) ApplyAll(cmds []Command) {
	for _, cmd := range cmds {
		c.Apply(cmd)
	}
}

// settle re-applies the module's reveal while the host reports a size change,
// at most maxCorrections times. A change reported after the last correction
// is logged and dropped. Finalization itself is never repeated; a finalize
// corrects by re-sending the last revealed text, and with nothing revealed
// the host is only asked again.
func (c *Coordinator) settle(id int, reapply func()) {
	if !c.sink.OnHeightFeedback(id) {
		return
	}
	for range c.maxCorrections {
		if reapply != nil {
			reapply()
		}
		if !c.sink.OnHeightFeedback(id) {
			return
		}
	}
	c.oscillations++
	if c.log != nil {
		c.log.Warn("layout oscillation", "module", id, "corrections", c.maxCorrections)
	}
}

// Oscillations returns how many commands ended with the host still reporting
// size changes.
func (c *Coordinator) Oscillations() int {
	return c.oscillations
}
