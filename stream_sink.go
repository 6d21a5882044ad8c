package mdstream

// Sink is the host display surface the pipeline renders into. Calls arrive in
// the order commands were generated, from the goroutine driving the session.
//
// Sink methods must not call back into the session that drives them; such
// calls fail with ErrReentrantCall.
type Sink interface {
	OnBeginModule(id int, kind Kind)
	OnRevealUpdate(id int, text string)
	OnModuleFinalized(id int)
	OnFlush(remaining string)
	OnStreamComplete()
	// OnHeightFeedback reports whether applying the last command for id changed
	// the measured size of the module on the host.
	OnHeightFeedback(id int) bool
}

// DiscardSink drops every command.
type DiscardSink struct{}

func (DiscardSink) OnBeginModule(int, Kind) {}
func (DiscardSink) OnRevealUpdate(int, string) {}
func (DiscardSink) OnModuleFinalized(int) {}
func (DiscardSink) OnFlush(string) {}
func (DiscardSink) OnStreamComplete() {}
func (DiscardSink) OnHeightFeedback(int) bool { return false }

// ChannelSink forwards commands to a channel for hosts that consume them on
// their own goroutine. Sends block until the channel accepts them. Height
// feedback is never reported.
type ChannelSink struct {
	C chan<- Command
}

// NewChannelSink returns a ChannelSink and the receive side of its channel.
func NewChannelSink(buffer int) (ChannelSink, <-chan Command) {
	ch := make(chan Command, buffer)
	return ChannelSink{C: ch}, ch
}

func (s ChannelSink) OnBeginModule(id int, kind Kind) {
	s.C <- BeginModule{ID: id, Kind: kind}
}

func (s ChannelSink) OnRevealUpdate(id int, text string) {
	s.C <- UpdateReveal{ID: id, Text: text}
}

func (s ChannelSink) OnModuleFinalized(id int) {
	s.C <- FinalizeModule{ID: id}
}

func (s ChannelSink) OnFlush(remaining string) {
	s.C <- Flush{Remaining: remaining}
}

func (s ChannelSink) OnStreamComplete() {
	s.C <- StreamComplete{}
}

func (ChannelSink) OnHeightFeedback(int) bool { return false }
