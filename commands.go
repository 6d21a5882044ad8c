package mdstream

// Command is a render command emitted towards the host. The unexported marker
// method keeps the set of variants closed.
type Command interface {
	command()
}

// BeginModule announces that the reveal of a module starts.
type BeginModule struct {
	ID   int
	Kind Kind
}

func (BeginModule) command() {}

// UpdateReveal carries the revealed prefix of a module. Text always grows.
type UpdateReveal struct {
	ID   int
	Text string
}

func (UpdateReveal) command() {}

// FinalizeModule signals that a module is fully revealed.
type FinalizeModule struct {
	ID int
}

func (FinalizeModule) command() {}

// Flush hands the host the text that was never revealed when a stream is
// aborted.
type Flush struct {
	Remaining string
}

func (Flush) command() {}

// StreamComplete is the last command of a finished stream.
type StreamComplete struct{}

func (StreamComplete) command() {}

var (
	_ Command = BeginModule{}
	_ Command = UpdateReveal{}
	_ Command = FinalizeModule{}
	_ Command = Flush{}
	_ Command = StreamComplete{}
)
