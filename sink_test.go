package mdstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"pkt.systems/pslog"
)

// recordingSink records every callback as a short string. heights, when set,
// scripts the answers to OnHeightFeedback in order; false is returned once it
// runs out.
type recordingSink struct {
	mu      sync.Mutex
	calls   []string
	texts   map[int][]string
	heights []bool
	onCall  func(call string)
}

func (r *recordingSink) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	hook := r.onCall
	r.mu.Unlock()
	if hook != nil {
		hook(call)
	}
}

func (r *recordingSink) OnBeginModule(id int, kind Kind) {
	r.record(fmt.Sprintf("begin %d %s", id, kind))
}

func (r *recordingSink) OnRevealUpdate(id int, text string) {
	r.mu.Lock()
	if r.texts == nil {
		r.texts = make(map[int][]string)
	}
	r.texts[id] = append(r.texts[id], text)
	r.mu.Unlock()
	r.record(fmt.Sprintf("update %d %q", id, text))
}

func (r *recordingSink) OnModuleFinalized(id int) {
	r.record(fmt.Sprintf("finalize %d", id))
}

func (r *recordingSink) OnFlush(remaining string) {
	r.record(fmt.Sprintf("flush %q", remaining))
}

func (r *recordingSink) OnStreamComplete() {
	r.record("complete")
}

func (r *recordingSink) OnHeightFeedback(int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.heights) == 0 {
		return false
	}
	changed := r.heights[0]
	r.heights = r.heights[1:]
	return changed
}

func (r *recordingSink) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recordingSink) Reveals(id int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts[id]...)
}

func (r *recordingSink) count(prefix string) int {
	n := 0
	for _, call := range r.Calls() {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type logEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

type logCapture struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	lines []string
}

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.DebugLevel,
		VerboseFields: true,
	})
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.buf.Write(p)
	for {
		data := c.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		c.lines = append(c.lines, string(data[:idx]))
		c.buf.Next(idx + 1)
	}
	return len(p), nil
}

func (c *logCapture) Entries() []logEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]logEntry, 0, len(c.lines))
	for _, line := range c.lines {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			continue
		}
		entry := logEntry{Fields: payload}
		if v, ok := payload["level"].(string); ok {
			entry.Level = v
		} else if v, ok := payload["lvl"].(string); ok {
			entry.Level = v
		}
		if v, ok := payload["message"].(string); ok {
			entry.Message = v
		} else if v, ok := payload["msg"].(string); ok {
			entry.Message = v
		}
		entries = append(entries, entry)
	}
	return entries
}

func (c *logCapture) find(t *testing.T, message string) logEntry {
	t.Helper()
	for _, entry := range c.Entries() {
		if entry.Message == message {
			return entry
		}
	}
	t.Fatalf("no %q log entry in %d entries", message, len(c.Entries()))
	return logEntry{}
}

func TestChannelSinkDeliversCommandsInOrder(t *testing.T) {
	t.Parallel()
	sink, ch := NewChannelSink(8)
	sink.OnBeginModule(1, KindHeading)
	sink.OnRevealUpdate(1, "# a")
	sink.OnModuleFinalized(1)
	sink.OnStreamComplete()
	want := []Command{
		BeginModule{ID: 1, Kind: KindHeading},
		UpdateReveal{ID: 1, Text: "# a"},
		FinalizeModule{ID: 1},
		StreamComplete{},
	}
	for i, w := range want {
		if got := <-ch; got != w {
			t.Fatalf("command %d: want %+v, got %+v", i, w, got)
		}
	}
	if sink.OnHeightFeedback(1) {
		t.Fatalf("channel sink never reports height changes")
	}
}
