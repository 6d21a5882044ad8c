package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/wordwrap"

	"pkt.systems/mdstream"
)

// terminalHost is the display surface of the CLI. In plain mode it writes
// every reveal delta as it arrives; in pretty mode it renders each module
// through glamour once the module is fully revealed.
type terminalHost struct {
	w        io.Writer
	width    int
	renderer *glamour.TermRenderer
	lookup   func(id int) (mdstream.Module, bool)
	notice   lipgloss.Style

	shown     map[int]string
	rows      map[int]int
	finalized map[int]bool
	lastByte  byte
	err       error
}

type hostRequest struct {
	Writer io.Writer
	Width  int
	Pretty bool
	Style  string
	Color  bool
}

func newTerminalHost(req hostRequest) (*terminalHost, error) {
	h := &terminalHost{
		w:         req.Writer,
		width:     req.Width,
		notice:    lipgloss.NewStyle(),
		shown:     make(map[int]string),
		rows:      make(map[int]int),
		finalized: make(map[int]bool),
		lastByte:  '\n',
	}
	if req.Color {
		h.notice = h.notice.Faint(true).Italic(true)
	}
	if req.Pretty {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(req.Width)}
		switch style := strings.TrimSpace(req.Style); style {
		case "", "auto":
			opts = append(opts, glamour.WithAutoStyle())
		default:
			opts = append(opts, glamour.WithStandardStyle(style))
		}
		r, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return nil, fmt.Errorf("markdown renderer: %w", err)
		}
		h.renderer = r
	}
	return h, nil
}

// setLookup gives the host access to completed modules so pretty mode can
// render the closing fence of unterminated code blocks.
func (h *terminalHost) setLookup(lookup func(id int) (mdstream.Module, bool)) {
	h.lookup = lookup
}

func (h *terminalHost) write(s string) {
	if h.err != nil || s == "" {
		return
	}
	if _, err := io.WriteString(h.w, s); err != nil {
		h.err = err
		return
	}
	h.lastByte = s[len(s)-1]
}

func (h *terminalHost) OnBeginModule(int, mdstream.Kind) {}

func (h *terminalHost) OnRevealUpdate(id int, text string) {
	prev := h.shown[id]
	h.shown[id] = text
	if h.renderer != nil || !strings.HasPrefix(text, prev) {
		return
	}
	h.write(text[len(prev):])
}

func (h *terminalHost) OnModuleFinalized(id int) {
	if h.finalized[id] {
		return
	}
	h.finalized[id] = true
	if h.renderer == nil {
		return
	}
	text := h.shown[id]
	if h.lookup != nil {
		if m, ok := h.lookup(id); ok {
			text = m.Renderable()
		}
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	out, err := h.renderer.Render(text)
	if err != nil {
		out = text
	}
	h.write(out)
}

func (h *terminalHost) OnFlush(remaining string) {
	if h.lastByte != '\n' {
		h.write("\n")
	}
	if remaining == "" {
		h.write(h.notice.Render("[stream aborted]") + "\n")
		return
	}
	h.write(h.notice.Render(fmt.Sprintf("[stream aborted, %d bytes unrevealed]", len(remaining))) + "\n")
}

func (h *terminalHost) OnStreamComplete() {
	if h.lastByte != '\n' {
		h.write("\n")
	}
}

// OnHeightFeedback reports whether the module's wrapped row count changed
// since the last measurement.
func (h *terminalHost) OnHeightFeedback(id int) bool {
	rows := measureRows(h.shown[id], h.width)
	changed := rows != h.rows[id]
	h.rows[id] = rows
	return changed
}

// Err returns the first write error.
func (h *terminalHost) Err() error {
	return h.err
}

// measureRows counts the terminal rows text occupies at width, word wrapping
// first and hard wrapping words longer than a row.
func measureRows(text string, width int) int {
	if text == "" {
		return 0
	}
	if width <= 0 {
		width = defaultWidth
	}
	rows := 0
	for _, line := range strings.Split(wordwrap.String(text, width), "\n") {
		w := ansi.PrintableRuneWidth(line)
		if w <= width {
			rows++
			continue
		}
		rows += (w + width - 1) / width
	}
	return rows
}

var _ mdstream.Sink = (*terminalHost)(nil)
