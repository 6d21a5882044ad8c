package mdstream

import (
	"strings"
	"unsafe"
)

// Buffer owns the growing raw log of a stream and splits completed modules off
// its front. Every module is returned exactly once, in text order, and the
// contents of all returned modules concatenate to the raw log.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	raw      []byte
	cursor   int
	nextID   int
	finished bool
	pending  Module
	open     bool
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{nextID: 1}
}

// Append adds chunk to the raw log and returns the modules it completed.
// Appending an empty chunk or appending after Finish returns nil.
func (b *Buffer) Append(chunk string) []Module {
	if b.finished || chunk == "" {
		return nil
	}
	b.raw = append(b.raw, chunk...)
	return b.drain(false)
}

// Finish classifies the remaining tail as if no more input will arrive and
// returns every module it contains. Unterminated fences stay FencedCode with
// Forced set, unterminated math becomes Raw and a table header without its
// separator row degrades to a Paragraph.
func (b *Buffer) Finish() []Module {
	if b.finished {
		return nil
	}
	b.finished = true
	return b.drain(true)
}

func (b *Buffer) drain(final bool) []Module {
	var out []Module
	for b.cursor < len(b.raw) {
		scope := Scope{
			LineStart:     b.cursor == 0 || b.raw[b.cursor-1] == '\n',
			DocumentStart: b.cursor == 0,
			Final:         final,
		}
		var resume resumePoint
		if b.open {
			resume = resumePoint{kind: b.pending.Kind, off: b.pending.resume}
		}
		m, ok := classifyFrom(bytesToString(b.raw[b.cursor:]), scope, resume)
		if !ok {
			break
		}
		if m.Completeness == Open {
			b.pending = m
			b.pending.Content = ""
			b.open = true
			return out
		}
		m.Content = strings.Clone(m.Content)
		m.ID = b.nextID
		b.nextID++
		b.cursor += len(m.Content)
		b.open = false
		b.pending = Module{}
		out = append(out, m)
	}
	b.open = false
	return out
}

// Pending returns the classifier's current guess for the open tail. The
// returned module is Open and its Content is the whole pending tail.
func (b *Buffer) Pending() (Module, bool) {
	if !b.open {
		return Module{}, false
	}
	m := b.pending
	m.Content = b.PendingTail()
	m.resume = 0
	return m, true
}

// PendingTail returns the unemitted text after the cursor.
func (b *Buffer) PendingTail() string {
	return string(b.raw[b.cursor:])
}

// Cursor returns the raw log offset up to which modules have been emitted.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Len returns the length of the raw log in bytes.
func (b *Buffer) Len() int {
	return len(b.raw)
}

// Raw returns a copy of the raw log.
func (b *Buffer) Raw() string {
	return string(b.raw)
}

// Finished reports whether Finish has been called.
func (b *Buffer) Finished() bool {
	return b.finished
}

func bytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
