package mdstream

import (
	"regexp"
	"strings"
)

// Scope describes where a tail sits within the raw log.
type Scope struct {
	// LineStart is set when the tail begins at the start of a line.
	LineStart bool
	// DocumentStart is set when the tail begins at offset 0 of the raw log.
	DocumentStart bool
	// Final is set once no more input can arrive.
	Final bool
}

type verdict int8

const (
	verdictNo verdict = iota
	verdictYes
	verdictMore
)

var tableSeparator = regexp.MustCompile(`^\s*\|?(\s*:?-+:?\s*\|)+\s*:?-+:?\s*\|?\s*$`)

// Classify finds the earliest module at the start of tail and reports whether
// its closing boundary has been observed. It returns false only for an empty
// tail.
//
// A Complete verdict depends only on bytes already present in tail, so the
// same module is reported for every longer tail sharing the prefix. Open
// results carry the best guess of the pending kind and the whole tail as
// Content.
func Classify(tail string, scope Scope) (Module, bool) {
	return classifyFrom(tail, scope, resumePoint{})
}

// resumePoint records where a previous call on the same tail start stopped
// scanning an open module of kind. Every line before off has already been
// read to its end without deciding the module.
type resumePoint struct {
	kind Kind
	off  int
}

// classifyFrom is Classify continuing the scan of an open module from resume.
func classifyFrom(tail string, scope Scope, resume resumePoint) (Module, bool) {
	if tail == "" {
		return Module{}, false
	}
	c := classifier{src: tail, final: scope.Final, lineStart: scope.LineStart || scope.DocumentStart, resume: resume}
	if scope.DocumentStart {
		if m, v := c.frontMatter(); v != verdictNo {
			return m, true
		}
	}
	if scope.LineStart || scope.DocumentStart {
		if m, v := c.lineStartBlock(); v != verdictNo {
			return m, true
		}
		m, _ := c.paragraph()
		return m, true
	}
	if m, v := c.fence(true); v != verdictNo {
		return m, true
	}
	if m, v := c.latex(); v != verdictNo {
		return m, true
	}
	m, _ := c.paragraph()
	return m, true
}

type classifier struct {
	src       string
	final     bool
	lineStart bool
	resume    resumePoint
}

func (c *classifier) done(kind Kind, end int) Module {
	return Module{Kind: kind, Content: c.src[:end], Completeness: Complete}
}

func (c *classifier) pending(kind Kind) Module {
	return Module{Kind: kind, Content: c.src, Completeness: Open}
}

// pendingAt is pending with the offset the next call may continue from.
func (c *classifier) pendingAt(kind Kind, resume int) Module {
	m := c.pending(kind)
	m.resume = resume
	return m
}

// resumeFrom returns the recorded resume offset when the previous call left
// an open module of kind, otherwise from.
func (c *classifier) resumeFrom(kind Kind, from int) int {
	if c.resume.kind == kind && c.resume.off > from {
		return c.resume.off
	}
	return from
}

// eof reports the verdict for a decision that ran out of input.
func (c *classifier) eof() verdict {
	if c.final {
		return verdictNo
	}
	return verdictMore
}

// lineEnd returns the index of the newline ending the line that contains i and
// the start of the next line. Without a newline it succeeds only when final.
func (c *classifier) lineEnd(i int) (end, next int, ok bool) {
	if j := strings.IndexByte(c.src[i:], '\n'); j >= 0 {
		return i + j, i + j + 1, true
	}
	if c.final {
		return len(c.src), len(c.src), true
	}
	return 0, 0, false
}

func (c *classifier) lineStartBlock() (Module, verdict) {
	checks := [...]func() (Module, verdict){
		c.separator,
		func() (Module, verdict) { return c.fence(false) },
		c.latex,
		c.heading,
		c.table,
		c.footnote,
		c.thematicBreak,
	}
	for _, check := range checks {
		if m, v := check(); v != verdictNo {
			return m, v
		}
	}
	return Module{}, verdictNo
}

func isBlankByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}

// blankLine reports whether the line starting at i holds only whitespace and
// returns the start of the following line.
func (c *classifier) blankLine(i int) (verdict, int) {
	for k := i; k < len(c.src); k++ {
		switch {
		case c.src[k] == '\n':
			return verdictYes, k + 1
		case !isBlankByte(c.src[k]):
			return verdictNo, 0
		}
	}
	if !c.final {
		return verdictMore, 0
	}
	if i == len(c.src) {
		return verdictNo, 0
	}
	return verdictYes, len(c.src)
}

func (c *classifier) separator() (Module, verdict) {
	v, next := c.blankLine(0)
	if v != verdictYes {
		return c.pending(KindRaw), v
	}
	next = c.resumeFrom(KindRaw, next)
	for {
		if next == len(c.src) {
			if c.final {
				return c.done(KindRaw, next), verdictYes
			}
			return c.pendingAt(KindRaw, next), verdictMore
		}
		v, n := c.blankLine(next)
		switch v {
		case verdictNo:
			return c.done(KindRaw, next), verdictYes
		case verdictMore:
			return c.pendingAt(KindRaw, next), verdictMore
		}
		next = n
	}
}

type fenceOpener struct {
	marker string
	info   string
	body   int
}

// openFence matches a fence opener at i. Mid-line openers must be backticks
// without indentation.
func (c *classifier) openFence(i int, midLine bool) (fenceOpener, verdict) {
	k := i
	if !midLine {
		for k < len(c.src) && c.src[k] == ' ' && k-i < 4 {
			k++
		}
		if k-i > 3 {
			return fenceOpener{}, verdictNo
		}
	}
	if k == len(c.src) {
		return fenceOpener{}, c.eof()
	}
	ch := c.src[k]
	if ch != '`' && (ch != '~' || midLine) {
		return fenceOpener{}, verdictNo
	}
	start := k
	for k < len(c.src) && c.src[k] == ch {
		k++
	}
	if k == len(c.src) && !c.final {
		return fenceOpener{}, verdictMore
	}
	if k-start < 3 {
		return fenceOpener{}, verdictNo
	}
	end, next, ok := c.lineEnd(k)
	if !ok {
		return fenceOpener{}, verdictMore
	}
	info := strings.TrimSpace(c.src[k:end])
	if ch == '`' && strings.IndexByte(info, '`') >= 0 {
		return fenceOpener{}, verdictNo
	}
	return fenceOpener{marker: c.src[start:k], info: info, body: next}, verdictYes
}

// closeFence searches line starts from i for a run of the opening character
// at least as long as the opener. While open it returns the start of the
// first line that could still become the closer.
func (c *classifier) closeFence(f fenceOpener, i int) (verdict, int) {
	ch := f.marker[0]
	for {
		if i >= len(c.src) {
			return c.eof(), i
		}
		k := i
		for k < len(c.src) && c.src[k] == ' ' && k-i < 3 {
			k++
		}
		s := k
		for k < len(c.src) && c.src[k] == ch {
			k++
		}
		if k == len(c.src) {
			if !c.final {
				return verdictMore, i
			}
			if k-s >= len(f.marker) {
				return verdictYes, k
			}
			return verdictNo, i
		}
		if k-s >= len(f.marker) && (c.src[k] == '\n' || isBlankByte(c.src[k])) {
			v, end := c.closeEnd(k)
			if v == verdictMore {
				return verdictMore, i
			}
			return verdictYes, end
		}
		nl := strings.IndexByte(c.src[k:], '\n')
		if nl < 0 {
			return c.eof(), i
		}
		i = k + nl + 1
	}
}

// closeEnd extends a closing delimiter that ends at k over trailing blanks and
// the newline when nothing else follows on the line. Text after the blanks
// starts the next module.
func (c *classifier) closeEnd(k int) (verdict, int) {
	j := k
	for j < len(c.src) && isBlankByte(c.src[j]) {
		j++
	}
	if j == len(c.src) {
		if c.final {
			return verdictYes, j
		}
		return verdictMore, 0
	}
	if c.src[j] == '\n' {
		return verdictYes, j + 1
	}
	return verdictYes, k
}

func (c *classifier) fence(midLine bool) (Module, verdict) {
	f, v := c.openFence(0, midLine)
	if v != verdictYes {
		return c.pending(KindFencedCode), v
	}
	cv, end := c.closeFence(f, c.resumeFrom(KindFencedCode, f.body))
	var m Module
	switch cv {
	case verdictYes:
		m = c.done(KindFencedCode, end)
	case verdictMore:
		m = c.pendingAt(KindFencedCode, end)
	default:
		m = c.done(KindFencedCode, len(c.src))
		m.Forced = true
	}
	m.Fence = f.marker
	if fields := strings.Fields(f.info); len(fields) > 0 {
		m.Language = fields[0]
	}
	return m, verdictYes
}

func escaped(s string, k int) bool {
	n := 0
	for j := k - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func (c *classifier) latex() (Module, verdict) {
	if !strings.HasPrefix(c.src, "$$") {
		if c.src == "$" {
			return c.pending(KindLatexBlock), c.eof()
		}
		return Module{}, verdictNo
	}
	k := c.resumeFrom(KindLatexBlock, 2)
	for k < len(c.src) {
		j := strings.IndexByte(c.src[k:], '$')
		if j < 0 {
			k = len(c.src)
			break
		}
		k += j
		if k+1 == len(c.src) {
			break
		}
		if c.src[k+1] == '$' && !escaped(c.src, k) {
			v, end := c.closeEnd(k + 2)
			if v == verdictMore {
				m := c.pendingAt(KindLatexBlock, k)
				m.Fence = "$$"
				return m, verdictYes
			}
			m := c.done(KindLatexBlock, end)
			m.Fence = "$$"
			return m, verdictYes
		}
		k++
	}
	if c.final {
		m := c.done(KindRaw, len(c.src))
		m.Fence = "$$"
		m.Forced = true
		return m, verdictYes
	}
	m := c.pendingAt(KindLatexBlock, max(len(c.src)-1, 2))
	m.Fence = "$$"
	return m, verdictYes
}

func isSeparatorByte(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '|', ':', '-':
		return true
	}
	return false
}

// tableStart matches a header line with a pipe followed by a separator row at
// i and returns the start of the table body.
func (c *classifier) tableStart(i int) (verdict, int, Kind) {
	end, next, ok := c.lineEnd(i)
	if !ok {
		return verdictMore, 0, KindParagraph
	}
	if strings.IndexByte(c.src[i:end], '|') < 0 || next == len(c.src) && end == len(c.src) {
		return verdictNo, 0, KindParagraph
	}
	k := next
	for k < len(c.src) && c.src[k] != '\n' {
		if !isSeparatorByte(c.src[k]) {
			return verdictNo, 0, KindParagraph
		}
		k++
	}
	if k == len(c.src) && !c.final {
		return verdictMore, 0, KindTable
	}
	if !tableSeparator.MatchString(c.src[next:k]) {
		return verdictNo, 0, KindParagraph
	}
	if k < len(c.src) {
		k++
	}
	return verdictYes, k, KindTable
}

func (c *classifier) table() (Module, verdict) {
	i := c.resumeFrom(KindTable, 0)
	if i == 0 {
		v, body, guess := c.tableStart(0)
		if v != verdictYes {
			return c.pending(guess), v
		}
		i = body
	}
	for {
		if i == len(c.src) {
			if c.final {
				return c.done(KindTable, i), verdictYes
			}
			return c.pendingAt(KindTable, i), verdictMore
		}
		switch hv, _ := c.headingPrefix(i); hv {
		case verdictYes:
			return c.done(KindTable, i), verdictYes
		case verdictMore:
			return c.pendingAt(KindTable, i), verdictMore
		}
		end, next, ok := c.lineEnd(i)
		if !ok {
			return c.pendingAt(KindTable, i), verdictMore
		}
		line := c.src[i:end]
		if strings.TrimSpace(line) == "" {
			return c.done(KindTable, next), verdictYes
		}
		if strings.IndexByte(line, '|') < 0 {
			return c.done(KindTable, i), verdictYes
		}
		i = next
	}
}

// headingPrefix matches 1-6 '#' followed by a space or tab at i.
func (c *classifier) headingPrefix(i int) (verdict, int) {
	k := i
	for k < len(c.src) && c.src[k] == '#' && k-i < 7 {
		k++
	}
	n := k - i
	if n == 0 || n > 6 {
		return verdictNo, 0
	}
	if k == len(c.src) {
		return c.eof(), 0
	}
	if c.src[k] == ' ' || c.src[k] == '\t' {
		return verdictYes, n
	}
	return verdictNo, 0
}

func (c *classifier) heading() (Module, verdict) {
	v, level := c.headingPrefix(0)
	if v != verdictYes {
		return c.pending(KindHeading), v
	}
	var m Module
	if _, next, ok := c.lineEnd(0); ok {
		m = c.done(KindHeading, next)
	} else {
		m = c.pending(KindHeading)
	}
	m.Level = level
	return m, verdictYes
}

// footnotePrefix matches "[^label]:" at i.
func (c *classifier) footnotePrefix(i int) (verdict, string) {
	k := i
	for _, want := range [...]byte{'[', '^'} {
		if k == len(c.src) {
			return c.eof(), ""
		}
		if c.src[k] != want {
			return verdictNo, ""
		}
		k++
	}
	start := k
	for k < len(c.src) && c.src[k] != ']' && c.src[k] != '\n' && !isBlankByte(c.src[k]) {
		k++
	}
	if k == len(c.src) {
		return c.eof(), ""
	}
	if c.src[k] != ']' || k == start {
		return verdictNo, ""
	}
	label := c.src[start:k]
	k++
	if k == len(c.src) {
		return c.eof(), ""
	}
	if c.src[k] != ':' {
		return verdictNo, ""
	}
	return verdictYes, label
}

func (c *classifier) footnote() (Module, verdict) {
	v, label := c.footnotePrefix(0)
	if v != verdictYes {
		return c.pending(KindFootnoteDef), v
	}
	m := c.footnoteBody()
	m.Label = label
	return m, verdictYes
}

func (c *classifier) footnoteBody() Module {
	i := c.resumeFrom(KindFootnoteDef, 0)
	if i == 0 {
		_, next, ok := c.lineEnd(0)
		if !ok {
			return c.pending(KindFootnoteDef)
		}
		i = next
	}
	for {
		if i == len(c.src) {
			if c.final {
				return c.done(KindFootnoteDef, i)
			}
			return c.pendingAt(KindFootnoteDef, i)
		}
		v, n := c.blankLine(i)
		switch v {
		case verdictYes:
			return c.done(KindFootnoteDef, n)
		case verdictMore:
			return c.pendingAt(KindFootnoteDef, i)
		}
		_, next, ok := c.lineEnd(i)
		if !ok {
			return c.pendingAt(KindFootnoteDef, i)
		}
		i = next
	}
}

// thematicBreakLine matches a line of three or more '-', '*' or '_' at i and
// returns the start of the following line.
func (c *classifier) thematicBreakLine(i int) (verdict, int) {
	k := i
	for k < len(c.src) && c.src[k] == ' ' && k-i < 4 {
		k++
	}
	if k-i > 3 {
		return verdictNo, 0
	}
	if k == len(c.src) {
		return c.eof(), 0
	}
	ch := c.src[k]
	if ch != '-' && ch != '*' && ch != '_' {
		return verdictNo, 0
	}
	count := 0
	for ; k < len(c.src); k++ {
		switch b := c.src[k]; {
		case b == ch:
			count++
		case b == '\n':
			if count >= 3 {
				return verdictYes, k + 1
			}
			return verdictNo, 0
		case !isBlankByte(b):
			return verdictNo, 0
		}
	}
	if !c.final {
		return verdictMore, 0
	}
	if count >= 3 {
		return verdictYes, len(c.src)
	}
	return verdictNo, 0
}

func (c *classifier) thematicBreak() (Module, verdict) {
	v, end := c.thematicBreakLine(0)
	switch v {
	case verdictYes:
		return c.done(KindThematicBreak, end), verdictYes
	case verdictMore:
		return c.pending(KindThematicBreak), verdictMore
	}
	return Module{}, verdictNo
}

// interrupts reports whether the line starting at i ends the paragraph before
// it. The returned offset is where the paragraph ends.
func (c *classifier) interrupts(i int) (verdict, int) {
	if v, next := c.blankLine(i); v != verdictNo {
		return v, next
	}
	if v, _ := c.headingPrefix(i); v != verdictNo {
		return v, i
	}
	if _, v := c.openFence(i, false); v != verdictNo {
		return v, i
	}
	if v, _ := c.thematicBreakLine(i); v != verdictNo {
		return v, i
	}
	if v, _ := c.footnotePrefix(i); v != verdictNo {
		return v, i
	}
	if v, _, _ := c.tableStart(i); v != verdictNo {
		return v, i
	}
	return verdictNo, 0
}

// codeSpanEnd finds a run of exactly n backticks after from on the same line
// and returns the offset after it. Without one the opening run is literal.
func (c *classifier) codeSpanEnd(from, n int) (verdict, int) {
	k := from
	for k < len(c.src) && c.src[k] != '\n' {
		if c.src[k] != '`' {
			k++
			continue
		}
		s := k
		for k < len(c.src) && c.src[k] == '`' {
			k++
		}
		if k == len(c.src) && !c.final {
			return verdictMore, 0
		}
		if k-s == n {
			return verdictYes, k
		}
	}
	if k == len(c.src) {
		return c.eof(), 0
	}
	return verdictNo, 0
}

// indentOnly reports whether s is preceded only by blanks on a line that
// starts at i.
func (c *classifier) indentOnly(i, s int) bool {
	if i == 0 && !c.lineStart {
		return false
	}
	return strings.TrimLeft(c.src[i:s], " \t") == ""
}

// paragraph accumulates running text until a blank line, a line that starts
// another structure, or a mid-line fence or $$ opener.
func (c *classifier) paragraph() (Module, verdict) {
	i := c.resumeFrom(KindParagraph, 0)
	for {
		if i > 0 {
			if i == len(c.src) {
				if c.final {
					return c.done(KindParagraph, i), verdictYes
				}
				return c.pendingAt(KindParagraph, i), verdictMore
			}
			switch v, end := c.interrupts(i); v {
			case verdictYes:
				return c.done(KindParagraph, end), verdictYes
			case verdictMore:
				return c.pendingAt(KindParagraph, i), verdictMore
			}
		}
		k := i
		for k < len(c.src) && c.src[k] != '\n' {
			switch c.src[k] {
			case '`':
				s := k
				for k < len(c.src) && c.src[k] == '`' {
					k++
				}
				if k == len(c.src) && !c.final {
					return c.pendingAt(KindParagraph, i), verdictMore
				}
				if k-s >= 3 && s > 0 && !c.indentOnly(i, s) {
					switch _, v := c.openFence(s, true); v {
					case verdictYes:
						return c.done(KindParagraph, s), verdictYes
					case verdictMore:
						return c.pendingAt(KindParagraph, i), verdictMore
					}
				}
				switch v, end := c.codeSpanEnd(k, k-s); v {
				case verdictYes:
					k = end
				case verdictMore:
					return c.pendingAt(KindParagraph, i), verdictMore
				}
			case '$':
				if k+1 == len(c.src) {
					if !c.final {
						return c.pendingAt(KindParagraph, i), verdictMore
					}
				} else if c.src[k+1] == '$' && k > 0 && !escaped(c.src, k) {
					return c.done(KindParagraph, k), verdictYes
				}
				k++
			default:
				k++
			}
		}
		if k == len(c.src) {
			if c.final {
				return c.done(KindParagraph, k), verdictYes
			}
			return c.pendingAt(KindParagraph, i), verdictMore
		}
		i = k + 1
	}
}
