package mdstream

import "strings"

// Kind identifies the structural class of a module.
type Kind uint8

const (
	// KindParagraph is running text terminated by a blank line or a structural opener.
	KindParagraph Kind = iota
	// KindHeading is an ATX heading line.
	KindHeading
	// KindFencedCode is a backtick or tilde fenced code block.
	KindFencedCode
	// KindTable is a pipe table with a separator row.
	KindTable
	// KindLatexBlock is a $$ delimited display math block.
	KindLatexBlock
	// KindFootnoteDef is a [^label]: footnote definition.
	KindFootnoteDef
	// KindThematicBreak is a line of ---, *** or ___.
	KindThematicBreak
	// KindFrontMatter is a metadata block at the very start of a document.
	KindFrontMatter
	// KindRaw covers blank separators and unterminated blocks that cannot be rendered structurally.
	KindRaw
)

var kindNames = [...]string{
	KindParagraph:     "paragraph",
	KindHeading:       "heading",
	KindFencedCode:    "fenced_code",
	KindTable:         "table",
	KindLatexBlock:    "latex_block",
	KindFootnoteDef:   "footnote_def",
	KindThematicBreak: "thematic_break",
	KindFrontMatter:   "front_matter",
	KindRaw:           "raw",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Completeness reports whether a module's closing delimiter has been observed.
type Completeness uint8

const (
	// Open modules may still grow and are never emitted.
	Open Completeness = iota
	// Complete modules are immutable.
	Complete
)

func (c Completeness) String() string {
	if c == Complete {
		return "complete"
	}
	return "open"
}

// Module is a contiguous span of the raw log classified by structure.
//
// Content is the exact source text of the span, including fence markers and
// whitespace, so hosts can hand it to a full markdown engine.
type Module struct {
	ID           int
	Kind         Kind
	Level        int    // heading level (1-6)
	Language     string // first word of a fenced code info string
	Fence        string // opening fence or front matter delimiter
	Label        string // footnote label
	Content      string
	Completeness Completeness
	// Forced is set when Finish closed the module without its closing delimiter.
	Forced bool

	resume int
}

// Len returns the byte length of the module content.
func (m Module) Len() int {
	return len(m.Content)
}

// Renderable returns Content with a synthesized closing fence when the module
// is an unterminated fenced code block, so downstream renderers still apply
// code styling. For every other module it returns Content unchanged.
func (m Module) Renderable() string {
	if !m.Forced || m.Kind != KindFencedCode || m.Fence == "" {
		return m.Content
	}
	var b strings.Builder
	b.Grow(len(m.Content) + len(m.Fence) + 2)
	b.WriteString(m.Content)
	if !strings.HasSuffix(m.Content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(m.Fence)
	b.WriteByte('\n')
	return b.String()
}
