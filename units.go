package mdstream

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Unit is the granularity of a reveal step.
type Unit uint8

const (
	// UnitCharacter reveals one grapheme cluster per unit.
	UnitCharacter Unit = iota
	// UnitWord reveals a whitespace-delimited word, with its leading whitespace, per unit.
	UnitWord
	// UnitLine reveals through the next newline per unit.
	UnitLine
)

func (u Unit) String() string {
	switch u {
	case UnitCharacter:
		return "character"
	case UnitWord:
		return "word"
	case UnitLine:
		return "line"
	}
	return "unknown"
}

// ParseUnit parses "character", "word" or "line" (or their first letter).
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "character", "char", "c":
		return UnitCharacter, nil
	case "word", "w":
		return UnitWord, nil
	case "line", "l":
		return UnitLine, nil
	}
	return 0, fmt.Errorf("mdstream: unknown reveal unit %q: %w", s, ErrInvalidConfig)
}

// advance returns the offset reached after stepping n units of u from off in
// text. The result is always a grapheme cluster boundary. When only
// whitespace would remain after the step, the result is len(text).
func advance(text string, off int, u Unit, n int) int {
	for i := 0; i < n && off < len(text); i++ {
		switch u {
		case UnitWord:
			off = nextWord(text, off)
		case UnitLine:
			off = nextLine(text, off)
		default:
			off = nextGrapheme(text, off)
		}
	}
	if off < len(text) && strings.TrimSpace(text[off:]) == "" {
		off = len(text)
	}
	return off
}

func nextGrapheme(text string, off int) int {
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(text[off:], -1)
	if cluster == "" {
		return len(text)
	}
	return off + len(cluster)
}

func isSpaceCluster(cluster string) bool {
	r, _ := utf8.DecodeRuneInString(cluster)
	return unicode.IsSpace(r)
}

// nextWord skips leading whitespace and then consumes clusters up to the next
// whitespace cluster.
func nextWord(text string, off int) int {
	state := -1
	rest := text[off:]
	inWord := false
	for rest != "" {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if isSpaceCluster(cluster) {
			if inWord {
				return off
			}
		} else {
			inWord = true
		}
		off += len(cluster)
	}
	return off
}

// nextLine consumes clusters through the next cluster containing a newline.
func nextLine(text string, off int) int {
	state := -1
	rest := text[off:]
	for rest != "" {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		off += len(cluster)
		if strings.IndexByte(cluster, '\n') >= 0 {
			return off
		}
	}
	return off
}

// splitUnits splits text into the units a task would reveal one at a time.
func splitUnits(text string, u Unit) []string {
	var out []string
	for off := 0; off < len(text); {
		next := advance(text, off, u, 1)
		out = append(out, text[off:next])
		off = next
	}
	return out
}
