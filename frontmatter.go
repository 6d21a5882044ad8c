package mdstream

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const maxFrontMatterProbeBytes = 64 * 1024

var frontMatterDelimiters = [...]string{"---", "+++", ";;;"}

// frontMatter matches a metadata block at document start. The block is
// abandoned at the first body line that does not look like metadata for its
// delimiter, once the closer search passes maxFrontMatterProbeBytes, or when
// the input ends without a closing delimiter.
func (c *classifier) frontMatter() (Module, verdict) {
	end, next, ok := c.lineEnd(0)
	if !ok {
		if !couldOpenFrontMatter(c.src) {
			return Module{}, verdictNo
		}
		return c.pending(KindFrontMatter), verdictMore
	}
	delim, isFrontMatter := openingFrontMatterDelimiter(c.src[:end])
	if !isFrontMatter {
		return Module{}, verdictNo
	}
	end, i, ok := c.lineEnd(next)
	if !ok {
		return c.pending(KindFrontMatter), verdictMore
	}
	if !frontMatterMetadataLikely(c.src[next:end]) || !frontMatterLineLikely(delim, c.src[next:end]) {
		return Module{}, verdictNo
	}
	i = c.resumeFrom(KindFrontMatter, i)
	for {
		if i > maxFrontMatterProbeBytes {
			return Module{}, verdictNo
		}
		if i == len(c.src) {
			if c.final {
				return Module{}, verdictNo
			}
			return c.pendingAt(KindFrontMatter, i), verdictMore
		}
		end, n, ok := c.lineEnd(i)
		if !ok {
			return c.pendingAt(KindFrontMatter, i), verdictMore
		}
		line := c.src[i:end]
		if strings.TrimSpace(line) == delim {
			m := c.done(KindFrontMatter, n)
			m.Fence = delim
			return m, verdictYes
		}
		if !frontMatterLineLikely(delim, line) {
			return Module{}, verdictNo
		}
		i = n
	}
}

var (
	yamlKeyLine = regexp.MustCompile(`^[A-Za-z0-9_."'-]+\s*:(\s|$)`)
	tomlKeyLine = regexp.MustCompile(`^[A-Za-z0-9_."'-]+\s*=`)
)

// frontMatterLineLikely reports whether a body line fits the metadata format
// selected by delim. Blank, indented and comment lines always fit; JSON
// bodies are not checked line by line.
func frontMatterLineLikely(delim, line string) bool {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return true
	}
	switch line[0] {
	case ' ', '\t', '#':
		return true
	}
	switch delim {
	case "---":
		return line[0] == '-' || yamlKeyLine.MatchString(line)
	case "+++":
		return line[0] == '[' || line[0] == ']' || tomlKeyLine.MatchString(line)
	}
	return true
}

// couldOpenFrontMatter reports whether an unterminated first line may still
// become a front matter delimiter.
func couldOpenFrontMatter(partial string) bool {
	if strings.HasPrefix("\uFEFF", partial) {
		return true
	}
	trimmed := strings.TrimSpace(trimBOM(partial))
	for _, d := range frontMatterDelimiters {
		if strings.HasPrefix(d, trimmed) {
			return true
		}
	}
	return false
}

func openingFrontMatterDelimiter(line string) (string, bool) {
	trimmed := strings.TrimSpace(trimBOM(line))
	for _, d := range frontMatterDelimiters {
		if trimmed == d {
			return d, true
		}
	}
	return "", false
}

func frontMatterMetadataLikely(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return true
	}
	return strings.ContainsAny(trimmed, ":=")
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// frontMatterBody returns the text between the opening and closing delimiter
// lines of a front matter module.
func frontMatterBody(content string) string {
	_, body, ok := strings.Cut(content, "\n")
	if !ok {
		return ""
	}
	body = strings.TrimRight(body, " \t\r\n")
	if i := strings.LastIndexByte(body, '\n'); i >= 0 {
		return body[:i+1]
	}
	return ""
}

// DecodeFrontMatter decodes the metadata carried by a KindFrontMatter module.
// The delimiter selects the format: "---" is YAML, "+++" is TOML and ";;;" is
// JSON.
func DecodeFrontMatter(m Module) (map[string]any, error) {
	if m.Kind != KindFrontMatter {
		return nil, fmt.Errorf("mdstream: decode front matter: module %d is %s: %w", m.ID, m.Kind, ErrFrontMatter)
	}
	body := frontMatterBody(m.Content)
	out := map[string]any{}
	var err error
	switch m.Fence {
	case "---":
		err = yaml.Unmarshal([]byte(body), &out)
	case "+++":
		err = toml.Unmarshal([]byte(body), &out)
	case ";;;":
		err = json.Unmarshal([]byte(body), &out)
	default:
		return nil, fmt.Errorf("mdstream: decode front matter: unknown delimiter %q: %w", m.Fence, ErrFrontMatter)
	}
	if err != nil {
		return nil, fmt.Errorf("mdstream: decode front matter: %w: %v", ErrFrontMatter, err)
	}
	return out, nil
}
