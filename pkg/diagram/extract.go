package diagram

import (
	"fmt"
	"strings"
)

// DefaultLanguage is the fence info string that marks a diagram block.
const DefaultLanguage = "mermaid"

// Block is one diagram found in a document.
type Block struct {
	Title   string `json:"title"`
	Kind    Kind   `json:"kind"`
	Source  string `json:"source"`
	Ordinal int    `json:"ordinal"`
	Line    int    `json:"line"`   // 1-based line of the opening fence
	Offset  int    `json:"offset"` // byte offset of the opening fence
}

// Label returns the picker label, e.g. "Architecture (Flowchart)".
func (b Block) Label() string {
	return fmt.Sprintf("%s (%s)", b.Title, b.Kind)
}

// DefaultTitle is the title used for a block with no preceding heading.
func DefaultTitle(ordinal int) string {
	return fmt.Sprintf("Diagram %d", ordinal+1)
}

// Extract returns all mermaid blocks in text, in document order.
func Extract(text string) []Block {
	return ExtractLanguage(text, DefaultLanguage)
}

// ExtractLanguage returns all blocks fenced with the given language tag.
// The tag is compared case-insensitively against the first word of the
// fence info string. Fences that are never closed do not produce blocks.
func ExtractLanguage(text, lang string) []Block {
	var (
		blocks  []Block
		heading string
		open    *fence
		body    []string
		offset  int
		lineNo  int
	)

	for raw := range strings.Lines(text) {
		lineNo++
		start := offset
		offset += len(raw)
		line := strings.TrimRight(raw, "\r\n")

		if open != nil {
			if !open.closedBy(line) {
				if open.diagram {
					body = append(body, line)
				}
				continue
			}
			if open.diagram {
				ordinal := len(blocks)
				source := trimBlankLines(body)
				title := heading
				if title == "" {
					title = DefaultTitle(ordinal)
				}
				blocks = append(blocks, Block{
					Title:   title,
					Kind:    Classify(source),
					Source:  source,
					Ordinal: ordinal,
					Line:    open.line,
					Offset:  open.offset,
				})
			}
			open, body = nil, nil
			continue
		}

		if f, ok := parseFence(line); ok {
			f.diagram = strings.EqualFold(f.lang, lang)
			f.line, f.offset = lineNo, start
			open = &f
			continue
		}
		if h, ok := parseHeading(line); ok {
			heading = h
		}
	}
	return blocks
}

// fence is an open fenced code region.
type fence struct {
	char    byte
	width   int
	lang    string
	diagram bool
	line    int
	offset  int
}

// parseFence recognizes an opening fence: up to three spaces of indentation,
// then at least three backticks or tildes, then an optional info string.
func parseFence(line string) (fence, bool) {
	s, ok := stripIndent(line)
	if !ok || len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return fence{}, false
	}
	c := s[0]
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	if n < 3 {
		return fence{}, false
	}
	info := strings.TrimSpace(s[n:])
	if c == '`' && strings.Contains(info, "`") {
		return fence{}, false
	}
	var lang string
	if fields := strings.Fields(info); len(fields) > 0 {
		lang = fields[0]
	}
	return fence{char: c, width: n, lang: lang}, true
}

// closedBy reports whether line closes f: only fence characters of the
// same kind, at least as many as the opener.
func (f *fence) closedBy(line string) bool {
	s, ok := stripIndent(line)
	if !ok {
		return false
	}
	s = strings.TrimRight(s, " \t")
	if len(s) < f.width {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != f.char {
			return false
		}
	}
	return true
}

// parseHeading recognizes an ATX heading ("# Title" through "###### Title")
// and returns its text without markers. Headings with no text are ignored.
func parseHeading(line string) (string, bool) {
	s, ok := stripIndent(line)
	if !ok {
		return "", false
	}
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n == len(s) {
		return "", false
	}
	if s[n] != ' ' && s[n] != '\t' {
		return "", false
	}
	text := strings.TrimSpace(s[n:])
	// Optional closing sequence: "## Title ##".
	if trimmed := strings.TrimRight(text, "#"); trimmed != text {
		if trimmed == "" || strings.HasSuffix(trimmed, " ") || strings.HasSuffix(trimmed, "\t") {
			text = strings.TrimSpace(trimmed)
		}
	}
	if text == "" {
		return "", false
	}
	return text, true
}

// stripIndent removes up to three leading spaces. Four or more means an
// indented code line, which is neither a fence nor a heading.
func stripIndent(line string) (string, bool) {
	i := 0
	for i < len(line) && i < 4 && line[i] == ' ' {
		i++
	}
	if i == 4 {
		return "", false
	}
	return line[i:], true
}

func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
