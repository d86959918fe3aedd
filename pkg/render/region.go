package render

import (
	"html"
	"strings"
)

// region is an unrendered diagram code block inside converted HTML.
// [start, end) covers the <code> element, widened to its enclosing <pre>
// when the block is the pre's only child.
type region struct {
	start, end int
	source     string
}

// findRegions locates every <code class="language-lang"> element in doc.
// The class attribute may carry further classes after the language one.
func findRegions(doc, lang string) []region {
	marker := `class="language-` + lang
	var regions []region
	for pos := 0; pos < len(doc); {
		i := strings.Index(doc[pos:], "<code")
		if i < 0 {
			break
		}
		open := pos + i
		tagEnd := strings.IndexByte(doc[open:], '>')
		if tagEnd < 0 {
			break
		}
		tagEnd += open + 1
		tag := doc[open:tagEnd]
		if !hasClass(tag, marker) {
			pos = tagEnd
			continue
		}
		closeIdx := strings.Index(doc[tagEnd:], "</code>")
		if closeIdx < 0 {
			break
		}
		bodyEnd := tagEnd + closeIdx
		end := bodyEnd + len("</code>")

		r := region{
			start:  open,
			end:    end,
			source: strings.TrimSpace(html.UnescapeString(doc[tagEnd:bodyEnd])),
		}
		if strings.HasSuffix(doc[:open], "<pre>") && strings.HasPrefix(doc[end:], "</pre>") {
			r.start -= len("<pre>")
			r.end += len("</pre>")
		}
		regions = append(regions, r)
		pos = r.end
	}
	return regions
}

// hasClass reports whether the opening tag carries the language class as a
// whole class token. The language tag is matched without regard to case,
// as diagram.ExtractLanguage matches fences.
func hasClass(tag, marker string) bool {
	for i := 0; i+len(marker) <= len(tag); i++ {
		if !strings.EqualFold(tag[i:i+len(marker)], marker) {
			continue
		}
		rest := tag[i+len(marker):]
		if strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, " ") {
			return true
		}
	}
	return false
}

// replaceRegions substitutes each region of doc with the matching entry of
// parts. len(parts) must equal len(regions).
func replaceRegions(doc string, regions []region, parts []string) string {
	var b strings.Builder
	b.Grow(len(doc))
	last := 0
	for i, r := range regions {
		b.WriteString(doc[last:r.start])
		b.WriteString(parts[i])
		last = r.end
	}
	b.WriteString(doc[last:])
	return b.String()
}

func diagramContainer(svg []byte) string {
	return `<div class="mermaid-diagram-container">` + string(svg) + `</div>`
}

func errorMarker(msg string) string {
	return `<div class="mermaid-error">Mermaid Error: ` + html.EscapeString(msg) + `</div>`
}
