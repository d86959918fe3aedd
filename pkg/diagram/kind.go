package diagram

import "strings"

// Kind is the diagram type inferred from the first line of a block.
type Kind string

// Supported diagram kinds. Anything not recognized is [KindUnknown].
const (
	KindFlowchart          Kind = "Flowchart"
	KindSequence           Kind = "Sequence"
	KindClass              Kind = "Class"
	KindState              Kind = "State"
	KindEntityRelationship Kind = "ER"
	KindJourney            Kind = "Journey"
	KindGantt              Kind = "Gantt"
	KindUnknown            Kind = "Unknown"
)

// String returns the display name of the kind.
func (k Kind) String() string {
	if k == "" {
		return string(KindUnknown)
	}
	return string(k)
}

// kindKeywords is checked in order and the first substring match wins.
// The diagram-specific start keywords come before the generic "graph"
// keyword, which would otherwise shadow them.
var kindKeywords = []struct {
	keyword string
	kind    Kind
}{
	{"sequenceDiagram", KindSequence},
	{"classDiagram", KindClass},
	{"stateDiagram", KindState},
	{"erDiagram", KindEntityRelationship},
	{"journey", KindJourney},
	{"gantt", KindGantt},
	{"flowchart", KindFlowchart},
	{"graph", KindFlowchart},
}

// Classify infers the kind of a diagram from its source text.
// Only the first non-blank line is inspected.
func Classify(source string) Kind {
	first := firstNonBlankLine(source)
	for _, kw := range kindKeywords {
		if strings.Contains(first, kw.keyword) {
			return kw.kind
		}
	}
	return KindUnknown
}

func firstNonBlankLine(s string) string {
	for line := range strings.Lines(s) {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
