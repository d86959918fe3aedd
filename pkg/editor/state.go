package editor

import (
	"fmt"

	"github.com/matzehuels/mermaidlive/pkg/diagram"
	"github.com/matzehuels/mermaidlive/pkg/view"
)

// Mode is the active authoring mode.
type Mode int

const (
	// Standalone renders the standalone buffer as one diagram.
	Standalone Mode = iota
	// Embedded renders the whole document with its embedded diagrams.
	Embedded
)

// String returns "standalone" or "embedded".
func (m Mode) String() string {
	switch m {
	case Standalone:
		return "standalone"
	case Embedded:
		return "embedded"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "standalone":
		*m = Standalone
	case "embedded":
		*m = Embedded
	default:
		return fmt.Errorf("invalid mode: %q (must be standalone or embedded)", b)
	}
	return nil
}

// NoDiagramsMessage seeds the standalone buffer when a loaded document has
// no diagram blocks.
const NoDiagramsMessage = "%% No Mermaid diagrams found in this Markdown file"

// State is the complete authoring state.
type State struct {
	Mode             Mode            `json:"mode"`
	StandaloneSource string          `json:"standalone_source"`
	DocumentSource   string          `json:"document_source"`
	Diagrams         []diagram.Block `json:"diagrams"`
	SelectedIndex    int             `json:"selected_index"`
	DisplayName      string          `json:"display_name"`
}

// Selected returns the selected block, if the selection is valid.
func (s State) Selected() (diagram.Block, bool) {
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Diagrams) {
		return diagram.Block{}, false
	}
	return s.Diagrams[s.SelectedIndex], true
}

// Buffer returns the text of the active mode's buffer.
func (s State) Buffer() string {
	if s.Mode == Embedded {
		return s.DocumentSource
	}
	return s.StandaloneSource
}

func (s State) clone() State {
	diagrams := make([]diagram.Block, len(s.Diagrams))
	copy(diagrams, s.Diagrams)
	s.Diagrams = diagrams
	return s
}

// Snapshot is an immutable copy of the editor and view state.
type Snapshot struct {
	State State          `json:"state"`
	View  view.Transform `json:"view"`
}
