package render

import (
	"time"

	"github.com/matzehuels/mermaidlive/pkg/editor"
)

// Status tells a successful render from a failed one.
type Status int

const (
	Success Status = iota
	Failure
)

func (s Status) String() string {
	if s == Failure {
		return "failure"
	}
	return "success"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlaceholderText is shown when there is nothing to render yet.
const PlaceholderText = "Enter Mermaid code to see preview"

// PlaceholderSVG is the artifact of a render with empty standalone input.
const PlaceholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="60" viewBox="0 0 400 60">` +
	`<rect width="100%" height="100%" fill="white"/>` +
	`<text x="20" y="35" fill="#666" font-family="sans-serif" font-size="16">` + PlaceholderText + `</text>` +
	`</svg>`

// Input is an immutable snapshot of the editor buffers a render works on.
type Input struct {
	Mode       editor.Mode
	Standalone string
	Document   string
}

// InputFrom captures the render input of an editor state.
func InputFrom(s editor.State) Input {
	return Input{Mode: s.Mode, Standalone: s.StandaloneSource, Document: s.DocumentSource}
}

// Source returns the text rendered in the input's mode.
func (in Input) Source() string {
	if in.Mode == editor.Embedded {
		return in.Document
	}
	return in.Standalone
}

// Result is the outcome of one render.
//
// In Standalone mode Artifact is SVG. In Embedded mode it is the document
// HTML with every diagram block replaced. A partially failed embedded render
// is still a Success; FailedBlocks counts the inline error markers.
type Result struct {
	Token        uint64        `json:"token"`
	Mode         editor.Mode   `json:"mode"`
	Status       Status        `json:"status"`
	Artifact     string        `json:"artifact,omitempty"`
	Message      string        `json:"message,omitempty"`
	Placeholder  bool          `json:"placeholder,omitempty"`
	Blocks       int           `json:"blocks,omitempty"`
	FailedBlocks int           `json:"failed_blocks,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// OK reports whether the render succeeded.
func (r Result) OK() bool { return r.Status == Success }

// HasDiagram reports whether the result carries a real standalone diagram,
// as opposed to a placeholder, a failure, or document HTML.
func (r Result) HasDiagram() bool {
	return r.OK() && !r.Placeholder && r.Mode == editor.Standalone && r.Artifact != ""
}

func failure(mode editor.Mode, msg string) Result {
	return Result{Mode: mode, Status: Failure, Message: msg}
}
