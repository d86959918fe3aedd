// Package editor implements the two-mode authoring state machine.
//
// # Modes
//
// In [Standalone] mode the buffer is a single diagram source. In [Embedded]
// mode the buffer is a markdown document containing any number of diagram
// blocks. Both buffers live in one [State] so switching modes never loses
// text.
//
// # Invariants
//
//   - State.Diagrams is always diagram.Extract(State.DocumentSource). It is
//     recomputed whenever the document changes and never edited directly.
//   - State.SelectedIndex is -1 only when Diagrams is empty, and otherwise a
//     valid index into Diagrams.
//   - The view transform is reset whenever the displayed diagram changes
//     identity: on selection, mode switches and file loads.
//
// # Transitions
//
// Every transition is total. Edits in the wrong mode and out-of-range
// selections are no-ops reported through a false return value; documents
// without diagrams are represented as data, never as errors.
//
// # Observation
//
// The [Editor] owns the state and serializes transitions. Observers call
// [Editor.Subscribe] and receive a [Snapshot] after every change; they
// never mutate the state directly.
package editor
