// Package diagram finds and classifies diagram blocks embedded in documents.
//
// # Overview
//
// A diagram block is a fenced code region whose info string names a diagram
// language (by default "mermaid"):
//
//	## Architecture
//
//	```mermaid
//	graph TD
//	    A[Client] --> B[Server]
//	```
//
// [Extract] scans a document and returns every such block in document order.
// Each [Block] carries the trimmed diagram source, a [Kind] inferred from the
// first non-blank source line, a title taken from the nearest preceding
// heading, and its zero-based ordinal.
//
// # Guarantees
//
// Extraction is deterministic and total: empty input, documents without
// diagrams, unterminated fences and missing headings all produce ordinary
// data (an empty slice or a default "Diagram N" title), never an error.
//
// Ordinals are positions, not identifiers. They are only stable until the
// document is scanned again.
package diagram
