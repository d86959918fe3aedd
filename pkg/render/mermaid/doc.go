// Package mermaid provides Mermaid diagram renderers.
//
// Two backends implement the render.Renderer contract:
//
//   - [CLI] shells out to mmdc from @mermaid-js/mermaid-cli. Each call uses
//     its own temporary directory, so concurrent renders never share files.
//   - [Kroki] posts the source to a Kroki server and retries transient
//     failures with exponential backoff.
//
// Both report malformed source as an error whose message is the renderer's
// own parse error, suitable for showing next to the editor.
package mermaid
