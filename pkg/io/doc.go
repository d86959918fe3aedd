// Package io loads and saves editor buffers and names exported files.
//
// File content is opaque text: it is handed to the editor unchanged and
// written back unchanged. The only thing this package decides is whether a
// file is a Markdown document (Embedded mode) or a single diagram source
// (Standalone mode), by extension:
//
//	text, isDoc, err := io.LoadFile("README.md")   // isDoc == true
//	ed.LoadFile(text, isDoc)
//
// Save and export names follow the loaded file's display name:
//
//	io.SaveName("", editor.Embedded)      // "README.md"
//	io.ExportName("flow.mmd", raster.PNG) // "flow.png"
package io
