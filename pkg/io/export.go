package io

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/mermaidlive/pkg/editor"
	"github.com/matzehuels/mermaidlive/pkg/render/raster"
)

// Default names used when no file was loaded.
const (
	DefaultDocumentName = "README.md"
	DefaultDiagramName  = "diagram.mmd"
	DefaultExportBase   = "diagram"
)

// SaveContent returns the buffer that Save writes in the current mode.
func SaveContent(s editor.State) string {
	return s.Buffer()
}

// SaveName returns the file name for saving. A display name wins;
// otherwise the default for the mode is used.
func SaveName(displayName string, mode editor.Mode) string {
	if displayName != "" {
		return filepath.Base(displayName)
	}
	if mode == editor.Embedded {
		return DefaultDocumentName
	}
	return DefaultDiagramName
}

// ExportName returns the file name for an export: the display name without
// its extension, or "diagram", plus the format's extension.
func ExportName(displayName string, f raster.Format) string {
	base := DefaultExportBase
	if displayName != "" {
		name := filepath.Base(displayName)
		if stem := strings.TrimSuffix(name, filepath.Ext(name)); stem != "" {
			base = stem
		}
	}
	return base + f.Ext()
}

// WriteFile writes data to path through a temporary file in the same
// directory, so readers never see a partial file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
