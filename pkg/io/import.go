package io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/mermaidlive/pkg/errors"
)

// MaxFileSize bounds loaded files. Editors hold the whole buffer in memory.
const MaxFileSize = 8 << 20

// documentExts are the extensions that load in Embedded mode.
var documentExts = []string{".md", ".markdown"}

// IsDocumentFile reports whether name is a Markdown document.
func IsDocumentFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range documentExts {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile reads path and reports whether it is a Markdown document.
func LoadFile(path string) (text string, isDocument bool, err error) {
	if err := errors.ValidatePath(path); err != nil {
		return "", false, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", false, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	text, err = Read(f)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return text, IsDocumentFile(path), nil
}

// Read reads at most MaxFileSize bytes from r.
func Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxFileSize {
		return "", errors.New(errors.ErrCodeInvalidInput, "file exceeds %d bytes", MaxFileSize)
	}
	return string(data), nil
}
