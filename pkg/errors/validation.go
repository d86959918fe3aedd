package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxFileNameLength bounds display and download names.
const maxFileNameLength = 255

// ValidateFileName validates a display or download file name.
// It must be a plain base name: no separators, no control characters and
// no parent references.
func ValidateFileName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "file name cannot be empty")
	}
	if len(name) > maxFileNameLength {
		return New(ErrCodeInvalidPath, "file name too long (max %d characters)", maxFileNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "file name contains invalid control characters")
		}
	}
	if strings.ContainsAny(name, `/\`) {
		return New(ErrCodeInvalidPath, "file name cannot contain path separators")
	}
	if name == "." || name == ".." {
		return New(ErrCodeInvalidPath, "file name cannot be %q", name)
	}
	return nil
}

// ValidatePath validates a local file path given on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Must not resolve to a directory marker ("." or "/")
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	if clean := filepath.Clean(path); clean == "." || clean == string(filepath.Separator) {
		return New(ErrCodeInvalidPath, "path %q is not a file", path)
	}
	return nil
}

// ValidateURL validates a rendering service URL.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
