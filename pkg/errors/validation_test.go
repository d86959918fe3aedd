package errors

import (
	"strings"
	"testing"
)

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"markdown", "README.md", false},
		{"mermaid", "diagram.mmd", false},
		{"spaces", "my notes.md", false},
		{"hidden", ".diagram.mmd", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"slash", "path/to/file.md", true},
		{"backslash", "path\\file.md", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"null byte", "foo\x00.md", true},
		{"newline", "foo\n.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateFileName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://kroki.io", false},
		{"http localhost", "http://localhost:8000", false},

		{"empty", "", true},
		{"file scheme", "file:///etc/passwd", true},
		{"no scheme", "kroki.io", true},
		{"javascript", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "docs/README.md", false},
		{"absolute", "/tmp/diagram.mmd", false},
		{"parent", "../notes.md", false},

		{"empty", "", true},
		{"dot", ".", true},
		{"root", "/", true},
		{"null byte", "foo\x00bar", true},
		{"control", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidFormat,
		ErrCodeInvalidPath,
		ErrCodeInvalidMode,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeSessionNotFound,
		ErrCodeNoDiagram,
		ErrCodeRenderFailed,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
