package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(ErrCodeNoDiagram, "no mermaid blocks found in %s", "README.md"),
			want: "NO_DIAGRAM: no mermaid blocks found in README.md",
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeNetwork, errors.New("connection refused"), "kroki request"),
			want: "NETWORK_ERROR: kroki request: connection refused",
		},
		{
			name: "format verbs",
			err:  New(ErrCodeInvalidFormat, "unknown export format %q", "gif"),
			want: `INVALID_FORMAT: unknown export format "gif"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(ErrCodeFileNotFound, os.ErrNotExist, "open flow.mmd")
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
	if err.Unwrap() != os.ErrNotExist {
		t.Errorf("Unwrap() = %v", err.Unwrap())
	}

	timeout := Wrap(ErrCodeTimeout, context.DeadlineExceeded, "wait for render")
	if !errors.Is(timeout, context.DeadlineExceeded) {
		t.Error("deadline cause lost")
	}
}

func TestIsAndGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"direct", New(ErrCodeSessionNotFound, "session abc"), ErrCodeSessionNotFound},
		{"fmt wrapped", fmt.Errorf("serve: %w", New(ErrCodeUnsupported, "export in embedded mode")), ErrCodeUnsupported},
		{"double fmt wrapped", fmt.Errorf("a: %w", fmt.Errorf("b: %w", New(ErrCodeRenderFailed, "x"))), ErrCodeRenderFailed},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%q) = false", tt.code)
			}
			if Is(tt.err, ErrCodeInternal) {
				t.Error("Is matched an unrelated code")
			}
		})
	}
}

func TestIsUsesOutermostCode(t *testing.T) {
	inner := New(ErrCodeNetwork, "kroki down")
	outer := Wrap(ErrCodeRenderFailed, inner, "render flow.mmd")

	if !Is(outer, ErrCodeRenderFailed) {
		t.Error("outer code not matched")
	}
	if Is(outer, ErrCodeNetwork) {
		t.Error("Is should stop at the outermost *Error")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no code prefix", New(ErrCodeInvalidMode, "--embedded needs a Markdown document"), "--embedded needs a Markdown document"},
		{"cause appended", Wrap(ErrCodeInvalidPath, errors.New("permission denied"), "write out.svg"), "write out.svg: permission denied"},
		{"plain error", errors.New("Parse error on line 2"), "Parse error on line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
