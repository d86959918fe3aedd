package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.Contains(tmpl, "{{.Name}}") {
		t.Errorf("Template() should reference the command name: %q", tmpl)
	}
	if !strings.Contains(tmpl, Version) {
		t.Errorf("Template() should contain version %q: %q", Version, tmpl)
	}
}

func TestUserAgent(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	if got := UserAgent(); got != "mermaidlive/v1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
}
