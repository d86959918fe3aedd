package raster

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/matzehuels/mermaidlive/pkg/errors"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", SVG, false},
		{"PNG", PNG, false},
		{" pdf ", PDF, false},
		{"jpeg", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ParseFormat(%q) code = %v", tt.in, errors.GetCode(err))
		}
	}
}

func TestFormatMeta(t *testing.T) {
	if PNG.Ext() != ".png" || PDF.ContentType() != "application/pdf" || SVG.ContentType() != "image/svg+xml" {
		t.Error("unexpected format metadata")
	}
}

func TestPrepareSVG(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "mermaid relative width",
			in:   `<svg id="m" width="100%" xmlns="http://www.w3.org/2000/svg" style="max-width: 300px;" viewBox="0 0 300 150"><g/></svg>`,
			want: `<svg height="150" id="m" width="300" xmlns="http://www.w3.org/2000/svg" style="max-width: 300px;" viewBox="0 0 300 150"><g/></svg>`,
		},
		{
			name: "absolute kept",
			in:   `<svg width="40" height="20" viewBox="0 0 300 150"></svg>`,
			want: `<svg width="40" height="20" viewBox="0 0 300 150"></svg>`,
		},
		{
			name: "no viewBox",
			in:   `<svg><g/></svg>`,
			want: `<svg><g/></svg>`,
		},
		{
			name: "fractional viewBox",
			in:   `<svg viewBox="-8 -8 120.4 60.4"></svg>`,
			want: `<svg height="60" width="120" viewBox="-8 -8 120.4 60.4"></svg>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(PrepareSVG([]byte(tt.in))); got != tt.want {
				t.Errorf("PrepareSVG() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestWithBackground(t *testing.T) {
	in := []byte(`<?xml version="1.0"?><svg viewBox="0 0 1 1"><g/></svg>`)
	got := string(WithBackground(in, "white"))
	want := `<?xml version="1.0"?><svg viewBox="0 0 1 1"><rect width="100%" height="100%" fill="white"/><g/></svg>`
	if got != want {
		t.Errorf("WithBackground() = %s", got)
	}

	selfClosing := []byte(`<svg/>`)
	if !bytes.Equal(WithBackground(selfClosing, "white"), selfClosing) {
		t.Error("self-closing root should be left alone")
	}
}

func TestExportSVG(t *testing.T) {
	out, err := Export(context.Background(), []byte(`<svg width="100%" viewBox="0 0 10 20"></svg>`), SVG, 0)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(out), `width="10"`) || strings.Contains(string(out), "<rect") {
		t.Errorf("Export(svg) = %s", out)
	}
}

func TestExportPNG(t *testing.T) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		t.Skip("rsvg-convert not installed")
	}
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><circle cx="5" cy="5" r="4"/></svg>`)
	out, err := Export(context.Background(), svg, PNG, 1)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("\x89PNG")) {
		t.Errorf("output is not a PNG")
	}
}
