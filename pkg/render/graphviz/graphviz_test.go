package graphviz

import (
	"context"
	"strings"
	"testing"
)

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<?xml version="1.0"?><svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))

	if !strings.Contains(got, `viewBox="0 0 62.00 116.00" width="62" height="116"`) {
		t.Errorf("normalizeViewBox = %s", got)
	}
	if strings.Contains(got, "pt") {
		t.Errorf("point units should be dropped: %s", got)
	}
}

func TestNormalizeViewBoxNoMatch(t *testing.T) {
	in := []byte(`<svg width="10" height="10"></svg>`)
	if got := normalizeViewBox(in); string(got) != string(in) {
		t.Errorf("svg without viewBox should be unchanged: %s", got)
	}
}

func TestRender(t *testing.T) {
	r := New()
	defer r.Close()

	svg, err := r.RenderToVector(context.Background(), "id", `digraph G { a -> b; }`)
	if err != nil {
		t.Fatalf("RenderToVector: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), ">a<") {
		t.Errorf("unexpected output: %.200s", svg)
	}
}
