package mermaid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCommand is the mermaid-cli executable name.
const DefaultCommand = "mmdc"

// CLI renders diagrams with the mmdc command.
type CLI struct {
	path            string
	theme           string
	background      string
	puppeteerConfig string
}

// CLIOption configures a CLI renderer.
type CLIOption func(*CLI)

// WithPath sets the mmdc executable.
func WithPath(path string) CLIOption {
	return func(c *CLI) {
		if path != "" {
			c.path = path
		}
	}
}

// WithTheme sets the Mermaid theme (default, dark, forest, neutral).
func WithTheme(theme string) CLIOption {
	return func(c *CLI) {
		if theme != "" {
			c.theme = theme
		}
	}
}

// WithBackground sets the SVG background color.
func WithBackground(bg string) CLIOption {
	return func(c *CLI) {
		if bg != "" {
			c.background = bg
		}
	}
}

// WithPuppeteerConfig passes a puppeteer JSON config file to mmdc, needed
// e.g. to run headless Chrome without a sandbox in containers.
func WithPuppeteerConfig(path string) CLIOption {
	return func(c *CLI) { c.puppeteerConfig = path }
}

// NewCLI creates an mmdc renderer.
func NewCLI(opts ...CLIOption) *CLI {
	c := &CLI{
		path:       DefaultCommand,
		theme:      "default",
		background: "white",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports an install hint if the executable cannot be found.
func (c *CLI) Available() error {
	if _, err := exec.LookPath(c.path); err != nil {
		return fmt.Errorf("mermaid rendering requires mmdc. Install with:\n  npm install -g @mermaid-js/mermaid-cli")
	}
	return nil
}

// RenderToVector renders source to SVG. id becomes the root svg element id.
func (c *CLI) RenderToVector(ctx context.Context, id, source string) ([]byte, error) {
	if err := c.Available(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "mermaidlive-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.mmd")
	out := filepath.Join(dir, "output.svg")
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	args := []string{"-i", in, "-o", out, "-t", c.theme, "-b", c.background, "-q"}
	if id != "" {
		args = append(args, "-I", id)
	}
	if c.puppeteerConfig != "" {
		args = append(args, "-p", c.puppeteerConfig)
	}

	cmd := exec.CommandContext(ctx, c.path, args...)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("mmdc: %w", ctxErr)
		}
		if msg := cleanMessage(errBuf.String()); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, fmt.Errorf("mmdc: %w", err)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return svg, nil
}

// cleanMessage keeps the human part of an mmdc error: the "Error: " prefix
// and the JavaScript stack trace are dropped.
func cleanMessage(stderr string) string {
	var lines []string
	for line := range strings.Lines(stderr) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "at ") {
			break
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	return strings.TrimPrefix(msg, "Error: ")
}
