package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mermaidlive/pkg/editor"
	mlio "github.com/matzehuels/mermaidlive/pkg/io"
	"github.com/matzehuels/mermaidlive/pkg/render"
	"github.com/matzehuels/mermaidlive/pkg/session"
)

type editOpts struct {
	out     string
	noCache bool
}

// editCommand creates the terminal editor command.
func (c *CLI) editCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a diagram or document in the terminal with live rendering",
		Long: `Edit a Mermaid diagram or a Markdown document in the terminal.

Every change is rendered in the background. With --out, the current diagram
is written as SVG after every successful render, so an image viewer that
watches the file shows a live preview.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runEdit(cmd.Context(), path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the rendered SVG here after every render")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, path string, opts editOpts) error {
	b, err := c.newBackend(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer b.Close()

	// Logs would draw over the full-screen UI, so the session stays quiet.
	cfg := c.sessionConfig(b, nil)
	sess := session.New(cfg)
	defer sess.Close()

	if path != "" {
		text, _, err := mlio.LoadFile(path)
		if err != nil {
			return err
		}
		if err := sess.LoadNamed(filepath.Base(path), text); err != nil {
			return err
		}
	}

	m := newEditModel(sess, path, opts.out)
	defer m.unsubscribe()

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// =============================================================================
// Model
// =============================================================================

var (
	styleHeader    = lipgloss.NewStyle().Foreground(colorGray)
	styleMode      = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleRenderErr = lipgloss.NewStyle().Foreground(colorRed)
	stylePickerSel = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

const editHelp = "ctrl+e mode · ctrl+p diagrams · ctrl+s save · ctrl+y copy svg · alt+=/alt+-/alt+0 zoom · esc quit"

type resultMsg render.Result

// editModel is the bubbletea model of the terminal editor.
type editModel struct {
	sess    *session.Session
	input   textarea.Model
	results chan render.Result
	unsub   func()

	path string // opened file, decides where saves go
	out  string // live SVG output

	result    render.Result
	hasResult bool
	status    string

	picker bool
	cursor int

	width, height int

	copy func(string) error
}

func newEditModel(sess *session.Session, path, out string) *editModel {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.Placeholder = render.PlaceholderText
	ta.SetValue(sess.Editor().State().Buffer())
	ta.Focus()

	m := &editModel{
		sess:    sess,
		input:   ta,
		results: make(chan render.Result, 1),
		path:    path,
		out:     out,
		copy:    clipboard.WriteAll,
	}
	if res, ok := sess.Pipeline().Current(); ok {
		m.result, m.hasResult = res, true
	}
	m.unsub = sess.Pipeline().Subscribe(m.publish)
	return m
}

// publish hands res to the UI, replacing an undelivered older result.
// It never blocks the pipeline.
func (m *editModel) publish(res render.Result) {
	for {
		select {
		case m.results <- res:
			return
		default:
		}
		select {
		case <-m.results:
		default:
		}
	}
}

func (m *editModel) unsubscribe() {
	if m.unsub != nil {
		m.unsub()
	}
}

func (m *editModel) waitForResult() tea.Msg {
	return resultMsg(<-m.results)
}

func (m *editModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForResult)
}

func (m *editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(msg.Width)
		m.input.SetHeight(max(msg.Height-5, 3))
		return m, nil

	case resultMsg:
		m.applyResult(render.Result(msg))
		return m, m.waitForResult

	case tea.KeyMsg:
		if m.picker {
			return m, m.updatePicker(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.edit(after)
	}
	return m, cmd
}

// handleKey runs editor shortcuts. It reports false for keys that belong
// to the text area.
func (m *editModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	ed := m.sess.Editor()
	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit, true
	case "ctrl+e":
		ed.ToggleMode(ed.State().Mode != editor.Embedded)
		m.syncInput()
		m.status = ""
	case "ctrl+p":
		st := ed.State()
		if st.Mode != editor.Standalone || len(st.Diagrams) == 0 {
			m.status = "No diagrams to pick from"
			return nil, true
		}
		m.picker = true
		m.cursor = max(st.SelectedIndex, 0)
	case "ctrl+s":
		m.save()
	case "ctrl+y":
		m.copyArtifact()
	case "alt+=", "alt++":
		ed.ZoomIn()
	case "alt+-":
		ed.ZoomOut()
	case "alt+0":
		ed.ResetView()
	default:
		return nil, false
	}
	return nil, true
}

func (m *editModel) updatePicker(msg tea.KeyMsg) tea.Cmd {
	diagrams := m.sess.Editor().State().Diagrams
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "esc", "ctrl+p", "q":
		m.picker = false
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(diagrams)-1 {
			m.cursor++
		}
	case "enter":
		m.sess.Editor().Select(m.cursor)
		m.picker = false
		m.syncInput()
	}
	return nil
}

// edit writes text into the active buffer.
func (m *editModel) edit(text string) {
	ed := m.sess.Editor()
	if ed.State().Mode == editor.Embedded {
		ed.EditDocument(text)
	} else {
		ed.EditStandalone(text)
	}
}

// syncInput shows the active buffer after a mode switch or selection.
func (m *editModel) syncInput() {
	if buf := m.sess.Editor().State().Buffer(); m.input.Value() != buf {
		m.input.SetValue(buf)
	}
}

func (m *editModel) applyResult(res render.Result) {
	m.result, m.hasResult = res, true
	if m.out == "" || !res.HasDiagram() {
		return
	}
	if err := mlio.WriteFile(m.out, []byte(res.Artifact)); err != nil {
		m.status = "Write failed: " + err.Error()
	}
}

func (m *editModel) save() {
	name, content := m.sess.Save()
	dir := "."
	if m.path != "" {
		dir = filepath.Dir(m.path)
	}
	target := filepath.Join(dir, name)
	if err := mlio.WriteFile(target, []byte(content)); err != nil {
		m.status = "Save failed: " + err.Error()
		return
	}
	m.status = "Saved " + target
}

func (m *editModel) copyArtifact() {
	if !m.result.HasDiagram() {
		m.status = "No diagram to copy"
		return
	}
	if err := m.copy(m.result.Artifact); err != nil {
		m.status = "Copy failed: " + err.Error()
		return
	}
	m.status = "Copied SVG to clipboard"
}

// =============================================================================
// View
// =============================================================================

func (m *editModel) View() string {
	snap := m.sess.Editor().Snapshot()
	st := snap.State

	var b strings.Builder
	b.WriteString(m.headerLine(st, snap.View.Percent()))
	b.WriteString("\n")
	if m.picker {
		b.WriteString(m.pickerView(st))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderLine())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(StyleDim.Render(m.status))
	} else {
		b.WriteString(StyleDim.Render(editHelp))
	}
	return b.String()
}

func (m *editModel) headerLine(st editor.State, zoom int) string {
	name := st.DisplayName
	if name == "" {
		name = mlio.SaveName("", st.Mode)
	}
	parts := []string{
		StyleTitle.Render(appName),
		StyleValue.Render(name),
		styleMode.Render(st.Mode.String()),
	}
	if blk, ok := st.Selected(); ok && st.Mode == editor.Standalone {
		parts = append(parts, styleHeader.Render(blk.Label()))
	}
	parts = append(parts, styleHeader.Render(fmt.Sprintf("zoom %d%%", zoom)))
	return strings.Join(parts, styleHeader.Render(" · "))
}

func (m *editModel) renderLine() string {
	if !m.hasResult {
		return StyleDim.Render("Rendering...")
	}
	pending := ""
	if m.sess.Pipeline().Latest() > m.result.Token {
		pending = StyleDim.Render(" (rendering...)")
	}

	res := m.result
	elapsed := res.Elapsed.Round(time.Millisecond)
	switch {
	case !res.OK():
		return styleRenderErr.Render("Error: "+res.Message) + pending
	case res.Placeholder:
		return StyleDim.Render(render.PlaceholderText) + pending
	case res.Mode == editor.Embedded && res.FailedBlocks > 0:
		return StyleWarning.Render(fmt.Sprintf("%s %d of %d diagrams failed", iconWarning, res.FailedBlocks, res.Blocks)) + pending
	case res.Mode == editor.Embedded:
		return StyleSuccess.Render(fmt.Sprintf("%s %d %s rendered in %s", iconSuccess, res.Blocks, plural(res.Blocks, "diagram", "diagrams"), elapsed)) + pending
	default:
		return StyleSuccess.Render(fmt.Sprintf("%s rendered in %s", iconSuccess, elapsed)) + pending
	}
}

func (m *editModel) pickerView(st editor.State) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Select Diagram"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ select  esc cancel"))
	b.WriteString("\n\n")
	for i, blk := range st.Diagrams {
		line := fmt.Sprintf("  %d. %s", i+1, blk.Label())
		if i == m.cursor {
			b.WriteString(stylePickerSel.Render("▸" + line[1:]))
		} else {
			b.WriteString(StyleValue.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
