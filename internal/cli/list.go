package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mermaidlive/pkg/diagram"
	mlio "github.com/matzehuels/mermaidlive/pkg/io"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List the diagram blocks of a Markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runList(cmd.Context(), args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print blocks as JSON")
	return cmd
}

func (c *CLI) runList(ctx context.Context, input string, asJSON bool) error {
	logger := loggerFromContext(ctx)

	text, isDocument, err := mlio.LoadFile(input)
	if err != nil {
		return err
	}

	var blocks []diagram.Block
	if isDocument {
		blocks = diagram.ExtractLanguage(text, c.config.Render.Language)
	} else {
		// A diagram file is one block spanning the whole file.
		blocks = []diagram.Block{{
			Title:  filepath.Base(input),
			Kind:   diagram.Classify(text),
			Source: text,
			Line:   1,
		}}
	}
	logger.Debug("blocks extracted", "file", input, "blocks", len(blocks))

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(blocks)
	}

	if len(blocks) == 0 {
		printInfo("No %s blocks in %s", c.config.Render.Language, filepath.Base(input))
		return nil
	}
	fmt.Println(blockTable(blocks))
	return nil
}

// blockTable renders blocks as a bordered table.
func blockTable(blocks []diagram.Block) string {
	rows := make([][]string, len(blocks))
	for i, b := range blocks {
		rows[i] = []string{strconv.Itoa(b.Ordinal), b.Title, b.Kind.String(), strconv.Itoa(b.Line)}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Title", "Kind", "Line").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == -1:
				return headerStyle.Padding(0, 1)
			case col == 1:
				return base.Foreground(colorWhite)
			case col == 2:
				return base.Foreground(colorCyan)
			default:
				return base.Foreground(colorDim)
			}
		})
	return t.Render()
}
