package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mcpjob/internal/runner"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func renderRunResult(cmd *cobra.Command, result runner.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	headline := fmt.Sprintf("Job %s: %s", result.RequestID, displayStatus(result.Status))
	if colorize {
		color := ansiGreen
		if result.Note != "" {
			color = ansiYellow
		}
		headline = color + headline + ansiReset
	}
	fmt.Fprintln(out, headline)

	rows := [][2]string{
		{"Request ID", result.RequestID},
		{"Status", displayStatus(result.Status)},
	}
	if result.DownloadURL != "" {
		rows = append(rows, [2]string{"Download URL", result.DownloadURL})
	}
	if result.SavedPath != "" {
		rows = append(rows, [2]string{"Saved To", result.SavedPath})
	}
	if result.Note != "" {
		rows = append(rows, [2]string{"Note", result.Note})
	}
	fmt.Fprintln(out, renderDetailTable(rows))
}

func renderDetailTable(rows [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
	})
	return tw.Render()
}

func displayStatus(status string) string {
	if status == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(status)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
