package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/storyflow/pkg/flow"
)

// stdout receives all styled report output. Tests swap it.
var stdout io.Writer = os.Stdout

// Palette. Lucien speaks in blue, Diana in pink.
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorPink   = lipgloss.Color("211")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError   = lipgloss.NewStyle().Foreground(colorRed)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleLabel       = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	styleHeader      = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	styleCell        = lipgloss.NewStyle().Padding(0, 1)
)

// Status markers, one per line kind.
var (
	markSuccess = lipgloss.NewStyle().Foreground(colorGreen).Render("✓")
	markError   = lipgloss.NewStyle().Foreground(colorRed).Render("✗")
	markWarning = lipgloss.NewStyle().Foreground(colorYellow).Render("!")
	markInfo    = lipgloss.NewStyle().Foreground(colorGray).Render("›")
	markFile    = StyleDim.Render("→")
	markCached  = lipgloss.NewStyle().Foreground(colorGreen).Render("cached")
	markFresh   = lipgloss.NewStyle().Foreground(colorGray).Render("fresh")
)

func emit(prefix, format string, args ...any) {
	fmt.Fprintln(stdout, prefix+fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { emit(markSuccess+" ", format, args...) }
func printError(format string, args ...any)   { emit(markError+" ", format, args...) }
func printInfo(format string, args ...any)    { emit(markInfo+" ", format, args...) }

func printWarning(format string, args ...any) {
	emit(markWarning+" ", "%s", StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, dimmed line under the previous status.
func printDetail(format string, args ...any) {
	emit("  ", "%s", StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile announces a written artifact.
func printFile(path string) { emit("  "+markFile+" ", "%s", StyleValue.Render(path)) }

func printKeyValue(key, value string) {
	emit(styleLabel.Render(key)+" ", "%s", StyleValue.Render(value))
}

// printCacheStatus tells whether a report came from the cache.
func printCacheStatus(cached bool) {
	mark := markFresh
	if cached {
		mark = markCached
	}
	emit("  ", "%s", mark)
}

func printNextStep(description, cmd string) {
	emit(StyleDim.Render(description+":")+" ", "%s", styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(stdout) }

// printIssues lists validation errors before warnings, each in report order.
func printIssues(res flow.ValidationResult) {
	for _, issue := range res.Errors {
		printError("%s", StyleError.Render(issue.Message))
	}
	for _, issue := range res.Warnings {
		printWarning("%s", issue.Message)
	}
}

// printTable renders a rounded table; every column after the first holds
// counts and is tinted.
func printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row < 0: // header
				return styleHeader
			case col > 0:
				return styleCell.Foreground(colorCyan)
			default:
				return styleCell
			}
		})
	fmt.Fprintln(stdout, t.Render())
}

// formatPath joins fragment IDs with a dimmed arrow.
func formatPath(ids []string) string {
	return strings.Join(ids, StyleDim.Render(flow.Arrow))
}
