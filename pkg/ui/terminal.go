// Package ui renders run progress and summaries for the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"smugvault/pkg/report"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	labelStyle   = lipgloss.NewStyle().Width(14)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// PrintInfo prints a labeled value line.
func PrintInfo(label, value string) {
	fmt.Printf("%s %s\n", titleStyle.Render(label+":"), value)
}

// PrintSuccess prints a success message in green.
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintWarning prints a warning message in yellow.
func PrintWarning(msg string) {
	fmt.Println(warnStyle.Render(msg))
}

// PrintError prints an error message in red.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Println(errorStyle.Render(msg))
}

// RenderSummary renders the end-of-run report block.
func RenderSummary(rep *report.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Export summary for "+rep.Account) + "\n\n")

	row := func(label string, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("Photos", fmt.Sprintf("%d", rep.Totals.Photos))
	row("Downloaded", fmt.Sprintf("%d (%s)", rep.Totals.Downloaded, humanBytes(rep.Totals.Bytes)))
	row("Up to date", fmt.Sprintf("%d", rep.Totals.Skipped))
	if rep.Totals.MetaWritten > 0 {
		row("Metadata", fmt.Sprintf("%d sidecars refreshed", rep.Totals.MetaWritten))
	}
	if rep.Totals.Failed > 0 {
		row("Failed", errorStyle.Render(fmt.Sprintf("%d", rep.Totals.Failed)))
	}
	if rep.Totals.Unattempted > 0 {
		row("Unattempted", warnStyle.Render(fmt.Sprintf("%d", rep.Totals.Unattempted)))
	}
	row("Duration", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Second).String())

	if rep.Discrepancies > 0 {
		b.WriteString("\n" + warnStyle.Render(fmt.Sprintf("%d galleries do not match their expected counts:", rep.Discrepancies)) + "\n")
		for _, g := range rep.Galleries {
			if !g.Match && !g.Incomplete {
				b.WriteString(fmt.Sprintf("  %s: found %d of %d\n", g.Path, g.Found, g.Expected))
			}
		}
	}
	if len(rep.Incomplete) > 0 {
		b.WriteString("\n" + warnStyle.Render("Subtrees that could not be fully enumerated:") + "\n")
		for _, sub := range rep.Incomplete {
			b.WriteString(fmt.Sprintf("  %s %s\n", sub.Path, dimStyle.Render("("+sub.Reason+")")))
		}
	}
	if len(rep.Failed) > 0 {
		b.WriteString("\n" + errorStyle.Render("Items left behind:") + "\n")
		for i, item := range rep.Failed {
			if i == 10 {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more (see the report file)", len(rep.Failed)-10)) + "\n")
				break
			}
			detail := item.Error
			if item.Skipped {
				detail = "not attempted"
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", item.Path, dimStyle.Render(detail)))
		}
	}

	b.WriteString("\n")
	switch rep.ExitCode() {
	case report.ExitOK:
		b.WriteString(successStyle.Render("Everything verified."))
	case report.ExitFatal:
		b.WriteString(errorStyle.Render("Run aborted: " + rep.AbortReason))
	default:
		b.WriteString(warnStyle.Render("Run finished with items left behind; re-run to retry them."))
	}

	return boxStyle.Render(b.String())
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
