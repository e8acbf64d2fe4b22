package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hearthlab/hearth/internal/ui/benchmarks"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	// Header
	renderHeader(&b, m)

	// Progress bar
	renderProgressBar(&b, m)

	// Component rows
	renderComponents(&b, m)

	// Errors
	if len(m.Errors) > 0 {
		renderErrors(&b, m)
	}

	// Last log line
	if m.LastLog != "" && !m.Done {
		b.WriteString(dimStyle.Render("  " + m.LastLog))
		b.WriteString("\n")
	}

	// Footer
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("hearth: %s", m.ClusterName)
	if m.Environment != "" {
		title += fmt.Sprintf(" (%s)", m.Environment)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done && len(m.Errors) > 0:
		status += warningStyle.Render("Finished with failures")
	case m.Done:
		status += readyStyle.Render("Complete")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(m.Mode)
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if !m.Done && m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, pct, eta)
}

func renderComponents(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Components"))
	b.WriteString("\n")

	for _, row := range m.Components {
		renderComponentRow(b, m, row)
	}
}

func renderComponentRow(b *strings.Builder, m Model, row ComponentRow) {
	var icon string
	var style styleFunc

	switch row.State {
	case RowReady:
		icon = checkMark
		style = sf(readyStyle)
	case RowActive:
		icon = currentSpinner(m.SpinnerFrame)
		style = sf(activeStyle)
	case RowFailed:
		icon = crossMark
		style = sf(failedStyle)
	case RowBlocked, RowRolledBack:
		icon = warnMark
		style = sf(warningStyle)
	case RowSkipped:
		icon = skipMark
		style = sf(dimStyle)
	default:
		icon = pending
		style = sf(dimStyle)
	}

	extra := ""
	switch {
	case row.State == RowReady && row.Duration > 0:
		extra = sf(dimStyle)(formatDuration(row.Duration))
	case row.State == RowActive && row.Detail != "":
		extra = sf(activeStyle)(row.Detail)
	case row.State == RowActive:
		extra = sf(activeStyle)("deploying")
	case row.Detail != "":
		extra = sf(dimStyle)(row.Detail)
	}

	bar := ""
	if row.State == RowActive && !row.StartedAt.IsZero() {
		expected := 60 * time.Second
		if exp, ok := benchmarks.ExpectedDuration(row.Name); ok {
			expected = time.Duration(float64(exp) * m.PerformanceScale)
		}
		elapsed := time.Since(row.StartedAt)
		progress := float64(elapsed) / float64(expected)
		if progress > 1 {
			progress = 1
		}
		bar = " " + componentMiniBar(progress)
	}

	fmt.Fprintf(b, "    %s %-20s %s%s\n", style(icon), style(row.Name), extra, bar)
}

func renderErrors(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Recent Errors"))
	b.WriteString("\n")

	// Show last 3 errors
	start := 0
	if len(m.Errors) > 3 {
		start = len(m.Errors) - 3
	}
	for _, line := range m.Errors[start:] {
		fmt.Fprintf(b, "    %s %s\n", failedStyle.Render(crossMark), dimStyle.Render(line))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	parts := []string{fmt.Sprintf("elapsed: %s", elapsed)}
	if m.Summary != "" {
		parts = append(parts, m.Summary)
	}
	pulse := ""
	if !m.Done {
		pulse = "  |  " + currentSpinner(m.SpinnerFrame) + " deploying"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s%s  |  q: quit", strings.Join(parts, "  |  "), pulse)))
	b.WriteString("\n")
}

// Helper functions

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func componentMiniBar(progress float64) string {
	const width = 10
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * width)
	if filled > width {
		filled = width
	}
	return progressBarFull.Render(strings.Repeat("█", filled)) + progressBarEmpty.Render(strings.Repeat("░", width-filled))
}

func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}
	if m.Total == 0 {
		return 0
	}
	progress := float64(m.Current) / float64(m.Total)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
