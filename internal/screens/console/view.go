package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/ui/components"
	"github.com/abhisek/stairwise/internal/ui/layout"
	"github.com/abhisek/stairwise/internal/ui/theme"
)

func (c *ConsoleScreen) View(width, height int) string {
	switch {
	case c.errMsg != "":
		return renderError(width, c.errMsg)
	case c.confirmAbort:
		return renderAbortConfirm(width, height)
	case !c.hasTrial:
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  Starting run...")
	}
	return c.renderTrial(width)
}

func (c *ConsoleScreen) renderTrial(width int) string {
	cw := components.ContentWidth(width)
	t := c.trial

	var b strings.Builder
	b.WriteString("\n")

	// Trial and phase line.
	phase := "Staircase"
	phaseStyle := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	if t.Phase == experiment.PhaseTraining {
		phase = fmt.Sprintf("Training · level %d", t.TrainingLevel)
		phaseStyle = phaseStyle.Foreground(theme.Accent)
	}
	info := phaseStyle.Render(phase) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("   Trial %d", t.Index+1))
	if t.Phase == experiment.PhaseTraining {
		info += lipgloss.NewStyle().Foreground(theme.TextDim).
			Render(fmt.Sprintf(" of %d", c.session.TrainingTrials()))
	}
	b.WriteString(layout.Centered(width, info))
	b.WriteString("\n\n")

	// The value to present.
	value := lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Render("Present  " + FormatValue(t.Intensity))
	b.WriteString(layout.Centered(width, components.Card(value, cw)))
	b.WriteString("\n\n")

	// Reversal progress.
	st := c.session.Staircase()
	bar := components.NewProgressBar("Reversals", st.Reversals, c.session.Config().Staircase.MaxReversals, cw)
	b.WriteString(layout.Centered(width, bar.View()))
	b.WriteString("\n\n")

	// Recent outcomes.
	if len(c.recent) > 0 {
		b.WriteString(layout.Centered(width, renderRecent(c.recent)))
		b.WriteString("\n")
		b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim).
			Render("last response: "+formatLatency(c.lastLatency))))
		b.WriteString("\n")
	}

	if c.warnMsg != "" {
		b.WriteString("\n")
		b.WriteString(layout.Centered(width, theme.Warning.Render("! "+c.warnMsg)))
		b.WriteString("\n")
	}

	return b.String()
}

// renderRecent renders one mark per recent trial, oldest first.
func renderRecent(recs []experiment.TrialRecord) string {
	marks := make([]string, 0, len(recs))
	for _, r := range recs {
		var m string
		switch {
		case r.TimedOut:
			m = theme.Warning.Render("–")
		case r.Correct:
			m = theme.Correct.Render("✓")
		default:
			m = theme.Incorrect.Render("✗")
		}
		if r.Reversal {
			m += lipgloss.NewStyle().Foreground(theme.Primary).Render("↺")
		}
		marks = append(marks, m)
	}
	return strings.Join(marks, " ")
}

func renderAbortConfirm(width, height int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Error).
		Padding(1, 3).
		Render(theme.Incorrect.Render("Abort this run?") + "\n\n" +
			theme.Hint.Render("The trials so far stay recorded."))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func renderError(width int, msg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\nError: %s", msg))
}

// FormatValue formats an intensity with the fewest digits that round-trip.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatLatency(d time.Duration) string {
	if d < 0 {
		return "timeout"
	}
	return fmt.Sprintf("%d ms", d.Milliseconds())
}
