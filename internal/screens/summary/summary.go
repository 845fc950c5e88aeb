package summary

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/router"
	"github.com/abhisek/stairwise/internal/screen"
	"github.com/abhisek/stairwise/internal/ui/layout"
	"github.com/abhisek/stairwise/internal/ui/theme"
)

// SummaryScreen displays the result of a finished or aborted run.
type SummaryScreen struct {
	summary experiment.Summary
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(sum experiment.Summary) *SummaryScreen {
	return &SummaryScreen{summary: sum}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Run Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	sum := s.summary
	var b strings.Builder
	b.WriteString("\n")

	// Headline.
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(statusColor(sum.Status)).
		Bold(true).
		Render(Headline(sum.Status)))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("%s   run %s   %s", sum.Participant.Code(), shortID(sum.RunID), FormatDuration(sum.Duration))))
	b.WriteString("\n\n")

	stats := fmt.Sprintf("Trials: %d        Training accuracy: %d%%        Staircase trials: %d",
		sum.Trials, sum.TrainingAccuracy, sum.StaircaseTrials)
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Render(stats))
	b.WriteString("\n\n")

	// Staircase section.
	b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.TextDim).Render("Staircase")))
	b.WriteString("\n")
	b.WriteString(layout.Centered(width, layout.Divider(width)))
	b.WriteString("\n\n")

	b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Text).Render(
		fmt.Sprintf("Reversals: %d        Final value: %s", sum.Reversals, formatValue(sum.FinalValue)))))
	b.WriteString("\n")

	if len(sum.ReversalValues) > 0 {
		vals := make([]string, len(sum.ReversalValues))
		for i, v := range sum.ReversalValues {
			vals[i] = formatValue(v)
		}
		b.WriteString(layout.Centered(width, lipgloss.NewStyle().Foreground(theme.Secondary).Render(
			"Reversal values: "+strings.Join(vals, "  "))))
		b.WriteString("\n")
	}

	return b.String()
}

// Headline returns the title line for a run status.
func Headline(st experiment.Status) string {
	switch st {
	case experiment.StatusFinished:
		return "Run complete!"
	case experiment.StatusCapped:
		return "Trial limit reached"
	case experiment.StatusAborted:
		return "Run aborted"
	default:
		return "Run in progress"
	}
}

func statusColor(st experiment.Status) color.Color {
	switch st {
	case experiment.StatusFinished:
		return theme.Success
	case experiment.StatusAborted:
		return theme.Error
	case experiment.StatusCapped:
		return theme.Accent
	default:
		return theme.Primary
	}
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
