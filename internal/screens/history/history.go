// Package history lists past runs and the trials of a selected run.
package history

import (
	"context"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/stairwise/internal/router"
	"github.com/abhisek/stairwise/internal/screen"
	"github.com/abhisek/stairwise/internal/store"
	"github.com/abhisek/stairwise/internal/ui/layout"
	"github.com/abhisek/stairwise/internal/ui/theme"
)

// runLimit is the number of runs loaded into the list.
const runLimit = 50

// trialPreview is the number of trials shown under an expanded run.
const trialPreview = 10

type historyLoadedMsg struct {
	Runs []store.RunSummaryRecord
	Err  error
}

type trialsLoadedMsg struct {
	RunID  string
	Trials []store.TrialRecord
	Err    error
}

// HistoryScreen displays past runs, newest first.
type HistoryScreen struct {
	eventRepo store.EventRepo
	runs      []store.RunSummaryRecord
	trials    map[string][]store.TrialRecord // runID → trials
	selected  int
	expanded  map[int]bool
	loaded    bool
	errMsg    string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(eventRepo store.EventRepo) *HistoryScreen {
	return &HistoryScreen{
		eventRepo: eventRepo,
		trials:    make(map[string][]store.TrialRecord),
		expanded:  make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	repo := s.eventRepo
	return func() tea.Msg {
		runs, err := repo.QueryRunSummaries(context.Background(), store.QueryOpts{Limit: runLimit})
		return historyLoadedMsg{Runs: runs, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Trials"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.runs = msg.Runs
		}
		s.loaded = true
		return s, nil

	case trialsLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.trials[msg.RunID] = msg.Trials
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.runs)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			if len(s.runs) == 0 {
				return s, nil
			}
			s.expanded[s.selected] = !s.expanded[s.selected]
			if s.expanded[s.selected] {
				return s, s.loadTrials(s.runs[s.selected].RunID)
			}
			return s, nil
		}
	}
	return s, nil
}

// loadTrials fetches the trials of a run unless they are already cached.
func (s *HistoryScreen) loadTrials(runID string) tea.Cmd {
	if _, ok := s.trials[runID]; ok {
		return nil
	}
	repo := s.eventRepo
	return func() tea.Msg {
		trials, err := repo.QueryTrials(context.Background(), runID)
		return trialsLoadedMsg{RunID: runID, Trials: trials, Err: err}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.runs) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No runs yet. Start one from the home screen.")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, run := range s.runs {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := fmt.Sprintf("%s%s  %-14s %-9s %3d trials  %2d rev  final %s",
			prefix,
			run.StartedAt.Local().Format("Jan 02 15:04"),
			run.ParticipantCode,
			run.Status,
			run.Trials,
			run.Reversals,
			formatValue(run.FinalValue),
		)

		style := lipgloss.NewStyle().Foreground(statusColor(run.Status))
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(s.renderTrials(width, run))
		}
	}

	return b.String()
}

// renderTrials renders the tail of a run's trial list.
func (s *HistoryScreen) renderTrials(width int, run store.RunSummaryRecord) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true)
	trials, ok := s.trials[run.RunID]
	if !ok {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, dim.Render("    Loading trials...")) + "\n"
	}
	if len(trials) == 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, dim.Render("    No trials recorded")) + "\n"
	}

	var b strings.Builder
	if len(trials) > trialPreview {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			dim.Render(fmt.Sprintf("    ... %d earlier trials", len(trials)-trialPreview))))
		b.WriteString("\n")
		trials = trials[len(trials)-trialPreview:]
	}
	for _, t := range trials {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(trialColor(t)).Render(TrialLine(t))))
		b.WriteString("\n")
	}
	return b.String()
}

// TrialLine formats one stored trial as a single row.
func TrialLine(t store.TrialRecord) string {
	outcome := "incorrect"
	switch {
	case t.TimedOut:
		outcome = "timeout"
	case t.Correct:
		outcome = "correct"
	}
	latency := "-"
	if t.LatencyMs >= 0 {
		latency = (time.Duration(t.LatencyMs) * time.Millisecond).String()
	}
	rev := ""
	if t.Reversal {
		rev = "  reversal"
	}
	return fmt.Sprintf("    #%-3d %-9s %6s  %-9s %7s%s",
		t.TrialIndex, t.Phase, formatValue(t.Intensity), outcome, latency, rev)
}

func trialColor(t store.TrialRecord) color.Color {
	switch {
	case t.Reversal:
		return theme.Accent
	case t.Correct:
		return theme.Success
	default:
		return theme.TextDim
	}
}

func statusColor(status string) color.Color {
	switch status {
	case "finished":
		return theme.Text
	case "running":
		return theme.Secondary
	default:
		return theme.TextDim
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
