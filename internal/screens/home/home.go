// Package home implements the start screen.
package home

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/router"
	"github.com/abhisek/stairwise/internal/screen"
	"github.com/abhisek/stairwise/internal/screens/console"
	"github.com/abhisek/stairwise/internal/screens/history"
	"github.com/abhisek/stairwise/internal/screens/participant"
	"github.com/abhisek/stairwise/internal/store"
	"github.com/abhisek/stairwise/internal/ui/components"
	"github.com/abhisek/stairwise/internal/ui/layout"
	"github.com/abhisek/stairwise/internal/ui/theme"
)

const logo = `      ┌──
   ┌──┘
┌──┘      S T A I R W I S E`

type latestLoadedMsg struct {
	Run *store.RunSummaryRecord
	Err error
}

// HomeScreen is the main home screen of the application.
type HomeScreen struct {
	menu      components.Menu
	eventRepo store.EventRepo
	env       console.Env
	latest    *store.RunSummaryRecord
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates a new HomeScreen. eventRepo may be nil, in which case runs
// are not persisted and History is disabled.
func New(env console.Env, eventRepo store.EventRepo, defaults experiment.Participant) *HomeScreen {
	items := []components.MenuItem{
		{Label: "New run", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: participant.New(env, defaults)}
			}
		}},
		{Label: "History", Disabled: eventRepo == nil, Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: history.New(eventRepo)}
			}
		}},
		{Label: "Quit", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}

	return &HomeScreen{
		menu:      components.NewMenu(items),
		eventRepo: eventRepo,
		env:       env,
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	if h.eventRepo == nil {
		return nil
	}
	repo := h.eventRepo
	return func() tea.Msg {
		run, err := repo.LatestRun(context.Background())
		return latestLoadedMsg{Run: run, Err: err}
	}
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(latestLoadedMsg); ok {
		// A failed lookup just leaves the last-run line empty.
		if msg.Err == nil {
			h.latest = msg.Run
		}
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var sections []string
	sections = append(sections, lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(logo)))
	sections = append(sections, theme.Subtitle.Width(cw).Render(h.configLine()))
	sections = append(sections, components.Card(h.latestLine(), cw))
	sections = append(sections, lipgloss.NewStyle().Width(cw).Render(h.menu.View()))

	return components.Frame(strings.Join(sections, "\n\n"), width, height)
}

// configLine summarises the procedure new runs will use.
func (h *HomeScreen) configLine() string {
	cfg := h.env.Config
	sc := cfg.Staircase
	return fmt.Sprintf("%d-up/%d-down · start %s · step %s · %d reversals",
		sc.NUp, sc.NDown, formatValue(sc.StartValue), formatValue(sc.Step), sc.MaxReversals)
}

func (h *HomeScreen) latestLine() string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch {
	case h.eventRepo == nil:
		return dim.Render("Results are not being saved")
	case h.latest == nil:
		return dim.Render("No runs yet")
	}
	r := h.latest
	return dim.Render("Last run  ") + lipgloss.NewStyle().Foreground(theme.Text).Render(
		fmt.Sprintf("%s  %s  %s  final %s",
			r.StartedAt.Local().Format("Jan 02 15:04"), r.ParticipantCode, r.Status, formatValue(r.FinalValue)))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
