// Package console implements the operator console: it shows the intensity
// to present and records the participant's response with one key press.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/router"
	"github.com/abhisek/stairwise/internal/screen"
	"github.com/abhisek/stairwise/internal/screens/summary"
	"github.com/abhisek/stairwise/internal/ui/layout"
)

// recentLimit is the number of outcomes shown in the recent strip.
const recentLimit = 12

// Env carries what the console needs to start new runs.
type Env struct {
	Config experiment.Config
	Repo   experiment.Recorder // may be nil
	Logger *slog.Logger
}

// NewRun creates a session for p and a console driving it.
func (e Env) NewRun(p experiment.Participant) (*ConsoleScreen, error) {
	s, err := experiment.NewSession("", p, e.Config, e.Repo, e.Logger)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

type startedMsg struct {
	Err error
}

// ConsoleScreen drives an experiment.Session from operator key presses.
type ConsoleScreen struct {
	session *experiment.Session
	keys    keyMap
	now     func() time.Time

	trial    experiment.Trial
	hasTrial bool
	shownAt  time.Time

	recent       []experiment.TrialRecord
	lastLatency  time.Duration
	confirmAbort bool
	warnMsg      string
	errMsg       string
}

var _ screen.Screen = (*ConsoleScreen)(nil)
var _ screen.KeyHintProvider = (*ConsoleScreen)(nil)
var _ screen.StatusProvider = (*ConsoleScreen)(nil)
var _ screen.CaptureEscape = (*ConsoleScreen)(nil)
var _ screen.Closer = (*ConsoleScreen)(nil)

// New creates a console for a session that has not been started yet.
func New(s *experiment.Session) *ConsoleScreen {
	return &ConsoleScreen{
		session: s,
		keys:    defaultKeyMap(),
		now:     time.Now,
	}
}

func (c *ConsoleScreen) Init() tea.Cmd {
	s := c.session
	return func() tea.Msg {
		return startedMsg{Err: s.Start(context.Background())}
	}
}

// Close aborts the run if the program exits before it ended.
func (c *ConsoleScreen) Close(ctx context.Context) error {
	return c.session.Abort(ctx)
}

func (c *ConsoleScreen) Title() string {
	return "Console"
}

func (c *ConsoleScreen) CapturesEscape() bool {
	return c.errMsg == ""
}

func (c *ConsoleScreen) HeaderStatus() string {
	p := c.session.Participant()
	st := c.session.Staircase()
	return fmt.Sprintf("%s · rev %d/%d  ", p.Code(), st.Reversals, c.session.Config().Staircase.MaxReversals)
}

func (c *ConsoleScreen) KeyHints() []layout.KeyHint {
	switch {
	case c.errMsg != "":
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	case c.confirmAbort:
		return hints(c.keys.ConfirmAbort, c.keys.CancelAbort)
	default:
		return hints(c.keys.Correct, c.keys.Incorrect, c.keys.Timeout, c.keys.Abort)
	}
}

func (c *ConsoleScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		var perr *experiment.PersistError
		if errors.As(msg.Err, &perr) {
			c.warnMsg = msg.Err.Error()
		} else if msg.Err != nil {
			c.errMsg = msg.Err.Error()
			return c, nil
		}
		return c, c.advance()

	case tea.KeyPressMsg:
		return c.handleKey(msg)
	}
	return c, nil
}

func (c *ConsoleScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	if c.errMsg != "" {
		return c, func() tea.Msg { return router.PopScreenMsg{} }
	}

	if c.confirmAbort {
		switch {
		case key.Matches(msg, c.keys.ConfirmAbort):
			c.confirmAbort = false
			if err := c.session.Abort(context.Background()); err != nil {
				c.warnMsg = err.Error()
			}
			return c, c.showSummary()
		case key.Matches(msg, c.keys.CancelAbort):
			c.confirmAbort = false
		}
		return c, nil
	}

	if key.Matches(msg, c.keys.Abort) {
		c.confirmAbort = true
		return c, nil
	}

	if !c.hasTrial {
		return c, nil
	}

	switch {
	case key.Matches(msg, c.keys.Correct):
		return c, c.respond(experiment.Response{Correct: true, Latency: c.now().Sub(c.shownAt)})
	case key.Matches(msg, c.keys.Incorrect):
		return c, c.respond(experiment.Response{Correct: false, Latency: c.now().Sub(c.shownAt)})
	case key.Matches(msg, c.keys.Timeout):
		return c, c.respond(experiment.Timeout())
	}
	return c, nil
}

// respond records the response to the current trial and moves on.
func (c *ConsoleScreen) respond(r experiment.Response) tea.Cmd {
	rec, err := c.session.Record(context.Background(), c.trial, r)
	var perr *experiment.PersistError
	if err != nil && !errors.As(err, &perr) {
		c.errMsg = err.Error()
		return nil
	}
	// A storage failure is shown but the run continues.
	c.warnMsg = ""
	if err != nil {
		c.warnMsg = err.Error()
	}

	c.hasTrial = false
	c.lastLatency = rec.Latency
	c.recent = append(c.recent, rec)
	if len(c.recent) > recentLimit {
		c.recent = c.recent[len(c.recent)-recentLimit:]
	}
	return c.advance()
}

// advance fetches the next trial, or hands over to the summary when the
// run is over.
func (c *ConsoleScreen) advance() tea.Cmd {
	t, err := c.session.NextTrial()
	if errors.Is(err, experiment.ErrDone) {
		return c.showSummary()
	}
	if err != nil {
		c.errMsg = err.Error()
		return nil
	}
	c.trial = t
	c.hasTrial = true
	c.shownAt = c.now()
	return nil
}

func (c *ConsoleScreen) showSummary() tea.Cmd {
	sum := c.session.Summary()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: summary.New(sum)}
	}
}
