package console

import (
	"context"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/router"
	"github.com/abhisek/stairwise/internal/screen"
	"github.com/abhisek/stairwise/internal/staircase"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

// testConfig runs one training trial followed by a 1-up/1-down staircase
// that stops at the first reversal.
func testConfig() experiment.Config {
	return experiment.Config{
		Training: experiment.TrainingConfig{Levels: []float64{5}, Reps: 1},
		Staircase: staircase.Config{
			NUp:          1,
			NDown:        1,
			MaxReversals: 1,
			StartValue:   10,
			Step:         1,
		},
	}
}

func testConsole(t *testing.T) *ConsoleScreen {
	t.Helper()
	env := Env{Config: testConfig()}
	c, err := env.NewRun(experiment.Participant{ID: "P01", Age: 30, Sex: experiment.SexMale})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	return c
}

// startConsole runs the Init command and feeds its message back.
func startConsole(t *testing.T, c *ConsoleScreen) {
	t.Helper()
	cmd := c.Init()
	if cmd == nil {
		t.Fatal("expected Init command")
	}
	msg := cmd()
	started, ok := msg.(startedMsg)
	if !ok {
		t.Fatalf("Init produced %T, want startedMsg", msg)
	}
	if started.Err != nil {
		t.Fatalf("start: %v", started.Err)
	}
	c.Update(started)
}

func TestConsoleScreen_Title(t *testing.T) {
	c := testConsole(t)
	if c.Title() != "Console" {
		t.Errorf("Title = %q, want %q", c.Title(), "Console")
	}
}

func TestConsoleScreen_View_Starting(t *testing.T) {
	c := testConsole(t)
	view := c.View(80, 24)
	if view == "" {
		t.Error("expected non-empty view before start")
	}
}

func TestConsoleScreen_FirstTrialIsTraining(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	if !c.hasTrial {
		t.Fatal("expected a pending trial after start")
	}
	if c.trial.Phase != experiment.PhaseTraining {
		t.Errorf("phase = %s, want training", c.trial.Phase)
	}
	if c.trial.Intensity != 5 {
		t.Errorf("intensity = %v, want 5", c.trial.Intensity)
	}
	if c.session.Status() != experiment.StatusRunning {
		t.Errorf("status = %s, want running", c.session.Status())
	}
}

func TestConsoleScreen_ResponseLatency(t *testing.T) {
	c := testConsole(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }
	startConsole(t, c)

	now = base.Add(750 * time.Millisecond)
	c.Update(keyPress('y'))

	if len(c.recent) != 1 {
		t.Fatalf("recent = %d, want 1", len(c.recent))
	}
	rec := c.recent[0]
	if !rec.Correct {
		t.Error("expected correct record")
	}
	if rec.Latency != 750*time.Millisecond {
		t.Errorf("latency = %v, want 750ms", rec.Latency)
	}
	if c.trial.Phase != experiment.PhaseStaircase {
		t.Errorf("next phase = %s, want staircase", c.trial.Phase)
	}
}

func TestConsoleScreen_ArrowKeys(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	c.Update(specialKey(tea.KeyLeft))
	if len(c.recent) != 1 || c.recent[0].Correct {
		t.Fatalf("expected one incorrect record, got %+v", c.recent)
	}
}

func TestConsoleScreen_Timeout(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	c.Update(keyPress('t'))
	if len(c.recent) != 1 {
		t.Fatalf("recent = %d, want 1", len(c.recent))
	}
	rec := c.recent[0]
	if !rec.TimedOut || rec.Correct {
		t.Errorf("expected timed-out incorrect record, got %+v", rec)
	}
	if rec.LatencyMs() != -1 {
		t.Errorf("LatencyMs = %d, want -1", rec.LatencyMs())
	}
}

func TestConsoleScreen_IgnoresOtherKeys(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	_, cmd := c.Update(keyPress('x'))
	if cmd != nil {
		t.Error("expected no command for unbound key")
	}
	if len(c.recent) != 0 {
		t.Error("unbound key must not record a response")
	}
}

func TestConsoleScreen_FinishReplacesWithSummary(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	c.Update(keyPress('y')) // training
	c.Update(keyPress('y')) // staircase: step up
	_, cmd := c.Update(keyPress('n')) // step down, first reversal ends the run

	if cmd == nil {
		t.Fatal("expected a command once the staircase finishes")
	}
	msg := cmd()
	replace, ok := msg.(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("got %T, want router.ReplaceScreenMsg", msg)
	}
	if replace.Screen.Title() != "Run Summary" {
		t.Errorf("replacement title = %q, want %q", replace.Screen.Title(), "Run Summary")
	}
	if c.session.Status() != experiment.StatusFinished {
		t.Errorf("status = %s, want finished", c.session.Status())
	}
}

func TestConsoleScreen_AbortConfirm(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	// Press Esc to show abort dialog.
	var scr screen.Screen = c
	scr, _ = scr.Update(specialKey(tea.KeyEscape))
	cs := scr.(*ConsoleScreen)
	if !cs.confirmAbort {
		t.Fatal("expected abort confirmation dialog")
	}

	// Response keys are ignored while the dialog is up; n dismisses it.
	scr, _ = cs.Update(keyPress('n'))
	cs = scr.(*ConsoleScreen)
	if cs.confirmAbort {
		t.Error("expected abort confirmation to be dismissed")
	}
	if len(cs.recent) != 0 {
		t.Error("dismissing the dialog must not record a response")
	}
}

func TestConsoleScreen_AbortConfirm_Yes(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	var scr screen.Screen = c
	scr, _ = scr.Update(specialKey(tea.KeyEscape))
	_, cmd := scr.Update(keyPress('y'))

	if cmd == nil {
		t.Fatal("expected a command after abort confirmation")
	}
	if _, ok := cmd().(router.ReplaceScreenMsg); !ok {
		t.Error("expected summary replacement after abort")
	}
	if c.session.Status() != experiment.StatusAborted {
		t.Errorf("status = %s, want aborted", c.session.Status())
	}
}

func TestConsoleScreen_CapturesEscape(t *testing.T) {
	c := testConsole(t)
	if !c.CapturesEscape() {
		t.Error("console should capture Esc while running")
	}
	c.errMsg = "boom"
	if c.CapturesEscape() {
		t.Error("console should release Esc after an error")
	}
}

func TestConsoleScreen_ErrorPopsOnKey(t *testing.T) {
	c := testConsole(t)
	c.errMsg = "test error"

	view := c.View(80, 24)
	if view == "" {
		t.Error("expected non-empty view for error state")
	}
	_, cmd := c.Update(keyPress('x'))
	if cmd == nil {
		t.Fatal("expected pop command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected router.PopScreenMsg")
	}
}

func TestConsoleScreen_KeyHints(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	if got := len(c.KeyHints()); got != 4 {
		t.Errorf("KeyHints = %d, want 4", got)
	}
	c.confirmAbort = true
	if got := len(c.KeyHints()); got != 2 {
		t.Errorf("KeyHints while confirming = %d, want 2", got)
	}
}

func TestConsoleScreen_HeaderStatus(t *testing.T) {
	c := testConsole(t)
	status := c.HeaderStatus()
	if status == "" {
		t.Fatal("expected header status")
	}
	want := "P01MALE30"
	if len(status) < len(want) || status[:len(want)] != want {
		t.Errorf("HeaderStatus = %q, want prefix %q", status, want)
	}
}

func TestFormatValue(t *testing.T) {
	tests := map[float64]string{10: "10", 7.5: "7.5", 0.25: "0.25"}
	for v, want := range tests {
		if got := FormatValue(v); got != want {
			t.Errorf("FormatValue(%v) = %q, want %q", v, got, want)
		}
	}
}

func TestConsoleScreen_CloseAbortsRunningRun(t *testing.T) {
	c := testConsole(t)
	startConsole(t, c)

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.session.Status() != experiment.StatusAborted {
		t.Errorf("status = %s, want aborted", c.session.Status())
	}
}
