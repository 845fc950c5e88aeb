// Package participant implements the form that collects participant details
// before a run.
package participant

import (
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/stairwise/internal/experiment"
	"github.com/abhisek/stairwise/internal/router"
	"github.com/abhisek/stairwise/internal/screen"
	"github.com/abhisek/stairwise/internal/screens/console"
	"github.com/abhisek/stairwise/internal/ui/components"
	"github.com/abhisek/stairwise/internal/ui/layout"
	"github.com/abhisek/stairwise/internal/ui/theme"
)

const (
	fieldID = iota
	fieldAge
	fieldSex
	fieldCount
)

// FormScreen asks for participant ID, age and sex, then starts a run.
type FormScreen struct {
	env    console.Env
	inputs [fieldCount]components.TextInput
	focus  int
	errMsg string
}

var _ screen.Screen = (*FormScreen)(nil)
var _ screen.KeyHintProvider = (*FormScreen)(nil)

// New creates a form prefilled from defaults.
func New(env console.Env, defaults experiment.Participant) *FormScreen {
	f := &FormScreen{env: env}
	f.inputs[fieldID] = components.NewTextInput("Participant", "e.g. P07", false, 32)
	f.inputs[fieldAge] = components.NewTextInput("Age", "years", true, 3)
	f.inputs[fieldSex] = components.NewTextInput("Sex", "m / f / o", false, 6)

	f.inputs[fieldID].SetValue(defaults.ID)
	if defaults.Age > 0 {
		f.inputs[fieldAge].SetValue(strconv.Itoa(defaults.Age))
	}
	if defaults.Sex != "" {
		f.inputs[fieldSex].SetValue(strings.ToLower(string(defaults.Sex)[:1]))
	}
	return f
}

func (f *FormScreen) Init() tea.Cmd {
	return f.inputs[f.focus].Focus()
}

func (f *FormScreen) Title() string {
	return "New Run"
}

func (f *FormScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Start run"},
		{Key: "Esc", Description: "Cancel"},
	}
}

func (f *FormScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "tab", "down":
			return f, f.setFocus((f.focus + 1) % fieldCount)
		case "shift+tab", "up":
			return f, f.setFocus((f.focus + fieldCount - 1) % fieldCount)
		case "enter":
			return f, f.submit()
		case "esc":
			// Only reached when the form is the root screen; popping it quits.
			return f, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *FormScreen) setFocus(i int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = i
	return f.inputs[f.focus].Focus()
}

// Participant parses and validates the form values.
func (f *FormScreen) Participant() (experiment.Participant, error) {
	age, err := strconv.Atoi(strings.TrimSpace(f.inputs[fieldAge].Value()))
	if err != nil {
		return experiment.Participant{}, fmt.Errorf("age must be a whole number")
	}
	sex, err := experiment.ParseSex(f.inputs[fieldSex].Value())
	if err != nil {
		return experiment.Participant{}, err
	}
	p := experiment.Participant{
		ID:  strings.TrimSpace(f.inputs[fieldID].Value()),
		Age: age,
		Sex: sex,
	}
	if err := p.Validate(); err != nil {
		return experiment.Participant{}, err
	}
	return p, nil
}

// submit validates the form and swaps it for the run console.
func (f *FormScreen) submit() tea.Cmd {
	p, err := f.Participant()
	if err != nil {
		f.errMsg = err.Error()
		return nil
	}
	c, err := f.env.NewRun(p)
	if err != nil {
		f.errMsg = err.Error()
		return nil
	}
	f.errMsg = ""
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: c}
	}
}

func (f *FormScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var b strings.Builder
	b.WriteString(theme.Subtitle.Width(cw).Render("Enter participant details"))
	b.WriteString("\n\n")
	for i := range f.inputs {
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n\n")
	}

	cfg := f.env.Config
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%d training trials, then %d-up/%d-down to %d reversals",
		len(cfg.TrainingBlock()), cfg.Staircase.NUp, cfg.Staircase.NDown, cfg.Staircase.MaxReversals)))

	if f.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render(f.errMsg))
	}

	return "\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, components.Card(b.String(), cw))
}
