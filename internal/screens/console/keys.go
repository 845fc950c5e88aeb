package console

import (
	"charm.land/bubbles/v2/key"

	"github.com/abhisek/stairwise/internal/ui/layout"
)

// keyMap holds the operator key bindings.
type keyMap struct {
	Correct   key.Binding
	Incorrect key.Binding
	Timeout   key.Binding
	Abort     key.Binding

	ConfirmAbort key.Binding
	CancelAbort  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Correct: key.NewBinding(
			key.WithKeys("y", "right"),
			key.WithHelp("y/→", "Correct"),
		),
		Incorrect: key.NewBinding(
			key.WithKeys("n", "left"),
			key.WithHelp("n/←", "Incorrect"),
		),
		Timeout: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Timeout"),
		),
		Abort: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "Abort"),
		),
		ConfirmAbort: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "Abort run"),
		),
		CancelAbort: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "Keep going"),
		),
	}
}

func hints(bindings ...key.Binding) []layout.KeyHint {
	out := make([]layout.KeyHint, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, layout.KeyHint{Key: h.Key, Description: h.Desc})
	}
	return out
}
