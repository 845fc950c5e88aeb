package screen

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/stairwise/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider is an optional interface for screens that show run
// progress on the right side of the header.
type StatusProvider interface {
	HeaderStatus() string
}

// CaptureEscape is an optional interface for screens that handle Esc
// themselves instead of letting the app pop them.
type CaptureEscape interface {
	CapturesEscape() bool
}

// Closer is an optional interface for screens that hold resources which
// must be released when the program exits while they are active.
type Closer interface {
	Close(ctx context.Context) error
}
