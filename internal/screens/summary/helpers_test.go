package summary

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// containsText reports whether the rendered view contains s once styling
// escapes are removed.
func containsText(view, s string) bool {
	return strings.Contains(ansi.Strip(view), s)
}
