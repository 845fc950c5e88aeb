package layout

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
)

func TestRenderHeaderContainsParts(t *testing.T) {
	h := RenderHeader("Console", "rev 3/8", 80)
	assert.Contains(t, h, "Stairwise")
	assert.Contains(t, h, "Console")
	assert.Contains(t, h, "rev 3/8")
	assert.Equal(t, 3, lipgloss.Height(h))
}

func TestRenderFooterJoinsHints(t *testing.T) {
	f := RenderFooter([]KeyHint{{Key: "y", Description: "Correct"}, {Key: "n", Description: "Incorrect"}}, 80)
	assert.Contains(t, f, "Correct")
	assert.Contains(t, f, "Incorrect")
}

func TestRenderFrameFillsHeight(t *testing.T) {
	header := RenderHeader("Home", "", 80)
	footer := RenderFooter(nil, 80)
	frame := RenderFrame(header, "body", footer, 80, 24)
	assert.Equal(t, 24, lipgloss.Height(frame))
	assert.True(t, strings.Contains(frame, "body"))
}

func TestIsTooSmall(t *testing.T) {
	assert.True(t, IsTooSmall(MinWidth-1, MinHeight))
	assert.True(t, IsTooSmall(MinWidth, MinHeight-1))
	assert.False(t, IsTooSmall(MinWidth, MinHeight))
}
