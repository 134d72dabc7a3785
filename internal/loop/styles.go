package loop

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color constants
const (
	ColorPrimary = "39"  // Blue
	ColorSuccess = "42"  // Green
	ColorWarning = "214" // Orange
	ColorError   = "196" // Red
	ColorMuted   = "245" // Gray
)

// Styles contains the styles used for loop output.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style

	banner lipgloss.Style
}

// DefaultStyles returns the default loop styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary)),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorSuccess)),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorWarning)),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorError)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		banner: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()),
	}
}

// Banner renders the final outcome banner for a stop reason.
func (s Styles) Banner(reason StopReason, remaining int) string {
	var color, text string
	switch reason {
	case StopComplete:
		color, text = ColorSuccess, "All stories complete"
	case StopUserRequested:
		color, text = ColorWarning, fmt.Sprintf("Stopped by user (%d stories remaining)", remaining)
	case StopRateLimit:
		color, text = ColorError, fmt.Sprintf("Gave up waiting on rate limits (%d stories remaining)", remaining)
	default:
		color, text = ColorError, fmt.Sprintf("Max iterations reached (%d stories remaining)", remaining)
	}
	return s.banner.
		BorderForeground(lipgloss.Color(color)).
		Foreground(lipgloss.Color(color)).
		Render(text)
}
