package ui

import "github.com/charmbracelet/lipgloss"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorGood   = 114 // green
	colorWarn   = 180 // amber
	colorBad    = 204 // red
)

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(colorAccent))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(colorCmd))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(colorMuted))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(colorGood))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(colorWarn))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(colorBad))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

var noColor bool

func render(st lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return st.Render(s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(commandStyle, s) }

// RenderHeader returns s in bold, for table headers.
func RenderHeader(s string) string { return render(headerStyle, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return render(badStyle, s) }

// RenderFlag renders a boolean record flag such as "active" or "verified":
// on is green, off is amber.
func RenderFlag(on bool, onLabel, offLabel string) string {
	if on {
		return render(goodStyle, onLabel)
	}
	return render(warnStyle, offLabel)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
