// Package styles provides the colour theme used by recon's reports.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette for reports.
type Theme struct {
	// Primary is the main accent colour, used for headings.
	Primary lipgloss.Color

	// Secondary marks identifiers such as tenant and document IDs.
	Secondary lipgloss.Color

	// Muted is for less important text.
	Muted lipgloss.Color

	// Success marks survivors and completed work.
	Success lipgloss.Color

	// Warning marks records slated for change.
	Warning lipgloss.Color

	// Error marks broken references and failures.
	Error lipgloss.Color

	// Border is the border colour of summary boxes.
	Border lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Muted:     lipgloss.Color("#6C7086"), // Medium gray
		Success:   lipgloss.Color("#A6E3A1"), // Green
		Warning:   lipgloss.Color("#F9E2AF"), // Yellow
		Error:     lipgloss.Color("#F38BA8"), // Red
		Border:    lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	// Title style for report headers.
	Title lipgloss.Style

	// Subtitle style for group headers.
	Subtitle lipgloss.Style

	// ID style for document and tenant identifiers.
	ID lipgloss.Style

	// Muted style for reasons and hints.
	Muted lipgloss.Style

	// Success style for survivors and totals.
	Success lipgloss.Style

	// Warning style for pending deletions.
	Warning lipgloss.Style

	// Error style for broken references.
	Error lipgloss.Style

	// Box style for summary panels.
	Box lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		ID: lipgloss.NewStyle().
			Foreground(theme.Secondary),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
