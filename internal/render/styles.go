// Package render prints command results to the terminal.
package render

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the terminal styling definitions.
type Styles struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Label   lipgloss.Style
	Path    lipgloss.Style
	Answer  lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style

	// Relevance tiers
	RelevanceHigh   lipgloss.Style // >= 70%
	RelevanceMedium lipgloss.Style // 40-70%
	RelevanceLow    lipgloss.Style // < 40%
}

// NewStyles creates the style set using the given renderer. A renderer
// writing to a non-terminal emits plain text.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),
		Section: r.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("213")),
		Label: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75")),
		Path: r.NewStyle().
			Foreground(lipgloss.Color("244")),
		Answer: r.NewStyle().
			Foreground(lipgloss.Color("252")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1),

		Success: r.NewStyle().Foreground(lipgloss.Color("76")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("245")),

		RelevanceHigh:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("76")),
		RelevanceMedium: r.NewStyle().Foreground(lipgloss.Color("214")),
		RelevanceLow:    r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (s Styles) relevance(pct float64) lipgloss.Style {
	switch {
	case pct >= 70:
		return s.RelevanceHigh
	case pct >= 40:
		return s.RelevanceMedium
	default:
		return s.RelevanceLow
	}
}
