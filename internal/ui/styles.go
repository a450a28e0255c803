package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/gubarz/mdslides/internal/config"
)

// StyleManager holds the deck browser styles
type StyleManager struct {
	// List styles
	Title    lipgloss.Style
	Page     lipgloss.Style
	Class    lipgloss.Style
	Selected lipgloss.Style
	Cursor   lipgloss.Style
	Dim      lipgloss.Style

	// Preview styles
	PreviewTitle lipgloss.Style
	PreviewBody  lipgloss.Style
	PreviewNotes lipgloss.Style

	// Chrome styles
	Border  lipgloss.Style
	Divider lipgloss.Style
	Status  lipgloss.Style

	SelectedBg lipgloss.Color
}

// DefaultStyles returns a StyleManager with default styles
func DefaultStyles() *StyleManager {
	return &StyleManager{
		Title:        lipgloss.NewStyle().Bold(true),
		Page:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Class:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		Selected:     lipgloss.NewStyle().Background(lipgloss.Color("236")),
		Cursor:       lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Dim:          lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		PreviewTitle: lipgloss.NewStyle().Bold(true),
		PreviewBody:  lipgloss.NewStyle(),
		PreviewNotes: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		Border:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		Divider:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Status:       lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		SelectedBg:   lipgloss.Color("236"),
	}
}

// LoadFromConfig updates styles based on configuration
func (s *StyleManager) LoadFromConfig() {
	titleColor := parseANSIColor(config.GetColorTitle())
	cursorColor := parseANSIColor(config.GetColorCursor())
	selectedBg := parseANSIColor(config.GetColorSelected())
	dimColor := parseANSIColor(config.GetColorDim())
	borderColor := parseANSIColor(config.GetColorBorder())

	s.Title = lipgloss.NewStyle().Foreground(titleColor)
	s.Page = lipgloss.NewStyle().Foreground(dimColor)
	s.Class = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	s.Selected = lipgloss.NewStyle().Background(selectedBg)
	s.Cursor = lipgloss.NewStyle().Foreground(cursorColor)
	s.Dim = lipgloss.NewStyle().Foreground(dimColor)

	s.PreviewTitle = lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	s.PreviewNotes = lipgloss.NewStyle().Foreground(dimColor).Italic(true)

	s.Border = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderColor)
	s.Divider = lipgloss.NewStyle().Foreground(borderColor)
	s.Status = lipgloss.NewStyle().Foreground(cursorColor)
	s.SelectedBg = selectedBg
}

// WithSelection returns a copy of the given style with the selected background applied
func (s *StyleManager) WithSelection(style lipgloss.Style) lipgloss.Style {
	return style.Background(s.SelectedBg)
}

// parseANSIColor converts ANSI color codes to lipgloss colors
func parseANSIColor(code string) lipgloss.Color {
	ansiToLipgloss := map[string]string{
		"30": "0", "31": "1", "32": "2", "33": "3",
		"34": "4", "35": "5", "36": "6", "37": "7",
		"90": "8", "91": "9", "92": "10", "93": "11",
		"94": "12", "95": "13", "96": "14", "97": "15",
	}
	if mapped, ok := ansiToLipgloss[code]; ok {
		return lipgloss.Color(mapped)
	}
	return lipgloss.Color(code)
}

var styles = DefaultStyles()

// RefreshStyles updates the global styles from config
func RefreshStyles() {
	styles.LoadFromConfig()
}
