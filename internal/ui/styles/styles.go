// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor   = lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#CCCCCC"}
	TextSecondaryColor = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	TextMutedColor     = lipgloss.AdaptiveColor{Light: "#8C8C8C", Dark: "#696969"} // hints, footers

	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	// Notification severities
	SuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	InfoColor    = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}
	WarningColor = lipgloss.AdaptiveColor{Light: "#E0A800", Dark: "#FECA57"}
	DangerColor  = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// ORCID brand green marks the active section tab.
	AccentColor = lipgloss.AdaptiveColor{Light: "#7FAA26", Dark: "#A6CE39"}

	ButtonTextColor        = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}
	ButtonPrimaryBgColor   = lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#1A5276"}
	ButtonSecondaryBgColor = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#2D3436"}
	ButtonDangerBgColor    = lipgloss.AdaptiveColor{Light: "#922B21", Dark: "#922B21"}
	ButtonFocusBgColor     = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#3498DB"}
	ButtonDangerFocusColor = lipgloss.AdaptiveColor{Light: "#E74C3C", Dark: "#E74C3C"}

	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)

	TabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(TextMutedColor)
	ActiveTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(AccentColor).Underline(true)

	HeaderStyle      = lipgloss.NewStyle().Bold(true).Foreground(TextSecondaryColor)
	RowStyle         = lipgloss.NewStyle().Foreground(TextPrimaryColor)
	SelectedRowStyle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor).Background(lipgloss.AdaptiveColor{Light: "#E8F0FE", Dark: "#2D3436"})
	LockedRowStyle   = lipgloss.NewStyle().Foreground(TextMutedColor)
	PlaceholderStyle = lipgloss.NewStyle().Italic(true).Foreground(TextMutedColor)

	HelpStyle = lipgloss.NewStyle().Foreground(TextMutedColor).Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor).Padding(0, 1)

	baseButtonStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(ButtonTextColor)

	PrimaryButtonStyle        = baseButtonStyle.Background(ButtonPrimaryBgColor)
	PrimaryButtonFocusedStyle = baseButtonStyle.Background(ButtonFocusBgColor).Underline(true)
	SecondaryButtonStyle      = baseButtonStyle.Background(ButtonSecondaryBgColor)
	SecondaryFocusedStyle     = baseButtonStyle.Background(ButtonFocusBgColor).Underline(true)
	DangerButtonStyle         = baseButtonStyle.Background(ButtonDangerBgColor)
	DangerButtonFocusedStyle  = baseButtonStyle.Background(ButtonDangerFocusColor).Underline(true)

	BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(BorderDefaultColor)
)

// ApplyTheme overrides the accent and muted colors. Empty strings keep
// the defaults.
func ApplyTheme(accent, muted string) {
	if accent != "" {
		AccentColor = lipgloss.AdaptiveColor{Light: accent, Dark: accent}
		SelectionIndicatorStyle = SelectionIndicatorStyle.Foreground(AccentColor)
		ActiveTabStyle = ActiveTabStyle.Foreground(AccentColor)
	}
	if muted != "" {
		TextMutedColor = lipgloss.AdaptiveColor{Light: muted, Dark: muted}
		BorderDefaultColor = TextMutedColor
		TabStyle = TabStyle.Foreground(TextMutedColor)
		HelpStyle = HelpStyle.Foreground(TextMutedColor)
		LockedRowStyle = LockedRowStyle.Foreground(TextMutedColor)
		PlaceholderStyle = PlaceholderStyle.Foreground(TextMutedColor)
	}
}
