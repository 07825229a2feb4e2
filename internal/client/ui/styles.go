// Package ui holds the lipgloss styles and text helpers shared by the CLI
// and the TUI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Terminal palette indices, so the user's color scheme still applies.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "10"}
	ColorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "9"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "5", Dark: "13"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "6", Dark: "14"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "11"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	ColorDefault = lipgloss.AdaptiveColor{Light: "0", Dark: "7"}

	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StylePrimary lipgloss.Style
	StyleInfo    lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleAccent  lipgloss.Style

	StyleTitle       lipgloss.Style
	StyleBold        lipgloss.Style
	StyleTableHeader lipgloss.Style
	StyleTableRow    lipgloss.Style
	StyleTableRowAlt lipgloss.Style
	StyleTableBorder lipgloss.Style

	// TUI components
	StyleTypeBadge lipgloss.Style
	StyleTagChip   lipgloss.Style
	StyleSelected  lipgloss.Style
	StylePane      lipgloss.Style
	StyleAlert     lipgloss.Style

	IconSuccess = "✔"
	IconError   = "✘"
	IconInfo    = "ℹ"
	IconWarning = "⚠"
	IconImage   = "🖼"
	IconAudio   = "♪"
	IconFile    = "📎"
)

func init() {
	SetTheme("dark")
}

// SetTheme applies "light" or "dark" and rebuilds every style.
func SetTheme(theme string) {
	lipgloss.SetHasDarkBackground(theme != "light")

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleAccent = lipgloss.NewStyle().Foreground(ColorAccent)

	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true)
	StyleBold = lipgloss.NewStyle().Bold(true)

	StyleTableHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Align(lipgloss.Left)
	StyleTableRow = lipgloss.NewStyle().Foreground(ColorDefault)
	StyleTableRowAlt = lipgloss.NewStyle().Foreground(ColorDefault).Faint(true)
	StyleTableBorder = lipgloss.NewStyle().Foreground(ColorMuted)

	StyleTypeBadge = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	StyleTagChip = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleSelected = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StylePane = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorMuted).Padding(0, 1)
	StyleAlert = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(ColorError).Padding(0, 2)
}

func FormatSuccess(msg string) string {
	return StyleSuccess.Render(IconSuccess + " " + msg)
}

func FormatError(msg string) string {
	return StyleError.Render(IconError + " " + msg)
}

func FormatInfo(msg string) string {
	return StyleInfo.Render(IconInfo + " " + msg)
}

func FormatWarning(msg string) string {
	return StyleWarning.Render(IconWarning + " " + msg)
}

func FormatTitle(title string) string {
	return StyleTitle.Render(title)
}

func FormatMuted(text string) string {
	return StyleMuted.Render(text)
}

// KindIcon returns the marker shown next to a media attachment.
func KindIcon(kind string) string {
	switch kind {
	case "image":
		return IconImage
	case "audio":
		return IconAudio
	default:
		return IconFile
	}
}
