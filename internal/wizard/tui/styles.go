package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/robowifi/internal/version"
)

const (
	AppName   = "ROBOT WI-FI SETUP"
	GitHubURL = "github.com/muurk/robowifi"
)

// Layout limits
const (
	MinTerminalWidth = 72
	MaxContentWidth  = 120

	// frame is the width taken by the outer border on both sides
	frame = 4
	// minModalWidth keeps the credential form usable on narrow terminals
	minModalWidth = 40
)

// Palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4")
	SecondaryColor = lipgloss.Color("#43BF6D")
	WarningColor   = lipgloss.Color("#FFA500")
	ErrorColor     = lipgloss.Color("#FF0000")
	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
	BorderColor    = PrimaryColor
	HighlightColor = SecondaryColor
)

var (
	TitleStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true).Padding(1, 0).MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().Foreground(SubtleColor).Italic(true)

	// Network and robot rows
	MenuItemStyle         = lipgloss.NewStyle().PaddingLeft(4).Foreground(TextColor)
	SelectedMenuItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(HighlightColor).Bold(true)
	ActiveNetworkStyle    = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	SpinnerStyle      = lipgloss.NewStyle().Foreground(PrimaryColor)
	FocusedInputStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	SuccessBoxStyle   = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
)

func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

func RenderSubtitle(text string) string {
	return SubtitleStyle.Render(text)
}

func RenderError(text string) string {
	return ErrorStyle.Render("✗ " + text)
}

// RenderApplicationContainer frames a screen: app name and version on top,
// the screen's key help at the bottom, all inside a border that fills the
// terminal. Every screen's View goes through it.
func RenderApplicationContainer(content, footerText string, terminalWidth, terminalHeight int) string {
	inner := terminalWidth - frame

	title := lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(AppName + " v" + version.Version)
	link := lipgloss.NewStyle().Foreground(SubtleColor).Render(GitHubURL)
	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(inner).
		Padding(0, 1).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, title, " ", link))

	footer := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(inner).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Foreground(SubtleColor).Render(footerText))

	// Screens manage their own margins inside the content area
	body := lipgloss.NewStyle().Width(inner).Render(content)

	framed := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer))

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, framed)
}

// SafeModalWidth caps requestedWidth so a modal never overflows the terminal
func SafeModalWidth(requestedWidth, terminalWidth int) int {
	limit := terminalWidth - frame
	if limit < minModalWidth {
		limit = minModalWidth
	}
	if requestedWidth < limit {
		return requestedWidth
	}
	return limit
}

// RenderModal centers modal content on a shaded backdrop. The screen behind
// the modal is not drawn.
func RenderModal(background, modalContent string, terminalWidth, terminalHeight int) string {
	return lipgloss.Place(
		terminalWidth,
		terminalHeight,
		lipgloss.Center,
		lipgloss.Center,
		modalContent,
		lipgloss.WithWhitespaceChars("░"),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("240")),
	)
}
