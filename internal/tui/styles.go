package tui

import "github.com/charmbracelet/lipgloss"

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	threadStyle = lipgloss.NewStyle().
			Padding(0, 1)

	threadSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	unreadBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	counterpartMsgStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	vendorMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	provisionalMsgStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Italic(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorBannerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("124")).
				Padding(0, 1)

	typingStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("244"))

	paneBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238"))
)

func connStateLabel(state string) string {
	switch state {
	case "connected":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("● live")
	case "connecting", "reconnecting":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("● reconnecting")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("● offline")
	}
}
