package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent = lipgloss.Color("39")
	ColorSelf   = lipgloss.Color("214")
	ColorMuted  = lipgloss.Color("244")
	ColorWarn   = lipgloss.Color("196")
	ColorGood   = lipgloss.Color("42")
	ColorBorder = lipgloss.Color("240")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	selfStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorSelf)
	noticeStyle = lipgloss.NewStyle().Foreground(ColorGood)
	errStyle    = lipgloss.NewStyle().Foreground(ColorWarn)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
	selectedCardStyle = cardStyle.BorderForeground(ColorAccent)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 1)

	// one bar color per rank, cycled
	barPalette = []lipgloss.Color{"39", "214", "42", "170", "208", "33", "160", "226", "99", "36", "202", "250"}
)

func barStyle(i int) lipgloss.Style {
	c := barPalette[i%len(barPalette)]
	return lipgloss.NewStyle().Foreground(c).Background(c)
}
