package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZehenForever/dpsboard/internal/export"
	"github.com/ZehenForever/dpsboard/internal/ranking"
)

const shareChartHeight = 6

func renderCards(rows []ranking.Row, selected, width int) string {
	if len(rows) == 0 {
		return mutedStyle.Render("waiting for combat data...")
	}
	cardWidth := 34
	perLine := max(1, width/(cardWidth+2))

	cards := make([]string, 0, len(rows))
	for i, r := range rows {
		name := r.JobName
		if r.IsSelf {
			name = selfStyle.Render(name + " (you)")
		}
		body := strings.Join([]string{
			fmt.Sprintf("#%d %s", i+1, name),
			fmt.Sprintf("%s DPS  %s", titleStyle.Render(export.Number(r.DPS)), mutedStyle.Render(fmt.Sprintf("%.1f%%", r.ShareOfTotal*100))),
			fmt.Sprintf("dmg %s", export.Number(r.TotalDamage)),
			mutedStyle.Render(fmt.Sprintf("crit %.2f%%  add %.2f%%", r.CritRate, r.AddHitRate)),
			mutedStyle.Render(fmt.Sprintf("atk+ %.2f  dmg+ %.2f", r.AvgAtkBuff, r.AvgDmgBuff)),
		}, "\n")
		style := cardStyle
		if i == selected {
			style = selectedCardStyle
		}
		cards = append(cards, style.Width(cardWidth).Render(body))
	}

	var lines []string
	for start := 0; start < len(cards); start += perLine {
		end := min(start+perLine, len(cards))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cards[start:end]...))
	}
	lines = append(lines, renderShareBars(rows, width))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderShareBars draws one bar per ranked entity, scaled to its damage share.
func renderShareBars(rows []ranking.Row, width int) string {
	if len(rows) == 0 {
		return ""
	}
	w := min(max(len(rows)*3, 20), max(width, 20))
	bc := barchart.New(w, shareChartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(2),
		barchart.WithNoAxis(),
	)
	for i, r := range rows {
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: r.JobName, Value: r.ShareOfTotal * 100, Style: barStyle(i)},
			},
		})
	}
	bc.Draw()

	legend := make([]string, 0, len(rows))
	for i, r := range rows {
		legend = append(legend, lipgloss.NewStyle().Foreground(barPalette[i%len(barPalette)]).Render("■")+" "+r.JobName)
	}
	return lipgloss.JoinVertical(lipgloss.Left, bc.View(), mutedStyle.Render(strings.Join(legend, "  ")))
}
