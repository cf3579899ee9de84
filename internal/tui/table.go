package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ZehenForever/dpsboard/internal/export"
	"github.com/ZehenForever/dpsboard/internal/ranking"
)

var tableHeaders = []string{"#", "Name", "DPS", "Damage", "Share", "Crit", "Add Hit", "Atk+", "Dmg+"}

func renderTable(rows []ranking.Row, selected int) string {
	if len(rows) == 0 {
		return mutedStyle.Render("waiting for combat data...")
	}
	data := make([][]string, 0, len(rows))
	for i, r := range rows {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.JobName,
			export.Number(r.DPS),
			export.Number(r.TotalDamage),
			fmt.Sprintf("%.1f%%", r.ShareOfTotal*100),
			fmt.Sprintf("%.2f%%", r.CritRate),
			fmt.Sprintf("%.2f%%", r.AddHitRate),
			fmt.Sprintf("%.2f", r.AvgAtkBuff),
			fmt.Sprintf("%.2f", r.AvgDmgBuff),
		})
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(tableHeaders...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return cell.Bold(true).Foreground(ColorAccent)
			case row == selected:
				return cell.Reverse(true)
			case row >= 0 && row < len(rows) && rows[row].IsSelf:
				return cell.Foreground(ColorSelf)
			}
			return cell
		}).
		Render()
}
