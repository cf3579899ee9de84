package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ZehenForever/dpsboard/internal/export"
	"github.com/ZehenForever/dpsboard/internal/ranking"
)

const (
	detailSkillRows = 10
	detailBuffRows  = 12
)

func skillLabel(s string) string {
	if s == "" {
		return "All skills"
	}
	return s
}

func renderDetail(d ranking.Detail, width int) string {
	var b strings.Builder
	r := d.Row
	name := r.JobName
	if r.IsSelf {
		name = selfStyle.Render(name + " (you)")
	}
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render("Details"), name)
	fmt.Fprintf(&b, "target %d  time %s\n\n", d.TargetID, export.Clock(d.Runtime))

	fmt.Fprintf(&b, "damage %s  dps %s  share %.1f%%\n", export.Number(r.TotalDamage), export.Number(r.DPS), r.ShareOfTotal*100)
	fmt.Fprintf(&b, "hits normal %d  special %d  dot %d\n", d.Normal.TotalCount, d.Special.TotalCount, d.Dot.TotalCount)
	fmt.Fprintf(&b, "crit %.2f%%  add %.2f%%  power %.2f%%  fast %.2f%%\n", r.CritRate, r.AddHitRate, d.PowerRate, d.FastRate)
	fmt.Fprintf(&b, "avg atk+ %.2f  avg dmg+ %.2f\n\n", r.AvgAtkBuff, r.AvgDmgBuff)

	b.WriteString(titleStyle.Render("Skills") + "\n")
	if len(d.Skills) == 0 {
		b.WriteString(mutedStyle.Render("no per-skill data") + "\n")
	}
	for i, s := range d.Skills {
		if i == detailSkillRows {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("... %d more", len(d.Skills)-i)) + "\n")
			break
		}
		line := fmt.Sprintf("%-22s %12s %5.1f%%  hits %-5d crit %6.2f%%  add %6.2f%%",
			truncate(s.Skill, 22), export.Number(s.TotalDamage), s.Share*100, s.Hits, s.CritRate, s.AddHitRate)
		if s.Skill == d.Skill {
			line = selfStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "\n%s %s\n", titleStyle.Render("Buffs:"), skillLabel(d.Skill))
	if len(d.Buffs) == 0 {
		b.WriteString(mutedStyle.Render("no buffs recorded") + "\n")
	}
	for i, bf := range d.Buffs {
		if i == detailBuffRows {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("... %d more", len(d.Buffs)-i)) + "\n")
			break
		}
		fmt.Fprintf(&b, "%-22s %-8s %6.2f%%  avg %5.2f  max %d\n",
			truncate(bf.Name, 22), bf.TypeName, bf.Uptime, bf.AvgStack, bf.MaxStack)
	}

	w := min(max(width-4, 40), 96)
	return modalStyle.Width(w).Render(strings.TrimRight(b.String(), "\n"))
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) > n-1 {
		r = r[:n-1]
	}
	return string(r) + "…"
}
