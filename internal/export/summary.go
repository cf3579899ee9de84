package export

import (
	"fmt"
	"strings"

	"github.com/ZehenForever/dpsboard/internal/ranking"
)

const summaryRows = 10

var medals = []string{"🥇", "🥈", "🥉"}

// Summary renders a short chat-friendly ranking.
func Summary(rows []ranking.Row, runtimeSec float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Combat Time**: %s\n", Clock(runtimeSec))
	fmt.Fprintf(&b, "**Total Damage**: %s\n\n", Number(ranking.TotalDamage(rows)))
	b.WriteString("**DPS Ranking**\n")

	if len(rows) > summaryRows {
		rows = rows[:summaryRows]
	}
	for i, r := range rows {
		fmt.Fprintf(&b, "%s **%s** - %s DPS (%.1f%%)\n", Medal(i), r.JobName, Number(r.DPS), r.ShareOfTotal*100)
	}
	return b.String()
}

// Medal is the rank marker for a zero-based position.
func Medal(idx int) string {
	if idx >= 0 && idx < len(medals) {
		return medals[idx]
	}
	return fmt.Sprintf("%d.", idx+1)
}
