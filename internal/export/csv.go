package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ZehenForever/dpsboard/internal/ranking"
)

var csvHeader = []string{"Rank", "Name", "DPS", "Total Damage", "Damage Share", "Critical Rate", "Add Hit Rate"}

// WriteCSV writes one row per ranked entity in rank order.
func WriteCSV(w io.Writer, rows []ranking.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, r := range rows {
		rec := []string{
			strconv.Itoa(i + 1),
			r.JobName,
			strconv.FormatInt(r.DPS, 10),
			strconv.FormatInt(r.TotalDamage, 10),
			fmt.Sprintf("%.1f%%", r.ShareOfTotal*100),
			fmt.Sprintf("%.2f%%", r.CritRate),
			fmt.Sprintf("%.2f%%", r.AddHitRate),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func CSVFileName(now time.Time) string {
	return "damage_report_" + now.Format("2006-01-02T15-04-05") + ".csv"
}

// SaveCSV writes the ranking into dir and returns the file path.
func SaveCSV(dir string, rows []ranking.Row, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(dir, CSVFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
