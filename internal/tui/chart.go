package tui

import (
	"github.com/charmbracelet/lipgloss"
	plot "github.com/chriskim06/drawille-go"

	"github.com/ZehenForever/dpsboard/internal/series"
)

// trendChart wraps the braille canvas used for the DPS history lines.
type trendChart struct {
	canvas *plot.Canvas
	data   [][]float64
}

func newTrendChart(w, h int) *trendChart {
	p := plot.NewCanvas(max(w, 10), max(h, 4))
	p.ShowAxis = false
	return &trendChart{canvas: &p}
}

// Fill loads one line per displayed entity plus the average line last. All
// lines are right-aligned so the newest samples share a column.
func (c *trendChart) Fill(lines []series.Series, avg []int64, selectedID int64) {
	n := len(avg)
	for _, s := range lines {
		n = max(n, len(s.Values))
	}
	if n < 2 {
		c.data = nil
		return
	}

	var highlight, dim, mean plot.Color
	if lipgloss.DefaultRenderer().HasDarkBackground() {
		highlight, dim, mean = plot.Red, plot.DimGray, plot.LightGray
	} else {
		highlight, dim, mean = plot.Black, plot.LightGray, plot.DimGray
	}

	data := make([][]float64, 0, len(lines)+1)
	colors := make([]plot.Color, 0, len(lines)+1)
	for _, s := range lines {
		data = append(data, padLeft(s.Values, n))
		if s.EntityID == selectedID {
			colors = append(colors, highlight)
		} else {
			colors = append(colors, dim)
		}
	}
	data = append(data, padLeft(avg, n))
	colors = append(colors, mean)

	c.canvas.NumDataPoints = n
	c.canvas.LineColors = colors
	c.data = data
	c.canvas.Fill(data)
}

func (c *trendChart) String() string {
	if len(c.data) == 0 {
		return mutedStyle.Render("collecting dps samples...")
	}
	return c.canvas.String()
}

func padLeft(values []int64, n int) []float64 {
	out := make([]float64, n)
	off := n - len(values)
	for i, v := range values {
		out[off+i] = float64(v)
	}
	return out
}
