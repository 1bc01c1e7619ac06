package ui

import (
	"math"
	"strings"

	"github.com/ngmaloney/tide-terminal/internal/report"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws heights as a single row of block characters, width
// columns wide. Each column shows the mean of the samples it covers.
func sparkline(points []report.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}
	if width > len(points) {
		width = len(points)
	}

	cols := make([]float64, width)
	for c := range cols {
		lo := c * len(points) / width
		hi := (c + 1) * len(points) / width
		var sum float64
		for _, p := range points[lo:hi] {
			sum += p.Height
		}
		cols[c] = sum / float64(hi-lo)
	}

	minH, maxH := math.Inf(1), math.Inf(-1)
	for _, h := range cols {
		minH = math.Min(minH, h)
		maxH = math.Max(maxH, h)
	}

	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, h := range cols {
		idx := 0
		if maxH > minH {
			idx = int(math.Round((h - minH) / (maxH - minH) * float64(top)))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
