package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pilgrimwatch/internal/telemetry"
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the last width values scaled between their min and max.
func sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}

func intsToFloats(in []int) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// bar renders n as a horizontal bar scaled against limit.
func bar(n, limit, width int) string {
	if limit <= 0 || width <= 0 || n <= 0 {
		return ""
	}
	w := n * width / limit
	if w == 0 {
		w = 1
	}
	return strings.Repeat("█", w)
}

func levelStyle(l telemetry.AlertLevel) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(l.Color()))
}
