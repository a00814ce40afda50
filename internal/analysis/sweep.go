package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// SweepPoint is the order-parameter summary for one coupling value.
type SweepPoint struct {
	K     float64
	MeanR float64
	StdR  float64
	// Values are the distinct r levels visited, quantized to 1e-3.
	Values []float64
}

// RunFunc runs a fresh simulation at coupling k and returns its r(t) after
// the transient.
type RunFunc func(k float64) ([]float64, error)

// SweepCoupling evaluates run at steps evenly spaced couplings in [kMin, kMax].
func SweepCoupling(kMin, kMax float64, steps int, run RunFunc) ([]SweepPoint, error) {
	if steps < 2 {
		steps = 2 // Prevent division by zero
	}
	stride := (kMax - kMin) / float64(steps-1)

	points := make([]SweepPoint, 0, steps)
	for i := 0; i < steps; i++ {
		k := kMin + float64(i)*stride
		series, err := run(k)
		if err != nil {
			return points, fmt.Errorf("sweep at K=%g: %w", k, err)
		}

		p := SweepPoint{K: k}
		if len(series) > 0 {
			p.MeanR, p.StdR = stat.MeanStdDev(series, nil)
			if len(series) == 1 {
				p.StdR = 0
			}
		}
		seen := make(map[int]bool)
		for _, r := range series {
			key := int(r * 1000)
			if !seen[key] {
				seen[key] = true
				p.Values = append(p.Values, r)
			}
		}
		points = append(points, p)
	}
	return points, nil
}

// CriticalCoupling returns the first swept K whose mean r reaches threshold.
func CriticalCoupling(points []SweepPoint, threshold float64) (float64, bool) {
	for _, p := range points {
		if p.MeanR >= threshold {
			return p.K, true
		}
	}
	return 0, false
}

// SweepToASCII plots the visited r levels against K, r in [0, 1] upward.
func SweepToASCII(points []SweepPoint, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range points {
		col := i * width / len(points)
		if col >= width {
			col = width - 1
		}
		for _, v := range p.Values {
			row := height - 1 - int(v*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '•'
			}
		}
	}

	var b strings.Builder
	for _, row := range canvas {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}
