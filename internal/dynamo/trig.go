package dynamo

import "math"

// TrigTable is a sin/cos lookup over one turn with linear interpolation.
// It is used where a phase only has to be drawn, never integrated.
type TrigTable struct {
	sin []float64
	cos []float64
	n   int
}

// DefaultTrigTable has 4096 entries, about 1.5e-3 rad between samples.
var DefaultTrigTable = NewTrigTable(4096)

func NewTrigTable(n int) *TrigTable {
	if n < 4 {
		n = 4
	}
	t := &TrigTable{
		sin: make([]float64, n+1),
		cos: make([]float64, n+1),
		n:   n,
	}
	for i := 0; i <= n; i++ {
		t.sin[i], t.cos[i] = math.Sincos(float64(i) * TwoPi / float64(n))
	}
	return t
}

func (t *TrigTable) SinCos(phase float64) (sin, cos float64) {
	idx := WrapPhase(phase) * float64(t.n) / TwoPi
	i := int(idx)
	if i >= t.n {
		i = t.n - 1
	}
	frac := idx - float64(i)
	sin = t.sin[i] + (t.sin[i+1]-t.sin[i])*frac
	cos = t.cos[i] + (t.cos[i+1]-t.cos[i])*frac
	return
}

func FastSinCos(phase float64) (float64, float64) {
	return DefaultTrigTable.SinCos(phase)
}
