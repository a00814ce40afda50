package metrics

import "math"

// Metric accumulates a scalar over a run of snapshots.
type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

type MeanOrder struct {
	sum     float64
	samples int
}

func NewMeanOrder() *MeanOrder { return &MeanOrder{} }

func (m *MeanOrder) Name() string { return "mean_r" }

func (m *MeanOrder) Observe(s Snapshot) {
	m.sum += s.R
	m.samples++
}

func (m *MeanOrder) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanOrder) Reset() {
	m.sum = 0
	m.samples = 0
}

type PeakOrder struct {
	peak float64
}

func NewPeakOrder() *PeakOrder { return &PeakOrder{} }

func (p *PeakOrder) Name() string       { return "peak_r" }
func (p *PeakOrder) Observe(s Snapshot) { p.peak = math.Max(p.peak, s.R) }
func (p *PeakOrder) Value() float64     { return p.peak }
func (p *PeakOrder) Reset()             { p.peak = 0 }

// LockTime records the first simulation time at which r reached the
// threshold. Value is NaN until that happens.
type LockTime struct {
	threshold float64
	at        float64
	locked    bool
}

func NewLockTime(threshold float64) *LockTime {
	return &LockTime{threshold: threshold}
}

func (l *LockTime) Name() string { return "lock_time" }

func (l *LockTime) Observe(s Snapshot) {
	if !l.locked && s.R >= l.threshold {
		l.locked = true
		l.at = s.Time
	}
}

func (l *LockTime) Value() float64 {
	if !l.locked {
		return math.NaN()
	}
	return l.at
}

func (l *LockTime) Locked() bool { return l.locked }

func (l *LockTime) Reset() {
	l.locked = false
	l.at = 0
}

// LockedFraction is the share of samples with r at or above the threshold.
type LockedFraction struct {
	threshold float64
	locked    int
	samples   int
}

func NewLockedFraction(threshold float64) *LockedFraction {
	return &LockedFraction{threshold: threshold}
}

func (l *LockedFraction) Name() string { return "locked_fraction" }

func (l *LockedFraction) Observe(s Snapshot) {
	l.samples++
	if s.R >= l.threshold {
		l.locked++
	}
}

func (l *LockedFraction) Value() float64 {
	if l.samples == 0 {
		return 0
	}
	return float64(l.locked) / float64(l.samples)
}

func (l *LockedFraction) Reset() {
	l.locked = 0
	l.samples = 0
}

// Defaults returns the observer set used by the CLI.
func Defaults(lockThreshold float64) []Metric {
	return []Metric{
		NewMeanOrder(),
		NewPeakOrder(),
		NewLockTime(lockThreshold),
		NewLockedFraction(lockThreshold),
	}
}
