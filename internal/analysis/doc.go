// Package analysis characterizes order-parameter time series.
//
//   - [Spectrum]: windowed power spectrum of r(t) via FFT
//   - [Dominant]: strongest non-DC frequency of a series
//   - [SweepCoupling]: r against coupling strength, the classic Kuramoto transition
//   - [CriticalCoupling]: first K at which the mean order crosses a threshold
//
// # Synchronization transition
//
// Below a critical coupling the population drifts incoherently; above it a
// synchronized cluster forms:
//
//	points, _ := analysis.SweepCoupling(0, 4, 17, run)
//	kc, ok := analysis.CriticalCoupling(points, 0.5)
package analysis
