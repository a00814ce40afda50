package sim

import (
	"sync"

	"github.com/san-kum/phasefield/internal/embodiment"
)

type perturbation struct {
	fraction float64
	strength float64
}

// mailbox is the only state shared between the stepping goroutine and
// input producers. Advance drains it once, at the start of a tick.
type mailbox struct {
	mu sync.Mutex

	params      Params
	paramsDirty bool

	pointer      embodiment.Pointer
	pointerDirty bool

	taps        []embodiment.Tap
	uncertainty float64
	perturb     []perturbation
}

// latched is what one tick sees.
type latched struct {
	params      Params
	paramsDirty bool
	pointer     embodiment.Pointer
	pointerSet  bool
	taps        []embodiment.Tap
	uncertainty float64
	perturb     []perturbation
}

// drain moves pending inputs into l, reusing l's slices.
func (m *mailbox) drain(l *latched) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.params = m.params
	l.paramsDirty = m.paramsDirty
	m.paramsDirty = false

	l.pointer = m.pointer
	l.pointerSet = m.pointerDirty
	m.pointerDirty = false

	l.taps = append(l.taps[:0], m.taps...)
	m.taps = m.taps[:0]

	l.uncertainty = m.uncertainty

	l.perturb = append(l.perturb[:0], m.perturb...)
	m.perturb = m.perturb[:0]
}

// clearInputs drops queued one-shot inputs and the pointer.
func (m *mailbox) clearInputs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taps = m.taps[:0]
	m.perturb = m.perturb[:0]
	m.pointer = embodiment.Pointer{}
	m.pointerDirty = true
	m.uncertainty = 0
}
