package experiment

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/phasefield/internal/sim"
)

// Ensemble runs the same configuration under consecutive seeds in parallel.
type Ensemble struct {
	cfg       Config
	numRuns   int
	seedStart uint64
	opts      []sim.Option
	setup     func(*Runner)
}

func NewEnsemble(cfg Config, numRuns int, seedStart uint64, opts ...sim.Option) *Ensemble {
	if seedStart == 0 {
		seedStart = 1
	}
	return &Ensemble{cfg: cfg, numRuns: numRuns, seedStart: seedStart, opts: opts}
}

// OnRunner registers a callback that prepares every runner before it starts,
// typically adding metrics or hooks.
func (e *Ensemble) OnRunner(fn func(*Runner)) { e.setup = fn }

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := e.cfg
			cfgCopy.Seed = e.seedStart + uint64(idx)

			r, err := New(cfgCopy, e.opts...)
			if err != nil {
				errs[idx] = err
				return
			}
			if e.setup != nil {
				e.setup(r)
			}
			results[idx], errs[idx] = r.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Summary is the spread of final order parameters across runs.
type Summary struct {
	Runs  int
	MeanR float64
	StdR  float64
	MinR  float64
	MaxR  float64
}

func Summarize(results []*Result) Summary {
	s := Summary{Runs: len(results)}
	if len(results) == 0 {
		return s
	}
	finals := make([]float64, len(results))
	s.MinR, s.MaxR = 1, 0
	for i, r := range results {
		finals[i] = r.Final().R
		s.MinR = min(s.MinR, finals[i])
		s.MaxR = max(s.MaxR, finals[i])
	}
	if len(finals) == 1 {
		s.MeanR = finals[0]
		return s
	}
	s.MeanR, s.StdR = stat.MeanStdDev(finals, nil)
	return s
}
