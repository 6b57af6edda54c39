// Package measure scores ensemble disagreement. A Measure converts the
// per-step predictive distributions of a rollout into an exploration
// bonus per (step, candidate) and keeps running summary statistics of
// the bonuses it has emitted.
package measure

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"metis/internal/tensor"
)

// Measure is the exploration-bonus capability the planner depends on.
// Score inputs are (horizon, members, candidates, dim); the output is
// an unscaled bonus shaped (horizon, candidates). Stats drains the
// running summary of emitted bonuses, clearing it.
type Measure interface {
	Name() string
	Score(deltaMeans, deltaVars *tensor.Dense4) (*tensor.Dense2, error)
	Stats() map[string]float64
}

// bonusLog accumulates emitted bonus values between Stats calls.
type bonusLog struct {
	samples []float64
}

func (l *bonusLog) record(bonuses *tensor.Dense2) {
	l.samples = append(l.samples, bonuses.Data...)
}

func (l *bonusLog) drain() map[string]float64 {
	if len(l.samples) == 0 {
		return map[string]float64{}
	}
	out := map[string]float64{
		"max":  floats.Max(l.samples),
		"mean": stat.Mean(l.samples, nil),
		"min":  floats.Min(l.samples),
		"std":  stat.StdDev(l.samples, nil),
	}
	l.samples = nil
	return out
}

func checkScoreShapes(deltaMeans, deltaVars *tensor.Dense4) error {
	if deltaMeans.D0 != deltaVars.D0 || deltaMeans.D1 != deltaVars.D1 ||
		deltaMeans.D2 != deltaVars.D2 || deltaMeans.D3 != deltaVars.D3 {
		return fmt.Errorf("measure: mean/var shape mismatch (%d,%d,%d,%d) vs (%d,%d,%d,%d)",
			deltaMeans.D0, deltaMeans.D1, deltaMeans.D2, deltaMeans.D3,
			deltaVars.D0, deltaVars.D1, deltaVars.D2, deltaVars.D3)
	}
	return nil
}
