package planner

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"metis/internal/model"
)

// ErrEmptyRewardLog is returned when Drain is called before any
// reward-scored planning iteration has run.
var ErrEmptyRewardLog = errors.New("planner: reward log is empty")

// Aggregator accumulates the per-candidate reward vectors logged on
// every reward-scored CEM iteration. It is owned by a Planner and
// drained explicitly; draining clears the log.
type Aggregator struct {
	samples []float64
}

func (a *Aggregator) Append(perCandidate []float64) {
	a.samples = append(a.samples, perCandidate...)
}

// Drain summarizes and clears the log. The standard deviation is the
// sample (unbiased) estimator, unlike the population estimator used for
// elite refitting.
func (a *Aggregator) Drain() (model.RewardStats, error) {
	if len(a.samples) == 0 {
		return model.RewardStats{}, ErrEmptyRewardLog
	}
	out := model.RewardStats{
		Max:  floats.Max(a.samples),
		Mean: stat.Mean(a.samples, nil),
		Min:  floats.Min(a.samples),
		Std:  stat.StdDev(a.samples, nil),
	}
	a.samples = nil
	return out, nil
}
