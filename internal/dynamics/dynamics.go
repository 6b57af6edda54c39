// Package dynamics defines the model collaborators the planner consumes:
// a probabilistic ensemble over state deltas and a reward model over
// states. Training these models is out of scope; the package also ships
// synthetic implementations used by the CLI demo and tests.
package dynamics

import (
	"metis/internal/tensor"
)

// Ensemble is a set of independently parameterized dynamics models.
// All batched inputs and outputs are (members, candidates, dim).
type Ensemble interface {
	// EnsembleSize reports the number of members, always >= 1.
	EnsembleSize() int
	// Predict returns the per-member Gaussian parameters of the next
	// state delta for every (member, candidate) pair.
	Predict(state, action *tensor.Dense3) (deltaMean, deltaVar *tensor.Dense3, err error)
	// Sample draws a stochastic delta from the predicted distribution.
	// Keeping the sample separate from the parameters is what lets
	// rollouts diverge across members while the exploration measure
	// still sees the raw disagreement.
	Sample(deltaMean, deltaVar *tensor.Dense3) (*tensor.Dense3, error)
}

// RewardModel scores states. Predict takes flattened state rows and
// returns one scalar per row.
type RewardModel interface {
	Predict(states *tensor.Dense2) ([]float64, error)
}
