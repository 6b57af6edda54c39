package planner

import (
	"fmt"

	"metis/internal/tensor"
)

// performRollout simulates actions forward from the replicated initial
// state. initial is (members, candidates, state) and actions is
// (horizon, candidates, action); the returned trajectories — sampled
// states, predictive variances and predictive means — are each
// (horizon, members, candidates, state), covering simulated steps
// 1..horizon. The sampled state drives the next step so member
// trajectories diverge; the distribution parameters are recorded
// untouched for the exploration measure.
func (p *Planner) performRollout(initial, actions *tensor.Dense3) (states, deltaVars, deltaMeans *tensor.Dense4, err error) {
	horizon := actions.D0
	stepStates := make([]*tensor.Dense3, horizon)
	stepVars := make([]*tensor.Dense3, horizon)
	stepMeans := make([]*tensor.Dense3, horizon)

	current := initial
	for t := 0; t < horizon; t++ {
		stepActions := tensor.ReplicateStep(actions, t, p.ensembleSize)

		deltaMean, deltaVar, err := p.cfg.Ensemble.Predict(current, stepActions)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("predict at step %d: %w", t, err)
		}
		delta, err := p.cfg.Ensemble.Sample(deltaMean, deltaVar)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sample at step %d: %w", t, err)
		}

		current = tensor.Add(current, delta)
		stepStates[t] = current
		stepVars[t] = deltaVar
		stepMeans[t] = deltaMean
	}

	return tensor.Stack(stepStates), tensor.Stack(stepVars), tensor.Stack(stepMeans), nil
}
