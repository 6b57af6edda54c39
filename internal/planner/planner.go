// Package planner implements sampling-based model-predictive control:
// Cross-Entropy Method refinement of a Gaussian distribution over
// action sequences, scored by multi-step rollouts through a
// probabilistic dynamics ensemble. Candidate returns combine predicted
// task reward with an exploration bonus measuring expected information
// gain about the dynamics model.
package planner

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"metis/internal/dynamics"
	"metis/internal/measure"
	"metis/internal/model"
	"metis/internal/tensor"
)

type Config struct {
	Ensemble dynamics.Ensemble
	Reward   dynamics.RewardModel
	Measure  measure.Measure

	ActionSize        int
	PlanHorizon       int
	OptimisationIters int
	NCandidates       int
	TopCandidates     int

	UseReward      bool
	UseExploration bool
	ExplScale      float64

	Rand *rand.Rand
}

// NewConfig returns a Config with both objectives enabled and unit
// exploration scale; callers override fields as needed.
func NewConfig(ensemble dynamics.Ensemble, reward dynamics.RewardModel, m measure.Measure) Config {
	return Config{
		Ensemble:       ensemble,
		Reward:         reward,
		Measure:        m,
		UseReward:      true,
		UseExploration: true,
		ExplScale:      1,
	}
}

// Planner owns the CEM loop and the reward-statistics log that
// accumulates across Plan calls until drained.
type Planner struct {
	cfg          Config
	ensembleSize int
	rewardLog    Aggregator
}

func New(cfg Config) (*Planner, error) {
	if cfg.Ensemble == nil {
		return nil, fmt.Errorf("dynamics ensemble is required")
	}
	if cfg.UseReward && cfg.Reward == nil {
		return nil, fmt.Errorf("reward model is required when reward scoring is enabled")
	}
	if cfg.UseExploration && cfg.Measure == nil {
		return nil, fmt.Errorf("exploration measure is required when exploration is enabled")
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if cfg.ActionSize <= 0 {
		return nil, fmt.Errorf("action size must be positive, got %d", cfg.ActionSize)
	}
	if cfg.PlanHorizon <= 0 {
		return nil, fmt.Errorf("plan horizon must be positive, got %d", cfg.PlanHorizon)
	}
	if cfg.OptimisationIters <= 0 {
		return nil, fmt.Errorf("optimisation iterations must be positive, got %d", cfg.OptimisationIters)
	}
	if cfg.NCandidates <= 0 {
		return nil, fmt.Errorf("candidate count must be positive, got %d", cfg.NCandidates)
	}
	if cfg.TopCandidates <= 0 || cfg.TopCandidates > cfg.NCandidates {
		return nil, fmt.Errorf("top candidates must be in [1, %d], got %d", cfg.NCandidates, cfg.TopCandidates)
	}
	if cfg.ExplScale == 0 {
		cfg.ExplScale = 1
	}
	ensembleSize := cfg.Ensemble.EnsembleSize()
	if ensembleSize < 1 {
		return nil, fmt.Errorf("ensemble size must be at least 1, got %d", ensembleSize)
	}
	return &Planner{cfg: cfg, ensembleSize: ensembleSize}, nil
}

// Plan searches for the action sequence maximizing predicted return
// from state and returns the refined first-timestep mean action.
func (p *Planner) Plan(state []float64) ([]float64, error) {
	if len(state) == 0 {
		return nil, fmt.Errorf("state must not be empty")
	}
	cfg := p.cfg

	// Real observed state broadcast across members and candidates.
	initial := tensor.ReplicateVector(state, p.ensembleSize, cfg.NCandidates)

	// (horizon, 1, action) distribution, broadcast across candidates.
	actionMean := tensor.NewDense3(cfg.PlanHorizon, 1, cfg.ActionSize)
	actionStd := tensor.NewDense3(cfg.PlanHorizon, 1, cfg.ActionSize)
	actionStd.Fill(1)

	for iter := 0; iter < cfg.OptimisationIters; iter++ {
		actions := tensor.PerturbGaussian(actionMean, actionStd, cfg.NCandidates, cfg.Rand)

		states, deltaVars, deltaMeans, err := p.performRollout(initial, actions)
		if err != nil {
			return nil, fmt.Errorf("rollout at iteration %d: %w", iter, err)
		}

		returns := make([]float64, cfg.NCandidates)

		if cfg.UseExploration {
			bonuses, err := cfg.Measure.Score(deltaMeans, deltaVars)
			if err != nil {
				return nil, fmt.Errorf("exploration score at iteration %d: %w", iter, err)
			}
			perCandidate := tensor.SumAxis0(bonuses)
			floats.AddScaled(returns, cfg.ExplScale, perCandidate)
		}

		if cfg.UseReward {
			rows := states.FlattenRows()
			rewards, err := cfg.Reward.Predict(rows)
			if err != nil {
				return nil, fmt.Errorf("reward prediction at iteration %d: %w", iter, err)
			}
			if len(rewards) != rows.Rows {
				return nil, fmt.Errorf("reward model returned %d values for %d states", len(rewards), rows.Rows)
			}
			// Rewards come back row-major over (horizon, member,
			// candidate); average over members, sum over the horizon.
			grid := &tensor.Dense3{D0: cfg.PlanHorizon, D1: p.ensembleSize, D2: cfg.NCandidates, Data: rewards}
			perCandidate := tensor.SumAxis0(tensor.MeanAxis1(grid))
			p.rewardLog.Append(perCandidate)
			floats.Add(returns, perCandidate)
		}

		// Undefined scores compete as zero rather than aborting the
		// iteration or dominating selection.
		tensor.ScrubNaN(returns)

		elite := tensor.TopKIndices(returns, cfg.TopCandidates)
		best := tensor.GatherAxis1(actions, elite)
		actionMean, actionStd = tensor.MeanStdAxis1(best)
	}

	action := make([]float64, cfg.ActionSize)
	copy(action, actionMean.Row(0, 0))
	return action, nil
}

// Drain returns the exploration-measure statistics and the reward
// summary accumulated since the last drain, clearing both. Draining
// with no reward-scored planning call since the last drain is a caller
// error.
func (p *Planner) Drain() (map[string]float64, model.RewardStats, error) {
	expl := map[string]float64{}
	if p.cfg.UseExploration {
		expl = p.cfg.Measure.Stats()
	}
	rewardStats, err := p.rewardLog.Drain()
	if err != nil {
		return nil, model.RewardStats{}, err
	}
	return expl, rewardStats, nil
}
