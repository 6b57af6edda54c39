package dynamics

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"metis/internal/tensor"
)

// RandomWalkEnsemble predicts delta_mean=0, delta_var=1 regardless of
// input: a pure random walk with no member disagreement.
type RandomWalkEnsemble struct {
	Members int
	Src     rand.Source
}

func (e *RandomWalkEnsemble) EnsembleSize() int { return e.Members }

func (e *RandomWalkEnsemble) Predict(state, _ *tensor.Dense3) (*tensor.Dense3, *tensor.Dense3, error) {
	deltaMean := tensor.NewDense3(state.D0, state.D1, state.D2)
	deltaVar := tensor.NewDense3(state.D0, state.D1, state.D2)
	deltaVar.Fill(1)
	return deltaMean, deltaVar, nil
}

func (e *RandomWalkEnsemble) Sample(deltaMean, deltaVar *tensor.Dense3) (*tensor.Dense3, error) {
	return sampleGaussian(deltaMean, deltaVar, e.Src)
}

// DriftEnsemble gives every member its own constant drift spread evenly
// over [-Spread, Spread], plus shared observation noise. Members
// disagree on the mean, so disagreement-based exploration measures see
// a non-trivial signal.
type DriftEnsemble struct {
	Members int
	Spread  float64
	Noise   float64
	Src     rand.Source
}

func (e *DriftEnsemble) EnsembleSize() int { return e.Members }

func (e *DriftEnsemble) memberDrift(member int) float64 {
	if e.Members == 1 {
		return 0
	}
	frac := float64(member)/float64(e.Members-1)*2 - 1
	return frac * e.Spread
}

func (e *DriftEnsemble) Predict(state, _ *tensor.Dense3) (*tensor.Dense3, *tensor.Dense3, error) {
	deltaMean := tensor.NewDense3(state.D0, state.D1, state.D2)
	deltaVar := tensor.NewDense3(state.D0, state.D1, state.D2)
	noiseVar := e.Noise * e.Noise
	for member := 0; member < state.D0; member++ {
		drift := e.memberDrift(member)
		for c := 0; c < state.D1; c++ {
			mu := deltaMean.Row(member, c)
			v := deltaVar.Row(member, c)
			for d := range mu {
				mu[d] = drift
				v[d] = noiseVar
			}
		}
	}
	return deltaMean, deltaVar, nil
}

func (e *DriftEnsemble) Sample(deltaMean, deltaVar *tensor.Dense3) (*tensor.Dense3, error) {
	return sampleGaussian(deltaMean, deltaVar, e.Src)
}

// IntegratorEnsemble predicts delta_mean equal to the applied action
// (action and state dimensions must match) with constant noise
// variance. Unlike the random walk, actions actually steer the state,
// so planning against it has a well-defined optimum.
type IntegratorEnsemble struct {
	Members int
	Noise   float64
	Src     rand.Source
}

func (e *IntegratorEnsemble) EnsembleSize() int { return e.Members }

func (e *IntegratorEnsemble) Predict(state, action *tensor.Dense3) (*tensor.Dense3, *tensor.Dense3, error) {
	if action.D2 != state.D2 {
		return nil, nil, fmt.Errorf("integrator requires action dim %d to match state dim %d", action.D2, state.D2)
	}
	deltaMean := action.Clone()
	deltaVar := tensor.NewDense3(state.D0, state.D1, state.D2)
	deltaVar.Fill(e.Noise * e.Noise)
	return deltaMean, deltaVar, nil
}

func (e *IntegratorEnsemble) Sample(deltaMean, deltaVar *tensor.Dense3) (*tensor.Dense3, error) {
	return sampleGaussian(deltaMean, deltaVar, e.Src)
}

func sampleGaussian(deltaMean, deltaVar *tensor.Dense3, src rand.Source) (*tensor.Dense3, error) {
	if deltaMean.D0 != deltaVar.D0 || deltaMean.D1 != deltaVar.D1 || deltaMean.D2 != deltaVar.D2 {
		return nil, fmt.Errorf("sample shape mismatch (%d,%d,%d) vs (%d,%d,%d)",
			deltaMean.D0, deltaMean.D1, deltaMean.D2, deltaVar.D0, deltaVar.D1, deltaVar.D2)
	}
	out := tensor.NewDense3(deltaMean.D0, deltaMean.D1, deltaMean.D2)
	for i := range out.Data {
		sigma := math.Sqrt(deltaVar.Data[i])
		if sigma == 0 {
			out.Data[i] = deltaMean.Data[i]
			continue
		}
		out.Data[i] = distuv.Normal{Mu: deltaMean.Data[i], Sigma: sigma, Src: src}.Rand()
	}
	return out, nil
}

// NegStateReward rewards the negated sum of state components,
// encouraging trajectories that push the state down.
type NegStateReward struct{}

func (NegStateReward) Predict(states *tensor.Dense2) ([]float64, error) {
	out := make([]float64, states.Rows)
	for i := 0; i < states.Rows; i++ {
		sum := 0.0
		for _, v := range states.Row(i) {
			sum += v
		}
		out[i] = -sum
	}
	return out, nil
}

// QuadraticReward rewards the negated squared norm of the state,
// encouraging trajectories that stay near the origin.
type QuadraticReward struct{}

func (QuadraticReward) Predict(states *tensor.Dense2) ([]float64, error) {
	out := make([]float64, states.Rows)
	for i := 0; i < states.Rows; i++ {
		sum := 0.0
		for _, v := range states.Row(i) {
			sum += v * v
		}
		out[i] = -sum
	}
	return out, nil
}

// Scenario bundles a synthetic ensemble, a reward model and the state
// planning starts from.
type Scenario struct {
	Name         string
	Ensemble     Ensemble
	Reward       RewardModel
	InitialState []float64
}

// NewScenario builds a named synthetic scenario. Supported names are
// "random-walk" (zero-mean unit-variance deltas, negated-sum reward),
// "integrator" (action-steered deltas, negated-sum reward) and "drift"
// (disagreeing per-member drift, quadratic reward). Integrator
// scenarios require the planner's action size to equal stateSize.
func NewScenario(name string, stateSize, members int, seed uint64) (Scenario, error) {
	if stateSize <= 0 {
		return Scenario{}, fmt.Errorf("state size must be positive, got %d", stateSize)
	}
	if members <= 0 {
		return Scenario{}, fmt.Errorf("ensemble size must be positive, got %d", members)
	}
	src := rand.NewSource(seed)
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", "random-walk":
		return Scenario{
			Name:         "random-walk",
			Ensemble:     &RandomWalkEnsemble{Members: members, Src: src},
			Reward:       NegStateReward{},
			InitialState: make([]float64, stateSize),
		}, nil
	case "integrator":
		initial := make([]float64, stateSize)
		for i := range initial {
			initial[i] = 1
		}
		return Scenario{
			Name:         "integrator",
			Ensemble:     &IntegratorEnsemble{Members: members, Noise: 0.1, Src: src},
			Reward:       NegStateReward{},
			InitialState: initial,
		}, nil
	case "drift":
		initial := make([]float64, stateSize)
		for i := range initial {
			initial[i] = 1
		}
		return Scenario{
			Name:         "drift",
			Ensemble:     &DriftEnsemble{Members: members, Spread: 0.5, Noise: 0.1, Src: src},
			Reward:       QuadraticReward{},
			InitialState: initial,
		}, nil
	default:
		return Scenario{}, fmt.Errorf("unsupported scenario: %s", name)
	}
}
