package measure

import (
	"math"

	"metis/internal/tensor"
)

// Variances below this floor are clamped before taking logs.
const minVariance = 1e-8

// InformationGain scores the expected information gain about the
// dynamics model: the entropy of the moment-matched Gaussian mixture
// over ensemble members minus the mean member entropy. The bonus is
// high exactly where members disagree, so maximizing it steers rollouts
// toward states that would reduce epistemic uncertainty.
type InformationGain struct {
	log bonusLog
}

func NewInformationGain() *InformationGain {
	return &InformationGain{}
}

func (m *InformationGain) Name() string { return "information-gain" }

func (m *InformationGain) Score(deltaMeans, deltaVars *tensor.Dense4) (*tensor.Dense2, error) {
	if err := checkScoreShapes(deltaMeans, deltaVars); err != nil {
		return nil, err
	}
	horizon, members, candidates, dim := deltaMeans.D0, deltaMeans.D1, deltaMeans.D2, deltaMeans.D3

	bonuses := tensor.NewDense2(horizon, candidates)
	memberMeans := make([]float64, members)
	for t := 0; t < horizon; t++ {
		stepMeans := deltaMeans.Step(t)
		stepVars := deltaVars.Step(t)
		for c := 0; c < candidates; c++ {
			mixtureEntropy := 0.0
			memberEntropy := 0.0
			for d := 0; d < dim; d++ {
				varOfMeans, meanOfVars := 0.0, 0.0
				for e := 0; e < members; e++ {
					memberMeans[e] = stepMeans.At(e, c, d)
					v := math.Max(stepVars.At(e, c, d), minVariance)
					meanOfVars += v
					memberEntropy += gaussianEntropy(v)
				}
				meanOfVars /= float64(members)
				varOfMeans = populationVariance(memberMeans)
				mixtureEntropy += gaussianEntropy(math.Max(varOfMeans+meanOfVars, minVariance))
			}
			bonuses.Set(t, c, mixtureEntropy-memberEntropy/float64(members))
		}
	}
	m.log.record(bonuses)
	return bonuses, nil
}

func (m *InformationGain) Stats() map[string]float64 {
	return m.log.drain()
}

// gaussianEntropy is the differential entropy of a one-dimensional
// Gaussian with the given variance.
func gaussianEntropy(variance float64) float64 {
	return 0.5 * math.Log(2*math.Pi*math.E*variance)
}

func populationVariance(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return sum / float64(len(values))
}
