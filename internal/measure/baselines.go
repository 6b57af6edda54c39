package measure

import (
	"math/rand"

	"metis/internal/tensor"
)

// Variance scores raw ensemble disagreement: the population variance of
// the member means, averaged over state dimensions. Cheaper than
// information gain and insensitive to the members' own predictive
// variance.
type Variance struct {
	log bonusLog
}

func NewVariance() *Variance { return &Variance{} }

func (m *Variance) Name() string { return "variance" }

func (m *Variance) Score(deltaMeans, deltaVars *tensor.Dense4) (*tensor.Dense2, error) {
	if err := checkScoreShapes(deltaMeans, deltaVars); err != nil {
		return nil, err
	}
	horizon, members, candidates, dim := deltaMeans.D0, deltaMeans.D1, deltaMeans.D2, deltaMeans.D3

	bonuses := tensor.NewDense2(horizon, candidates)
	memberMeans := make([]float64, members)
	for t := 0; t < horizon; t++ {
		step := deltaMeans.Step(t)
		for c := 0; c < candidates; c++ {
			total := 0.0
			for d := 0; d < dim; d++ {
				for e := 0; e < members; e++ {
					memberMeans[e] = step.At(e, c, d)
				}
				total += populationVariance(memberMeans)
			}
			bonuses.Set(t, c, total/float64(dim))
		}
	}
	m.log.record(bonuses)
	return bonuses, nil
}

func (m *Variance) Stats() map[string]float64 {
	return m.log.drain()
}

// Random emits a uniform bonus regardless of the predictions, the
// control baseline for exploration experiments.
type Random struct {
	rng *rand.Rand
	log bonusLog
}

func NewRandom(rng *rand.Rand) *Random { return &Random{rng: rng} }

func (m *Random) Name() string { return "random" }

func (m *Random) Score(deltaMeans, deltaVars *tensor.Dense4) (*tensor.Dense2, error) {
	if err := checkScoreShapes(deltaMeans, deltaVars); err != nil {
		return nil, err
	}
	bonuses := tensor.NewDense2(deltaMeans.D0, deltaMeans.D2)
	for i := range bonuses.Data {
		bonuses.Data[i] = m.rng.Float64()
	}
	m.log.record(bonuses)
	return bonuses, nil
}

func (m *Random) Stats() map[string]float64 {
	return m.log.drain()
}
