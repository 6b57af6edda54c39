package dynamics

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"metis/internal/tensor"
)

func TestRandomWalkPredictShapesAndValues(t *testing.T) {
	e := &RandomWalkEnsemble{Members: 3, Src: rand.NewSource(1)}
	state := tensor.NewDense3(3, 5, 2)
	action := tensor.NewDense3(3, 5, 1)

	deltaMean, deltaVar, err := e.Predict(state, action)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if deltaMean.D0 != 3 || deltaMean.D1 != 5 || deltaMean.D2 != 2 {
		t.Fatalf("unexpected mean shape (%d,%d,%d)", deltaMean.D0, deltaMean.D1, deltaMean.D2)
	}
	for i := range deltaMean.Data {
		if deltaMean.Data[i] != 0 || deltaVar.Data[i] != 1 {
			t.Fatal("random walk must predict zero mean, unit variance")
		}
	}
}

func TestSampleIsStochasticAndRoughlyCentered(t *testing.T) {
	e := &RandomWalkEnsemble{Members: 1, Src: rand.NewSource(7)}
	deltaMean := tensor.NewDense3(1, 1, 2000)
	deltaVar := tensor.NewDense3(1, 1, 2000)
	deltaVar.Fill(1)

	sample, err := e.Sample(deltaMean, deltaVar)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	sum, distinct := 0.0, map[float64]bool{}
	for _, v := range sample.Data {
		sum += v
		distinct[v] = true
	}
	if len(distinct) < 100 {
		t.Fatal("sample is not stochastic")
	}
	if mean := sum / float64(len(sample.Data)); math.Abs(mean) > 0.1 {
		t.Fatalf("sample mean = %v, want near 0", mean)
	}
}

func TestSampleZeroVarianceIsDeterministic(t *testing.T) {
	e := &DriftEnsemble{Members: 2, Spread: 0.5, Src: rand.NewSource(3)}
	deltaMean := tensor.NewDense3(2, 2, 2)
	deltaMean.Fill(0.25)
	deltaVar := tensor.NewDense3(2, 2, 2)

	sample, err := e.Sample(deltaMean, deltaVar)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	for _, v := range sample.Data {
		if v != 0.25 {
			t.Fatalf("zero-variance sample = %v, want the mean", v)
		}
	}
}

func TestDriftEnsembleMembersDisagree(t *testing.T) {
	e := &DriftEnsemble{Members: 3, Spread: 0.5, Noise: 0.1, Src: rand.NewSource(5)}
	state := tensor.NewDense3(3, 2, 1)
	action := tensor.NewDense3(3, 2, 1)

	deltaMean, _, err := e.Predict(state, action)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if deltaMean.At(0, 0, 0) >= deltaMean.At(2, 0, 0) {
		t.Fatal("expected member drifts to span a range")
	}
	if deltaMean.At(1, 0, 0) != 0 {
		t.Fatalf("middle member drift = %v, want 0", deltaMean.At(1, 0, 0))
	}
}

func TestRewardModels(t *testing.T) {
	states := tensor.NewDense2(2, 2)
	states.Set(0, 0, 1)
	states.Set(0, 1, 2)
	states.Set(1, 0, -3)

	neg, err := NegStateReward{}.Predict(states)
	if err != nil {
		t.Fatalf("neg predict: %v", err)
	}
	if neg[0] != -3 || neg[1] != 3 {
		t.Fatalf("neg rewards = %v, want [-3 3]", neg)
	}

	quad, err := QuadraticReward{}.Predict(states)
	if err != nil {
		t.Fatalf("quad predict: %v", err)
	}
	if quad[0] != -5 || quad[1] != -9 {
		t.Fatalf("quad rewards = %v, want [-5 -9]", quad)
	}
}

func TestNewScenarioRejectsUnknownName(t *testing.T) {
	if _, err := NewScenario("warp-field", 2, 3, 1); err == nil {
		t.Fatal("expected error for unsupported scenario")
	}
	if _, err := NewScenario("drift", 0, 3, 1); err == nil {
		t.Fatal("expected error for non-positive state size")
	}
}
