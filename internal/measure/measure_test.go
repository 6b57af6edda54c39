package measure

import (
	"math/rand"
	"testing"

	"metis/internal/tensor"
)

// fills (horizon=1, members, candidates=2, dim=1) tensors where
// candidate 0 sees identical member means and candidate 1 sees
// spread-out member means.
func disagreementFixture(members int, spread float64) (*tensor.Dense4, *tensor.Dense4) {
	deltaMeans := tensor.NewDense4(1, members, 2, 1)
	deltaVars := tensor.NewDense4(1, members, 2, 1)
	step := deltaMeans.Step(0)
	for e := 0; e < members; e++ {
		step.Set(e, 0, 0, 1.0)
		step.Set(e, 1, 0, float64(e)*spread)
	}
	deltaVars.Step(0).Fill(0.5)
	return deltaMeans, deltaVars
}

func TestInformationGainRewardsDisagreement(t *testing.T) {
	deltaMeans, deltaVars := disagreementFixture(4, 2.0)
	m := NewInformationGain()

	bonuses, err := m.Score(deltaMeans, deltaVars)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if bonuses.Rows != 1 || bonuses.Cols != 2 {
		t.Fatalf("unexpected bonus shape (%d,%d)", bonuses.Rows, bonuses.Cols)
	}
	agree, disagree := bonuses.At(0, 0), bonuses.At(0, 1)
	if disagree <= agree {
		t.Fatalf("disagreeing candidate bonus %v must exceed agreeing %v", disagree, agree)
	}
	// With identical member means the mixture adds no entropy.
	if agree < -1e-9 || agree > 1e-9 {
		t.Fatalf("agreeing candidate bonus = %v, want ~0", agree)
	}
}

func TestInformationGainHandlesZeroVariance(t *testing.T) {
	deltaMeans := tensor.NewDense4(2, 3, 4, 2)
	deltaVars := tensor.NewDense4(2, 3, 4, 2)
	m := NewInformationGain()

	if _, err := m.Score(deltaMeans, deltaVars); err != nil {
		t.Fatalf("score with zero variance: %v", err)
	}
}

func TestVarianceMeasure(t *testing.T) {
	deltaMeans, deltaVars := disagreementFixture(2, 4.0)
	m := NewVariance()

	bonuses, err := m.Score(deltaMeans, deltaVars)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if bonuses.At(0, 0) != 0 {
		t.Fatalf("agreeing candidate variance = %v, want 0", bonuses.At(0, 0))
	}
	// Member means {0, 4} have population variance 4.
	if bonuses.At(0, 1) != 4 {
		t.Fatalf("disagreeing candidate variance = %v, want 4", bonuses.At(0, 1))
	}
}

func TestRandomMeasureShapeAndRange(t *testing.T) {
	deltaMeans := tensor.NewDense4(3, 2, 5, 1)
	deltaVars := tensor.NewDense4(3, 2, 5, 1)
	m := NewRandom(rand.New(rand.NewSource(11)))

	bonuses, err := m.Score(deltaMeans, deltaVars)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if bonuses.Rows != 3 || bonuses.Cols != 5 {
		t.Fatalf("unexpected bonus shape (%d,%d)", bonuses.Rows, bonuses.Cols)
	}
	for _, v := range bonuses.Data {
		if v < 0 || v >= 1 {
			t.Fatalf("bonus %v outside [0,1)", v)
		}
	}
}

func TestStatsDrainAndClear(t *testing.T) {
	deltaMeans, deltaVars := disagreementFixture(3, 1.0)
	m := NewInformationGain()
	if _, err := m.Score(deltaMeans, deltaVars); err != nil {
		t.Fatalf("score: %v", err)
	}

	stats := m.Stats()
	for _, key := range []string{"max", "mean", "min", "std"} {
		if _, ok := stats[key]; !ok {
			t.Fatalf("missing stat %q", key)
		}
	}
	if stats["max"] < stats["min"] {
		t.Fatal("max < min")
	}
	if again := m.Stats(); len(again) != 0 {
		t.Fatalf("second drain should be empty, got %v", again)
	}
}

func TestScoreRejectsShapeMismatch(t *testing.T) {
	deltaMeans := tensor.NewDense4(1, 2, 3, 4)
	deltaVars := tensor.NewDense4(1, 2, 3, 5)
	if _, err := NewInformationGain().Score(deltaMeans, deltaVars); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}
