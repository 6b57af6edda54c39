// Package tensor provides the fixed-rank batched float64 containers the
// planner operates on. Every operation documents its axis semantics;
// axis order mistakes are the primary correctness risk in the rollout
// and refit paths, so shapes are checked eagerly and violations panic,
// matching gonum's shape-error behavior.
package tensor

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Dense2 is a rank-2 container with row-major backing.
type Dense2 struct {
	Rows, Cols int
	Data       []float64
}

// Dense3 is a rank-3 container with row-major backing.
type Dense3 struct {
	D0, D1, D2 int
	Data       []float64
}

// Dense4 is a rank-4 container with row-major backing.
type Dense4 struct {
	D0, D1, D2, D3 int
	Data           []float64
}

func NewDense2(rows, cols int) *Dense2 {
	checkDims(rows, cols)
	return &Dense2{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

func NewDense3(d0, d1, d2 int) *Dense3 {
	checkDims(d0, d1, d2)
	return &Dense3{D0: d0, D1: d1, D2: d2, Data: make([]float64, d0*d1*d2)}
}

func NewDense4(d0, d1, d2, d3 int) *Dense4 {
	checkDims(d0, d1, d2, d3)
	return &Dense4{D0: d0, D1: d1, D2: d2, D3: d3, Data: make([]float64, d0*d1*d2*d3)}
}

func checkDims(dims ...int) {
	for _, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension %d in shape %v", d, dims))
		}
	}
}

func (t *Dense2) At(i, j int) float64 { return t.Data[i*t.Cols+j] }

func (t *Dense2) Set(i, j int, v float64) { t.Data[i*t.Cols+j] = v }

// Row returns a view of row i; mutations write through.
func (t *Dense2) Row(i int) []float64 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

func (t *Dense3) At(i, j, k int) float64 {
	return t.Data[(i*t.D1+j)*t.D2+k]
}

func (t *Dense3) Set(i, j, k int, v float64) {
	t.Data[(i*t.D1+j)*t.D2+k] = v
}

// Row returns a view of the innermost vector at (i, j); mutations write
// through.
func (t *Dense3) Row(i, j int) []float64 {
	base := (i*t.D1 + j) * t.D2
	return t.Data[base : base+t.D2]
}

func (t *Dense3) Fill(v float64) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// Clone returns a deep copy.
func (t *Dense3) Clone() *Dense3 {
	out := NewDense3(t.D0, t.D1, t.D2)
	copy(out.Data, t.Data)
	return out
}

// Step returns a view of the rank-3 slab at index i along axis 0.
func (t *Dense4) Step(i int) *Dense3 {
	size := t.D1 * t.D2 * t.D3
	return &Dense3{D0: t.D1, D1: t.D2, D2: t.D3, Data: t.Data[i*size : (i+1)*size]}
}

// PerturbGaussian samples a population of candidate sequences around a
// shared distribution. mean and std are (time, 1, dim) and broadcast
// across the candidate axis; the result is (time, candidates, dim) with
// out[t,c,d] = mean[t,0,d] + std[t,0,d]*n, n ~ N(0,1) drawn from rng.
func PerturbGaussian(mean, std *Dense3, candidates int, rng *rand.Rand) *Dense3 {
	if mean.D0 != std.D0 || mean.D2 != std.D2 || mean.D1 != 1 || std.D1 != 1 {
		panic(fmt.Sprintf("tensor: perturb shape mismatch (%d,%d,%d) vs (%d,%d,%d)",
			mean.D0, mean.D1, mean.D2, std.D0, std.D1, std.D2))
	}
	out := NewDense3(mean.D0, candidates, mean.D2)
	for t := 0; t < mean.D0; t++ {
		mu := mean.Row(t, 0)
		sigma := std.Row(t, 0)
		for c := 0; c < candidates; c++ {
			row := out.Row(t, c)
			for d := range row {
				row[d] = mu[d] + sigma[d]*rng.NormFloat64()
			}
		}
	}
	return out
}

// MeanStdAxis1 collapses the middle axis of a (time, candidates, dim)
// container, returning the per-(time, dim) mean and population (biased)
// standard deviation, each shaped (time, 1, dim). The biased estimator
// is deliberate: a constant elite set must yield exactly zero spread so
// sampling collapses to the mean along that dimension.
func MeanStdAxis1(t *Dense3) (mean, std *Dense3) {
	mean = NewDense3(t.D0, 1, t.D2)
	std = NewDense3(t.D0, 1, t.D2)
	col := make([]float64, t.D1)
	for i := 0; i < t.D0; i++ {
		for d := 0; d < t.D2; d++ {
			for j := 0; j < t.D1; j++ {
				col[j] = t.At(i, j, d)
			}
			m := stat.Mean(col, nil)
			mean.Set(i, 0, d, m)
			std.Set(i, 0, d, stat.PopStdDev(col, nil))
		}
	}
	return mean, std
}

// GatherAxis1 selects candidate rows by index along the middle axis of
// a (time, candidates, dim) container, producing (time, len(idx), dim).
func GatherAxis1(t *Dense3, idx []int) *Dense3 {
	out := NewDense3(t.D0, len(idx), t.D2)
	for i := 0; i < t.D0; i++ {
		for j, c := range idx {
			copy(out.Row(i, j), t.Row(i, c))
		}
	}
	return out
}

// ReplicateVector broadcasts a single state vector across the member
// and candidate axes, producing (members, candidates, dim).
func ReplicateVector(vec []float64, members, candidates int) *Dense3 {
	out := NewDense3(members, candidates, len(vec))
	for e := 0; e < members; e++ {
		for c := 0; c < candidates; c++ {
			copy(out.Row(e, c), vec)
		}
	}
	return out
}

// ReplicateStep lifts the per-candidate actions at one timestep of a
// (time, candidates, dim) container to (members, candidates, dim) by
// repeating them identically for every ensemble member.
func ReplicateStep(actions *Dense3, step, members int) *Dense3 {
	out := NewDense3(members, actions.D1, actions.D2)
	for e := 0; e < members; e++ {
		for c := 0; c < actions.D1; c++ {
			copy(out.Row(e, c), actions.Row(step, c))
		}
	}
	return out
}

// Add returns the elementwise sum of two identically shaped rank-3
// containers.
func Add(a, b *Dense3) *Dense3 {
	if a.D0 != b.D0 || a.D1 != b.D1 || a.D2 != b.D2 {
		panic(fmt.Sprintf("tensor: add shape mismatch (%d,%d,%d) vs (%d,%d,%d)",
			a.D0, a.D1, a.D2, b.D0, b.D1, b.D2))
	}
	out := NewDense3(a.D0, a.D1, a.D2)
	floats.AddTo(out.Data, a.Data, b.Data)
	return out
}

// Stack stacks identically shaped rank-3 slabs along a new leading
// axis, producing (len(steps), d0, d1, d2).
func Stack(steps []*Dense3) *Dense4 {
	if len(steps) == 0 {
		panic("tensor: stack of zero slabs")
	}
	first := steps[0]
	out := NewDense4(len(steps), first.D0, first.D1, first.D2)
	size := first.D0 * first.D1 * first.D2
	for i, s := range steps {
		if s.D0 != first.D0 || s.D1 != first.D1 || s.D2 != first.D2 {
			panic("tensor: stack shape mismatch")
		}
		copy(out.Data[i*size:(i+1)*size], s.Data)
	}
	return out
}

// FlattenRows reshapes a (d0, d1, d2, dim) container to (d0*d1*d2, dim)
// rows sharing the same backing array.
func (t *Dense4) FlattenRows() *Dense2 {
	return &Dense2{Rows: t.D0 * t.D1 * t.D2, Cols: t.D3, Data: t.Data}
}

// MeanAxis1 collapses the middle axis of a (time, members, candidates)
// container, returning the per-(time, candidate) mean as (time,
// candidates).
func MeanAxis1(t *Dense3) *Dense2 {
	out := NewDense2(t.D0, t.D2)
	for i := 0; i < t.D0; i++ {
		for c := 0; c < t.D2; c++ {
			sum := 0.0
			for e := 0; e < t.D1; e++ {
				sum += t.At(i, e, c)
			}
			out.Set(i, c, sum/float64(t.D1))
		}
	}
	return out
}

// SumAxis0 collapses the leading (time) axis of a (time, candidates)
// container into a per-candidate vector.
func SumAxis0(t *Dense2) []float64 {
	out := make([]float64, t.Cols)
	for i := 0; i < t.Rows; i++ {
		floats.Add(out, t.Row(i))
	}
	return out
}

// ScrubNaN replaces NaN entries with zero in place. An undefined score
// participates in selection as zero rather than poisoning top-k.
func ScrubNaN(values []float64) {
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = 0
		}
	}
}

type minHeap struct {
	values []float64
	idx    []int
}

func (h minHeap) Len() int           { return len(h.idx) }
func (h minHeap) Less(i, j int) bool { return h.values[h.idx[i]] < h.values[h.idx[j]] }
func (h minHeap) Swap(i, j int)      { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *minHeap) Push(x any)        { h.idx = append(h.idx, x.(int)) }

func (h *minHeap) Pop() any {
	n := len(h.idx)
	v := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return v
}

// TopKIndices returns the indices of the k largest values. The result
// is not sorted and tie order among equal values is unspecified.
func TopKIndices(values []float64, k int) []int {
	if k <= 0 || k > len(values) {
		panic(fmt.Sprintf("tensor: top-k %d out of range for %d values", k, len(values)))
	}
	h := &minHeap{values: values, idx: make([]int, 0, k)}
	for i := range values {
		if h.Len() < k {
			heap.Push(h, i)
			continue
		}
		if values[i] > values[h.idx[0]] {
			h.idx[0] = i
			heap.Fix(h, 0)
		}
	}
	return h.idx
}
