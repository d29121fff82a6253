package tree

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// ErrNoSamples indicates that no usable training samples remain after
// dropping records with missing band values.
var ErrNoSamples = eris.New("tree: no valid training samples")

// Options are the stopping rules for tree growth.
type Options struct {
	MaxDepth            int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
}

// DefaultOptions returns stopping rules suited to small hand-labeled
// training sets.
func DefaultOptions() Options {
	return Options{
		MaxDepth:            12,
		MinSamplesLeaf:      1,
		MinImpurityDecrease: 1e-7,
	}
}

// Train fits a decision tree on feature vectors X and labels y. bands
// names the feature columns for reporting. Records containing any
// missing (NaN) value are excluded, never imputed; if none survive the
// fit fails.
//
// Training is deterministic for a fixed input ordering: candidate
// thresholds are midpoints between consecutive distinct sorted values,
// bands are scanned in order, and ties in impurity decrease keep the
// earliest candidate (lowest band index, then lowest threshold).
func Train(X [][]float64, y []string, bands []string, opts Options) (*Model, error) {
	if len(X) != len(y) {
		return nil, eris.Errorf("tree: %d feature vectors for %d labels", len(X), len(y))
	}
	if opts.MaxDepth <= 0 || opts.MinSamplesLeaf <= 0 {
		return nil, eris.Errorf("tree: invalid stopping rules %+v", opts)
	}

	// Drop records with missing band values.
	var rows []int
	var dropped int
	for i, vec := range X {
		if len(vec) != len(bands) {
			return nil, eris.Errorf("tree: record %d has %d values for %d bands", i, len(vec), len(bands))
		}
		if hasNaN(vec) {
			dropped++
			continue
		}
		rows = append(rows, i)
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(ErrNoSamples, "%d records dropped for missing values", dropped)
	}

	classes := distinctSorted(y, rows)
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	t := &trainer{
		X:      X,
		yi:     make([]int, len(y)),
		nclass: len(classes),
		nband:  len(bands),
		opts:   opts,
	}
	for _, i := range rows {
		t.yi[i] = classIdx[y[i]]
	}

	m := &Model{
		root:    t.build(rows, 1),
		Classes: classes,
		Bands:   append([]string(nil), bands...),
	}
	zap.L().Info("tree: model fitted",
		zap.Int("samples", len(rows)),
		zap.Int("dropped_missing", dropped),
		zap.Int("classes", len(classes)),
		zap.Int("depth", m.Depth()),
		zap.Int("nodes", m.NodeCount()),
	)
	return m, nil
}

type trainer struct {
	X      [][]float64
	yi     []int
	nclass int
	nband  int
	opts   Options
}

// build grows the subtree for the given sample rows.
func (t *trainer) build(rows []int, depth int) *node {
	counts := t.classCounts(rows)
	parentGini := gini(counts, float64(len(rows)))

	if parentGini == 0 || depth >= t.opts.MaxDepth || len(rows) < 2*t.opts.MinSamplesLeaf {
		return t.leaf(counts)
	}

	band, threshold, decrease := t.bestSplit(rows, parentGini)
	if band < 0 || decrease < t.opts.MinImpurityDecrease {
		return t.leaf(counts)
	}

	var left, right []int
	for _, r := range rows {
		if t.X[r][band] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) < t.opts.MinSamplesLeaf || len(right) < t.opts.MinSamplesLeaf {
		return t.leaf(counts)
	}

	return &node{
		band:      band,
		threshold: threshold,
		left:      t.build(left, depth+1),
		right:     t.build(right, depth+1),
	}
}

// bestSplit scans every band and candidate threshold, returning the
// split with the greatest impurity decrease. Strict comparison keeps
// the first of tied candidates, which fixes the band/threshold
// tie-breaking order.
func (t *trainer) bestSplit(rows []int, parentGini float64) (band int, threshold, decrease float64) {
	band = -1
	n := float64(len(rows))

	ordered := make([]int, len(rows))
	leftCounts := make([]float64, t.nclass)
	rightCounts := make([]float64, t.nclass)

	for b := 0; b < t.nband; b++ {
		copy(ordered, rows)
		sort.SliceStable(ordered, func(i, j int) bool { return t.X[ordered[i]][b] < t.X[ordered[j]][b] })

		for i := range leftCounts {
			leftCounts[i] = 0
		}
		copy(rightCounts, t.classCounts(rows))

		for i := 0; i < len(ordered)-1; i++ {
			r := ordered[i]
			leftCounts[t.yi[r]]++
			rightCounts[t.yi[r]]--

			v, next := t.X[r][b], t.X[ordered[i+1]][b]
			if v == next {
				continue
			}
			mid := v + (next-v)/2
			nl := float64(i + 1)
			nr := n - nl
			weighted := nl/n*gini(leftCounts, nl) + nr/n*gini(rightCounts, nr)
			d := parentGini - weighted
			if d > decrease {
				band, threshold, decrease = b, mid, d
			}
		}
	}
	return band, threshold, decrease
}

// leaf builds a terminal node holding the majority class; count ties go
// to the lexicographically smallest label, which is the lowest index
// since classes are sorted.
func (t *trainer) leaf(counts []float64) *node {
	return &node{leaf: true, class: floats.MaxIdx(counts)}
}

func (t *trainer) classCounts(rows []int) []float64 {
	counts := make([]float64, t.nclass)
	for _, r := range rows {
		counts[t.yi[r]]++
	}
	return counts
}

// gini computes 1 - sum(p^2) for class counts summing to n.
func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	var sumSq float64
	for _, c := range counts {
		p := c / n
		sumSq += p * p
	}
	return 1 - sumSq
}

func hasNaN(vec []float64) bool {
	for _, v := range vec {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// distinctSorted returns the sorted distinct labels among the kept
// rows.
func distinctSorted(y []string, rows []int) []string {
	set := map[string]bool{}
	for _, r := range rows {
		set[y[r]] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
