package scoring

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const eulerGamma = 0.5772156649015329

// Forest is an isolation forest. Points that random axis-aligned splits
// isolate quickly get short average path lengths and high scores.
type Forest struct {
	Trees         []*Tree `json:"trees"`
	NumTrees      int     `json:"num_trees"`
	SampleSize    int     `json:"sample_size"`
	HeightLimit   int     `json:"height_limit"`
	NumFeatures   int     `json:"num_features"`
	Contamination float64 `json:"contamination"`
	Seed          uint64  `json:"seed"`
	// Threshold is the training-score quantile at 1-contamination.
	Threshold float64 `json:"threshold"`
}

type Tree struct {
	Root *Node `json:"root"`
}

type Node struct {
	Leaf     bool    `json:"leaf"`
	Size     int     `json:"size,omitempty"`
	Dim      int     `json:"dim,omitempty"`
	SplitVal float64 `json:"split_val,omitempty"`
	Left     *Node   `json:"left,omitempty"`
	Right    *Node   `json:"right,omitempty"`
}

// Fit grows the ensemble on X. Every tree draws from its own PCG stream
// seeded in sequence from cfg.Seed, so parallel construction yields the
// same forest as a serial one.
func Fit(ctx context.Context, cfg Config, X [][]float64) (*Forest, error) {
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("scoring: cannot fit on zero samples")
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return nil, fmt.Errorf("scoring: row %d has %d features, want %d", i, len(row), d)
		}
	}

	psi := min(cfg.MaxSamples, n)
	f := &Forest{
		Trees:         make([]*Tree, cfg.NumTrees),
		NumTrees:      cfg.NumTrees,
		SampleSize:    psi,
		HeightLimit:   int(math.Ceil(math.Log2(float64(psi)))),
		NumFeatures:   d,
		Contamination: cfg.Contamination,
		Seed:          cfg.Seed,
	}

	master := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	seeds := make([]uint64, cfg.NumTrees)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())
	for i := range f.Trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			idx := rng.Perm(n)[:psi]
			sample := make([][]float64, psi)
			for j, k := range idx {
				sample[j] = X[k]
			}
			f.Trees[i] = &Tree{Root: buildTree(sample, 0, f.HeightLimit, rng)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	train := f.ScoreAll(X)
	sort.Float64s(train)
	f.Threshold = stat.Quantile(1-cfg.Contamination, stat.Empirical, train, nil)
	return f, nil
}

func buildTree(X [][]float64, h, hlim int, rng *rand.Rand) *Node {
	if len(X) <= 1 || h >= hlim {
		return &Node{Leaf: true, Size: len(X)}
	}

	d := len(X[0])
	lo := make([]float64, d)
	hi := make([]float64, d)
	copy(lo, X[0])
	copy(hi, X[0])
	for _, row := range X[1:] {
		for j, v := range row {
			if v < lo[j] {
				lo[j] = v
			}
			if v > hi[j] {
				hi[j] = v
			}
		}
	}

	var splittable []int
	for j := 0; j < d; j++ {
		if lo[j] < hi[j] {
			splittable = append(splittable, j)
		}
	}
	if len(splittable) == 0 {
		return &Node{Leaf: true, Size: len(X)}
	}

	dim := splittable[rng.IntN(len(splittable))]
	split := lo[dim] + rng.Float64()*(hi[dim]-lo[dim])

	left := make([][]float64, 0, len(X))
	right := make([][]float64, 0, len(X))
	for _, row := range X {
		if row[dim] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &Node{Leaf: true, Size: len(X)}
	}

	return &Node{
		Dim:      dim,
		SplitVal: split,
		Left:     buildTree(left, h+1, hlim, rng),
		Right:    buildTree(right, h+1, hlim, rng),
	}
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// binary search tree lookup over n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

func pathLength(node *Node, x []float64, h int) float64 {
	for !node.Leaf {
		if x[node.Dim] < node.SplitVal {
			node = node.Left
		} else {
			node = node.Right
		}
		h++
	}
	return float64(h) + averagePathLength(node.Size)
}

// Score returns 2^(-E[h(x)]/c(psi)) in (0,1]; higher is more anomalous.
func (f *Forest) Score(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += pathLength(t.Root, x, 0)
	}
	mean := sum / float64(len(f.Trees))
	c := averagePathLength(f.SampleSize)
	if c <= 0 {
		c = 1
	}
	return math.Pow(2, -mean/c)
}

// ScoreAll scores every row of X.
func (f *Forest) ScoreAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = f.Score(x)
	}
	return out
}

// Decision returns the threshold-relative score: positive values lie
// beyond the contamination quantile.
func (f *Forest) Decision(X [][]float64) []float64 {
	out := f.ScoreAll(X)
	for i := range out {
		out[i] -= f.Threshold
	}
	return out
}
