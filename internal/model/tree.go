package model

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
)

// Tree is one fitted regression tree stored as a flat node array; node 0 is
// the root.
type Tree struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Node is an internal split (x[Feature] <= Threshold goes Left) or a leaf
// carrying one value per model output.
type Node struct {
	Feature   int       `json:"feature,omitempty" yaml:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Left      int       `json:"left,omitempty" yaml:"left,omitempty"`
	Right     int       `json:"right,omitempty" yaml:"right,omitempty"`
	Leaf      bool      `json:"leaf,omitempty" yaml:"leaf,omitempty"`
	Value     []float64 `json:"value,omitempty" yaml:"value,omitempty"`
	// Gain is the weighted impurity decrease of the split, used for
	// feature importances. Optional.
	Gain float64 `json:"gain,omitempty" yaml:"gain,omitempty"`
}

var errTreeWalk = errors.New("tree walk did not reach a leaf")

// TreeEnsemble averages the leaf values of its trees (random forest
// regression).
type TreeEnsemble struct {
	trees     []Tree
	nFeatures int
	nOutputs  int
}

// NewTreeEnsemble validates the trees against the feature count. When
// nOutputs is zero it is taken from the first leaf found.
func NewTreeEnsemble(trees []Tree, nFeatures, nOutputs int) (*TreeEnsemble, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: tree ensemble has no trees", ErrInvalidArtifact)
	}
	if nOutputs == 0 {
		nOutputs = firstLeafWidth(trees)
	}
	if nOutputs < 1 {
		return nil, fmt.Errorf("%w: cannot determine output count", ErrInvalidArtifact)
	}
	for ti, t := range trees {
		if err := validateTree(t, nFeatures, nOutputs); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %w", ErrInvalidArtifact, ti, err)
		}
	}
	return &TreeEnsemble{trees: trees, nFeatures: nFeatures, nOutputs: nOutputs}, nil
}

func firstLeafWidth(trees []Tree) int {
	for _, t := range trees {
		for _, n := range t.Nodes {
			if n.Leaf {
				return len(n.Value)
			}
		}
	}
	return 0
}

func validateTree(t Tree, nFeatures, nOutputs int) error {
	if len(t.Nodes) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if len(n.Value) != nOutputs {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(n.Value), nOutputs)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d, model has %d", i, n.Feature, nFeatures)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= 0 || child >= len(t.Nodes) || child == i {
				return fmt.Errorf("node %d has invalid child %d", i, child)
			}
		}
	}
	return nil
}

// NumOutputs implements Regressor.
func (e *TreeEnsemble) NumOutputs() int { return e.nOutputs }

// Predict implements Regressor.
func (e *TreeEnsemble) Predict(x []float64) ([]float64, error) {
	if len(x) != e.nFeatures {
		return nil, fmt.Errorf("got %d features, want %d", len(x), e.nFeatures)
	}
	perOutput := make([][]float64, e.nOutputs)
	for k := range perOutput {
		perOutput[k] = make([]float64, 0, len(e.trees))
	}
	for ti, t := range e.trees {
		leaf, err := walk(t, x)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
		for k, v := range leaf {
			perOutput[k] = append(perOutput[k], v)
		}
	}
	out := make([]float64, e.nOutputs)
	for k, vals := range perOutput {
		mean, err := stats.Mean(vals)
		if err != nil {
			return nil, fmt.Errorf("aggregate output %d: %w", k, err)
		}
		out[k] = mean
	}
	return out, nil
}

// walk follows splits from the root. A well-formed tree reaches a leaf in
// fewer steps than it has nodes.
func walk(t Tree, x []float64) ([]float64, error) {
	idx := 0
	for range len(t.Nodes) {
		n := t.Nodes[idx]
		if n.Leaf {
			return n.Value, nil
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return nil, errTreeWalk
}

// Importances implements Regressor. Scores are the summed split gains per
// feature, or split counts when no gains were exported, normalized to sum to
// one.
func (e *TreeEnsemble) Importances() []float64 {
	gains := make([]float64, e.nFeatures)
	counts := make([]float64, e.nFeatures)
	for _, t := range e.trees {
		for _, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			gains[n.Feature] += n.Gain
			counts[n.Feature]++
		}
	}
	if sum(gains) > 0 {
		return normalize(gains)
	}
	return normalize(counts)
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func normalize(v []float64) []float64 {
	total := sum(v)
	if total == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / total
	}
	return out
}
