package inference

import (
	"fmt"
)

const (
	VotingSoft = "soft"
	VotingHard = "hard"
)

// Node is one decision-tree node. Left == -1 marks a leaf; a sample goes
// left when x[Feature] <= Threshold. Value holds per-class weights at leaves.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Estimator is one voter: a single tree or a forest averaged over its trees.
type Estimator struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight,omitempty"`
	Trees  []Tree  `json:"trees"`
}

// Ensemble is a voting classifier. Classes holds the target codes of the
// probability columns, decoded through the target label encoder.
type Ensemble struct {
	Voting     string      `json:"voting"`
	Classes    []int       `json:"classes"`
	Estimators []Estimator `json:"estimators"`
}

func (e Ensemble) validate(features int) error {
	if e.Voting != VotingSoft && e.Voting != VotingHard {
		return fmt.Errorf("unknown voting %q", e.Voting)
	}
	if len(e.Classes) == 0 {
		return fmt.Errorf("no classes")
	}
	if len(e.Estimators) == 0 {
		return fmt.Errorf("no estimators")
	}
	for _, est := range e.Estimators {
		if est.Weight < 0 {
			return fmt.Errorf("estimator %s: negative weight", est.Name)
		}
		if len(est.Trees) == 0 {
			return fmt.Errorf("estimator %s: no trees", est.Name)
		}
		for ti, t := range est.Trees {
			if err := t.validate(features, len(e.Classes)); err != nil {
				return fmt.Errorf("estimator %s tree %d: %w", est.Name, ti, err)
			}
		}
	}
	return nil
}

// validate also rules out cycles: children always follow their parent.
func (t Tree) validate(features, classes int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left == -1 {
			if len(n.Value) != classes {
				return fmt.Errorf("leaf %d has %d values for %d classes", i, len(n.Value), classes)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: bad children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// proba returns the normalized class distribution of the leaf x lands in.
func (t Tree) proba(x []float64) []float64 {
	i := 0
	for t.Nodes[i].Left != -1 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return normalize(t.Nodes[i].Value)
}

func (est Estimator) proba(x []float64, classes int) []float64 {
	out := make([]float64, classes)
	for _, t := range est.Trees {
		for k, p := range t.proba(x) {
			out[k] += p
		}
	}
	for k := range out {
		out[k] /= float64(len(est.Trees))
	}
	return out
}

func (est Estimator) weight() float64 {
	if est.Weight == 0 {
		return 1
	}
	return est.Weight
}

// Predict returns the index into Classes and the combined class scores.
func (e Ensemble) Predict(x []float64) (int, []float64) {
	scores := make([]float64, len(e.Classes))
	var total float64
	for _, est := range e.Estimators {
		p := est.proba(x, len(e.Classes))
		w := est.weight()
		total += w
		if e.Voting == VotingHard {
			scores[argmax(p)] += w
			continue
		}
		for k := range p {
			scores[k] += w * p[k]
		}
	}
	if total > 0 {
		for k := range scores {
			scores[k] /= total
		}
	}
	return argmax(scores), scores
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

// argmax breaks ties toward the lowest index.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
