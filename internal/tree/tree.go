// Package tree implements a categorical decision-tree classifier over
// band-value feature vectors: CART training with Gini-impurity splits
// and iterative-descent prediction.
package tree

import (
	"fmt"
	"strings"
)

// node is one split or leaf in the fitted tree. Internal nodes route a
// sample left when value[band] <= threshold; leaves carry a class
// index into Model.Classes.
type node struct {
	band      int
	threshold float64
	left      *node
	right     *node
	leaf      bool
	class     int
}

// Model is a fitted decision tree. It is immutable once built: Train
// is the only constructor and nothing mutates the node graph after it
// returns.
type Model struct {
	root    *node
	Classes []string
	Bands   []string
}

// PredictIndex descends the tree for one feature vector and returns
// the index of the predicted class in Classes. values must hold one
// valid (non-NaN) value per band.
func (m *Model) PredictIndex(values []float64) int {
	n := m.root
	for !n.leaf {
		if values[n.band] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.class
}

// Predict returns the predicted class label for one feature vector.
func (m *Model) Predict(values []float64) string {
	return m.Classes[m.PredictIndex(values)]
}

// Depth returns the number of levels in the tree; a single leaf has
// depth 1.
func (m *Model) Depth() int { return depth(m.root) }

func depth(n *node) int {
	if n == nil {
		return 0
	}
	if n.leaf {
		return 1
	}
	l, r := depth(n.left), depth(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// NodeCount returns the total number of nodes, leaves included.
func (m *Model) NodeCount() int { return count(m.root) }

func count(n *node) int {
	if n == nil {
		return 0
	}
	if n.leaf {
		return 1
	}
	return 1 + count(n.left) + count(n.right)
}

// String renders the tree as indented split rules, one node per line.
func (m *Model) String() string {
	var sb strings.Builder
	m.dump(&sb, m.root, 0)
	return sb.String()
}

func (m *Model) dump(sb *strings.Builder, n *node, indent int) {
	pad := strings.Repeat("  ", indent)
	if n.leaf {
		fmt.Fprintf(sb, "%s=> %s\n", pad, m.Classes[n.class])
		return
	}
	fmt.Fprintf(sb, "%s%s <= %g\n", pad, m.Bands[n.band], n.threshold)
	m.dump(sb, n.left, indent+1)
	m.dump(sb, n.right, indent+1)
}
