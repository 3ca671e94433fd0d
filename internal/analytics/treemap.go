package analytics

import (
	"fmt"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// TreemapNode is one rectangle of a treemap. Value is FOB in USD and Share
// is the percentage of the root total.
type TreemapNode struct {
	Key      string        `json:"key"`
	Name     string        `json:"name"`
	Value    float64       `json:"value"`
	Share    float64       `json:"share_pct"`
	Children []TreemapNode `json:"children,omitempty"`
}

// Treemap builds a FOB hierarchy over one or two dimensions, e.g.
// country then product. Each level keeps its n largest nodes and folds the
// rest into "Outros"; n <= 0 keeps everything. The "Outros" node of the
// first level has no children.
func Treemap(t *trade.Table, levels []Dimension, n int) (TreemapNode, error) {
	if len(levels) == 0 || len(levels) > 2 {
		return TreemapNode{}, fmt.Errorf("%w: treemap needs 1 or 2 levels, got %d", ErrInvalidDimension, len(levels))
	}
	if len(levels) == 2 && levels[0] == levels[1] {
		return TreemapNode{}, fmt.Errorf("%w: treemap levels must differ", ErrInvalidDimension)
	}

	keyers := make([]keyer, len(levels))
	for i, dim := range levels {
		k, err := keyerFor(dim)
		if err != nil {
			return TreemapNode{}, err
		}
		keyers[i] = k
	}

	v := t.View()
	total := 0.0
	for _, fob := range v.FOB {
		total += fob
	}
	root := TreemapNode{Key: "total", Name: "Total", Value: total, Share: share(total, total)}

	top := TopN(aggregate(v, nil, keyers[0], total), n, MetricFOB, true)
	if len(levels) == 1 {
		root.Children = nodes(top)
		return root, nil
	}

	// row indices per first level key
	rows := make(map[string][]int, len(top))
	for i := 0; i < v.Len(); i++ {
		k, _ := keyers[0](v, i)
		rows[k] = append(rows[k], i)
	}

	root.Children = make([]TreemapNode, len(top))
	for i, g := range top {
		node := nodeOf(g)
		if g.Key != OthersKey {
			children := TopN(aggregate(v, rows[g.Key], keyers[1], total), n, MetricFOB, true)
			node.Children = nodes(children)
		}
		root.Children[i] = node
	}
	return root, nil
}

func nodeOf(g Group) TreemapNode {
	return TreemapNode{Key: g.Key, Name: g.Label, Value: g.FOB, Share: g.Share}
}

func nodes(groups []Group) []TreemapNode {
	out := make([]TreemapNode, len(groups))
	for i, g := range groups {
		out[i] = nodeOf(g)
	}
	return out
}
