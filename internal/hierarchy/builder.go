package hierarchy

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/maksim-andrianov/geohierarchy/internal/pool"
	"github.com/maksim-andrianov/geohierarchy/internal/region"
)

// BuildCountryRegionTrees fans BuildCountryRegionTree out across every
// country in countries, running on p (spec §4.5 "Per-country tree
// construction" + §5 "embarrassingly parallel"). The order in which
// trees are built is non-deterministic, but the returned slice
// preserves countries' input order; the caller is expected to run
// MergeCountryTrees afterward to fold same-name country polygons
// together and reach the deterministic final shape (spec §5
// "Ordering").
func BuildCountryRegionTrees(ctx context.Context, p *pool.Pool, countries []region.Region, rest []region.Region) ([]*Node, error) {
	trees, err := pool.Map(ctx, p, countries, func(c region.Region) (*Node, error) {
		return BuildCountryRegionTree(c, rest), nil
	})
	if err != nil {
		return nil, err
	}
	return trees, nil
}

// Stats summarizes a tree for diagnostics and for the serializer's
// verbose debug fields (spec C.2 supplement, grounded on
// generator/regions.cpp's TreeSize/MaxDepth).
type Stats struct {
	Size     int
	MaxDepth int
}

// ComputeStats walks n's subtree once, returning its node count and
// maximum depth (root depth counts as 1, matching Node.Depth).
func ComputeStats(n *Node) Stats {
	if n == nil {
		return Stats{}
	}
	var walk func(node *Node, depth int) (int, int)
	walk = func(node *Node, depth int) (int, int) {
		size, maxDepth := 1, depth
		for _, c := range node.Children {
			cs, cd := walk(c, depth+1)
			size += cs
			if cd > maxDepth {
				maxDepth = cd
			}
		}
		return size, maxDepth
	}
	size, maxDepth := walk(n, 1)
	return Stats{Size: size, MaxDepth: maxDepth}
}

// DumpTree writes a human-readable indented tree to w, one line per
// node: depth-indented name (falling back to the region's id) and rank.
// This mirrors generator/regions.cpp's PrintTree debug helper. Neither
// the pipeline nor the tests call it.
func DumpTree(w io.Writer, n *Node) error {
	return dumpNode(w, n, 0)
}

func dumpNode(w io.Writer, n *Node, depth int) error {
	if n == nil {
		return nil
	}
	name := n.Region.ID.String()
	if n.Region.Name != nil {
		if s, ok := n.Region.Name.GetString("en"); ok {
			name = s
		} else if s, ok := n.Region.Name.GetString("default"); ok {
			name = s
		}
	}
	if _, err := fmt.Fprintf(w, "%s%s (rank=%d)\n", strings.Repeat("  ", depth), name, n.Region.Rank()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := dumpNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Walk invokes fn for every node in n's subtree, pre-order, stopping
// early if fn returns false.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// CheckContainment verifies property P1 (spec §8): for every non-root
// node, its region is contained in (or >=98% overlapping with) its
// parent's region. It returns the first violation found, or nil.
// An edge is tested only when both regions still carry their polygon.
// BuildCountryRegionTree frees the polygon of every node it pops (spec
// §3 lifecycle), so on a tree it returns every node but the root has
// no polygon and no edge is tested.
func CheckContainment(n *Node) error {
	var err error
	Walk(n, func(node *Node) bool {
		if node.Parent == nil {
			return true
		}
		if !node.Parent.Region.HasPolygon() || !node.Region.HasPolygon() {
			// Polygons already freed; containment was verified at
			// attach time and cannot be re-derived here.
			return true
		}
		if node.Parent.Region.Contains(&node.Region) {
			return true
		}
		if node.Parent.Region.CalculateOverlapPercentage(&node.Region) >= 98.0 {
			return true
		}
		err = fmt.Errorf("containment violated: parent %s does not contain child %s", node.Parent.Region.ID, node.Region.ID)
		return false
	})
	return err
}

// CheckRankMonotonicity verifies property P2: for every edge
// (parent,child) either parent.rank < child.rank or the ranks are
// equal (documented inversion aside, spec treats strict violation as a
// bug only when parent.rank > child.rank AND the pair wasn't produced
// by an explicit rank-inversion attach). BuildCountryRegionTree makes
// the side with the lower or equal rank the parent (on an inversion the
// geometrically smaller region becomes the parent), so a correctly
// built tree never presents parent.rank > child.rank; this check exists
// to catch regressions in that invariant.
func CheckRankMonotonicity(n *Node) error {
	var err error
	Walk(n, func(node *Node) bool {
		if node.Parent == nil {
			return true
		}
		if node.Parent.Region.Rank() > node.Region.Rank() {
			err = fmt.Errorf("rank monotonicity violated: parent %s (rank %d) > child %s (rank %d)",
				node.Parent.Region.ID, node.Parent.Region.Rank(), node.Region.ID, node.Region.Rank())
			return false
		}
		return true
	})
	return err
}
