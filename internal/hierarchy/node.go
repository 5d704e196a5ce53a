// Package hierarchy builds the per-country region tree (spec §4.5):
// nesting regions inside their geometric/administrative parent, then
// merging and normalizing the trees produced for each disjoint polygon
// of a country that straddles the antimeridian or is otherwise split
// across multiple polygons.
//
// Grounded on generator/regions/regions_builder.cpp's
// BuildCountryRegionTree / BuildCountryRegionTrees /
// GetNormalizedCountryTree.
package hierarchy

import (
	"sort"

	"github.com/maksim-andrianov/geohierarchy/internal/geom"
	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/region"
)

// Node is a tagged cell owning a Region value, a weak back-reference to
// its parent, and an owned, ordered sequence of children (spec §3
// "Hierarchy node").
type Node struct {
	Region   region.Region
	Parent   *Node
	Children []*Node
}

// Depth returns the node's depth (root = 1), computed by walking
// parents rather than stored as a field (spec §4.5 "Levels").
func (n *Node) Depth() int {
	depth := 1
	for p := n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

// BuildCountryRegionTree nests every region whose bbox falls inside
// country's bbox underneath its nearest geometric container, resolving
// rank inversions as described in spec §4.5 step 4. country itself is
// always included in the working set, so the result is never nil: it
// is the one node left, the head of the (area descending, rank
// ascending) sort, which is country unless another region has an equal
// area and a lower rank.
func BuildCountryRegionTree(country region.Region, rest []region.Region) *Node {
	working := make([]region.Region, 0, len(rest)+1)
	countryBound := country.Bound()
	for _, r := range rest {
		if geom.BoundCovers(countryBound, r.Bound()) {
			working = append(working, r)
		}
	}
	working = append(working, country)

	sort.SliceStable(working, func(i, j int) bool {
		if working[i].Area() != working[j].Area() {
			return working[i].Area() > working[j].Area()
		}
		return working[i].Rank() < working[j].Rank()
	})

	nodes := make([]*Node, len(working))
	for i := range working {
		nodes[i] = &Node{Region: working[i]}
	}

	for len(nodes) > 1 {
		last := len(nodes) - 1
		t := nodes[last]

		attached := false
		for i := last - 1; i >= 0; i-- {
			p := nodes[i]
			if !p.Region.Contains(&t.Region) {
				continue
			}
			if t.Region.Rank() > p.Region.Rank() {
				t.Parent = p
				p.Children = append(p.Children, t)
			} else {
				// Rank inversion (spec §4.5 step 4, P2's documented
				// exception): t is geometrically smaller but ranks
				// "above" its container, so the parent/child
				// relationship is inverted.
				p.Parent = t
				t.Children = append(t.Children, p)
			}
			t.Region.DeletePolygon()
			attached = true
			break
		}
		if !attached {
			t.Region.DeletePolygon()
		}
		nodes = nodes[:last]
	}

	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// byID provides the total id ordering used by NormalizeChildren.
func byID(a, b *Node) bool { return a.Region.ID.Less(b.Region.ID) }

// NormalizeChildren sorts children by id and folds every same-id group
// with MergeTree, reattaching surviving children's parent pointer to
// parent.
func NormalizeChildren(parent *Node, children []*Node) []*Node {
	if len(children) == 0 {
		return children
	}
	sort.SliceStable(children, func(i, j int) bool { return byID(children[i], children[j]) })

	out := make([]*Node, 0, len(children))
	i := 0
	for i < len(children) {
		j := i + 1
		merged := children[i]
		for j < len(children) && children[j].Region.ID == merged.Region.ID {
			merged = MergeTree(merged, children[j])
			j++
		}
		if merged != nil {
			merged.Parent = parent
			out = append(out, merged)
		}
		i = j
	}
	return out
}

// MergeTree merges two trees that represent the same named region split
// across disjoint polygons (spec §4.5 "Cross-country merging"): if
// either side is nil, the other is returned unchanged; if the roots
// disagree by id, nil is returned (the caller treats that as "cannot
// merge"); otherwise the larger-area root survives, both sides'
// children are concatenated under it, and the result needs a further
// NormalizeChildren pass to fold grandchildren sharing an id (performed
// by NormalizeTree's post-order walk, not here).
func MergeTree(l, r *Node) *Node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if l.Region.ID != r.Region.ID {
		return nil
	}

	winner, loser := l, r
	if r.Region.Area() > l.Region.Area() {
		winner, loser = r, l
	}

	merged := &Node{
		Region:   winner.Region,
		Parent:   winner.Parent,
		Children: append(append([]*Node{}, winner.Children...), loser.Children...),
	}
	for _, c := range merged.Children {
		c.Parent = merged
	}
	return merged
}

// NormalizeTree applies NormalizeChildren post-order to every node's
// children (spec §4.5), so grandchildren produced by an earlier
// MergeTree call that happen to share an id are folded too.
func NormalizeTree(n *Node) *Node {
	if n == nil {
		return nil
	}
	for i, c := range n.Children {
		n.Children[i] = NormalizeTree(c)
	}
	n.Children = NormalizeChildren(n, n.Children)
	return n
}

// MergeCountryTrees merges every tree in trees that shares the same
// root id, normalizing the result. Distinct country ids pass through
// unmerged. Used when a single country's polygons were processed as
// separate BuildCountryRegionTree calls (antimeridian-split countries,
// spec §4.5).
func MergeCountryTrees(trees []*Node) []*Node {
	byRootID := make(map[ids.ID]*Node)
	var order []ids.ID
	for _, t := range trees {
		if t == nil {
			continue
		}
		if existing, ok := byRootID[t.Region.ID]; ok {
			byRootID[t.Region.ID] = MergeTree(existing, t)
			continue
		}
		byRootID[t.Region.ID] = t
		order = append(order, t.Region.ID)
	}

	out := make([]*Node, 0, len(order))
	for _, id := range order {
		out = append(out, NormalizeTree(byRootID[id]))
	}
	return out
}
