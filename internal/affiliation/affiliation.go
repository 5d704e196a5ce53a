// Package affiliation implements the spatial affiliation index (spec
// §4.2): given a border store partitioned into named files (countries,
// or regions within a single country), it answers "which files' borders
// does this geometry intersect" without testing every file's polygon
// against every input feature.
//
// It is grounded on generator/affiliation.cpp's
// CountriesFilesIndexAffiliation. Build inserts each border polygon's
// own bounding rectangle into an R-tree once, and queries test exact
// containment only against the borders whose rectangle the query
// touches. No mercator grid of cells is built and no per-cell candidate
// list is memoized. A process-wide cache keyed by (store identity,
// "have the whole world's borders") avoids rebuilding the same index
// across repeated invocations within one process, with the lookup and
// construction serialized under one mutex like the locking
// CountriesFilesIndexAffiliation uses around its static instance map.
//
// The actual interval tree used by affiliation.cpp (m4::Tree) has no
// direct Go analogue in the retrieved corpus; github.com/dhconnelly/rtreego
// (used by the T4ddy-metalink-core zone processor for exactly this kind
// of "find candidates whose bounding box intersects a query rectangle"
// query) fills the same role here.
package affiliation

import (
	"log/slog"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/maksim-andrianov/geohierarchy/internal/geom"
)

// GridStep is the mercator-degree step of the source's coarse candidate
// grid (spec §4.2, MakeNet(0.1, 0.1)). Build does not use it: the index
// is keyed on each border's bounding rectangle, not on grid cells.
const GridStep = 0.1

// Border is one named polygon the index can resolve affiliation
// against — typically a country border or a region within a country.
type Border struct {
	Name    string
	Polygon orb.Polygon
}

// entry adapts a Border into rtreego's Spatial interface.
type entry struct {
	border Border
	bound  orb.Bound
}

func (e *entry) Bounds() rtreego.Rect {
	rect, err := rtreego.NewRect(
		rtreego.Point{e.bound.Min[0], e.bound.Min[1]},
		[]float64{e.bound.Max[0] - e.bound.Min[0], e.bound.Max[1] - e.bound.Min[1]},
	)
	if err != nil {
		// A zero-size side (a degenerate, single-point border) is
		// rejected by rtreego.NewRect; pad it to a tiny rectangle so
		// the entry remains insertable.
		const eps = 1e-9
		rect, _ = rtreego.NewRect(
			rtreego.Point{e.bound.Min[0], e.bound.Min[1]},
			[]float64{maxF(e.bound.Max[0]-e.bound.Min[0], eps), maxF(e.bound.Max[1]-e.bound.Min[1], eps)},
		)
	}
	return rect
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Index resolves a point or geometry's bounding rectangle to the set of
// border names whose polygon it affiliates with.
type Index struct {
	logger *slog.Logger
	tree   *rtreego.Rtree
	// wholeWorld holds the single border name to return unconditionally
	// when the store covers the whole world with exactly one polygon
	// (the single-country short-circuit in
	// CountriesFilesIndexAffiliation::GetAffiliations).
	wholeWorld string
	isWorld    bool
}

// Build constructs an Index over borders. haveBordersForWholeWorld
// mirrors the source's constructor flag: when true and borders contains
// exactly one entry, every query short-circuits to that entry's name
// without touching the tree at all.
func Build(logger *slog.Logger, borders []Border, haveBordersForWholeWorld bool) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index{logger: logger}

	if haveBordersForWholeWorld && len(borders) == 1 {
		idx.isWorld = true
		idx.wholeWorld = borders[0].Name
		return idx
	}

	tree := rtreego.NewTree(2, 25, 50)
	for _, b := range borders {
		bound := geom.Bound(b.Polygon)
		tree.Insert(&entry{border: b, bound: bound})
	}
	idx.tree = tree
	return idx
}

// GetAffiliations returns the names of every border whose polygon the
// point lies within, matching SingleAffiliation's exact-containment
// semantics (as opposed to the bbox-only candidate search).
func (idx *Index) GetAffiliations(point orb.Point) []string {
	if idx.isWorld {
		return []string{idx.wholeWorld}
	}
	if idx.tree == nil {
		return nil
	}

	rect, err := rtreego.NewRect(rtreego.Point{point[0], point[1]}, []float64{1e-9, 1e-9})
	if err != nil {
		return nil
	}

	var names []string
	for _, item := range idx.tree.SearchIntersect(rect) {
		e, ok := item.(*entry)
		if !ok {
			continue
		}
		if !geom.PointInBound(point, e.bound) {
			continue
		}
		if geom.PointInPolygon(e.border.Polygon, point) {
			names = append(names, e.border.Name)
		}
	}
	return names
}

// CandidatesForBound returns every border whose bounding rectangle
// intersects bound, the coarse pre-filter step used before an exact
// polygon-polygon test (spec §4.2). An index built in whole-world mode
// holds no tree and returns nil.
func (idx *Index) CandidatesForBound(bound orb.Bound) []Border {
	if idx.isWorld {
		return nil
	}
	if idx.tree == nil {
		return nil
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{bound.Min[0], bound.Min[1]},
		[]float64{maxF(bound.Max[0]-bound.Min[0], 1e-9), maxF(bound.Max[1]-bound.Min[1], 1e-9)},
	)
	if err != nil {
		return nil
	}
	var out []Border
	for _, item := range idx.tree.SearchIntersect(rect) {
		if e, ok := item.(*entry); ok {
			out = append(out, e.border)
		}
	}
	return out
}

// cacheKey identifies a memoized Index by the identity of the store it
// was built from and the whole-world flag, matching
// CountriesFilesIndexAffiliation's static map keyed on
// (affiliationsDir, haveBordersForWholeWorld).
type cacheKey struct {
	path                     string
	haveBordersForWholeWorld bool
}

var (
	cacheMu sync.Mutex
	cache   = make(map[cacheKey]*Index)
)

// BuildMemoized returns a process-wide cached Index for path, building
// it if this is the first request for this (path,
// haveBordersForWholeWorld) pair. The lock is held across the cache
// check, load and build, so concurrent first requests for the same pair
// wait for one build instead of each loading borders. load is called
// only on a cache miss.
func BuildMemoized(logger *slog.Logger, path string, haveBordersForWholeWorld bool, load func() ([]Border, error)) (*Index, error) {
	key := cacheKey{path: path, haveBordersForWholeWorld: haveBordersForWholeWorld}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if idx, ok := cache[key]; ok {
		return idx, nil
	}

	borders, err := load()
	if err != nil {
		return nil, err
	}

	idx := Build(logger, borders, haveBordersForWholeWorld)
	cache[key] = idx
	return idx, nil
}
