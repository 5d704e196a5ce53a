// Package region implements the Region / PointCity model (spec §3,
// §4.3): named areas and populated-place points carrying a RegionData,
// with the derived rank/label table used for parent/child tiebreaking
// and for the serializer's address field names.
//
// Grounded on generator/regions/region.cpp's Region class: the
// rank/label derivation mirrors Region::Region's switch over place kind
// then admin_level, and Contains/ContainsRect/CalculateOverlapPercentage
// mirror the same-named methods there (delegated here to internal/geom,
// since this package owns no geometry algorithms of its own).
package region

import (
	"github.com/paulmach/orb"

	"github.com/maksim-andrianov/geohierarchy/internal/geom"
	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/multilang"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

// Rank is the integer used to break parent/child ties between two
// geometrically equivalent regions. Lower values are "larger" in the
// administrative sense. NoRank marks a region with no recognized
// label.
type Rank int

const NoRank Rank = -1

// Label is the coarse category name used both for Region.Label and as
// the key under which a region appears in an ancestor's address object
// (spec §4.6).
type Label string

const (
	LabelCountry     Label = "country"
	LabelRegion      Label = "region"
	LabelSubregion   Label = "subregion"
	LabelLocality    Label = "locality"
	LabelSuburb      Label = "suburb"
	LabelSublocality Label = "sublocality"
	LabelNone        Label = ""
)

// Region is an area with a multi-language name and a RegionData, plus
// the polygon/bbox/area/rank/label derived from it (spec §3).
type Region struct {
	ID       ids.ID
	Name     *multilang.Name
	Data     regiondata.RegionData
	Polygon  orb.Polygon
	bound    orb.Bound
	area     float64
	rank     Rank
	label    Label
	hasPoly  bool
}

// New constructs a Region from an id, name, RegionData, and polygon,
// precomputing bbox, area, rank and label exactly once (mirrors
// Region::Region's constructor work).
func New(id ids.ID, name *multilang.Name, data regiondata.RegionData, polygon orb.Polygon) Region {
	r := Region{ID: id, Name: name, Data: data}
	r.SetPolygon(polygon)
	r.rank, r.label = deriveRankAndLabel(data)
	return r
}

// SetPolygon installs (or replaces) the region's polygon, recomputing
// its bounding rectangle and area. Passing an empty polygon clears it
// (DeletePolygon, §3 "Regions ... may have their polygon freed").
func (r *Region) SetPolygon(p orb.Polygon) {
	r.Polygon = p
	if len(p) == 0 {
		r.hasPoly = false
		r.bound = orb.Bound{}
		r.area = 0
		return
	}
	r.hasPoly = true
	r.bound = geom.Bound(p)
	r.area = geom.Area(p)
}

// DeletePolygon frees the polygon once the region becomes an interior
// tree node, keeping the precomputed bbox/area/rank/label (spec §3
// lifecycle note, §4.5 step 4 "drop t's polygon to free memory").
func (r *Region) DeletePolygon() {
	r.Polygon = nil
	r.hasPoly = false
}

// HasPolygon reports whether the region still carries its polygon.
func (r *Region) HasPolygon() bool { return r.hasPoly }

// Bound returns the precomputed bounding rectangle.
func (r *Region) Bound() orb.Bound { return r.bound }

// Area returns the precomputed mercator-unit area.
func (r *Region) Area() float64 { return r.area }

// Rank returns the tiebreak rank.
func (r *Region) Rank() Rank { return r.rank }

// Label returns the derived coarse category label.
func (r *Region) Label() Label { return r.label }

// IsCountry reports whether the region has no place tag and
// admin_level = 2 (spec §3).
func (r *Region) IsCountry() bool {
	return !r.Data.HasPlaceType() && r.Data.AdminLevel == regiondata.AdminLevel(2)
}

// HasLabel reports whether the region carries a recognized label
// (non-empty label, used by admin-center fusion's "already labeled"
// skip condition, §4.4.1).
func (r *Region) HasLabel() bool { return r.label != LabelNone }

// deriveRankAndLabel implements the rank table (spec §3 table):
// place-derived labels take priority over admin-level-derived ones,
// mirroring Region::Region's place-kind switch falling through to
// admin_level only when place is unknown.
func deriveRankAndLabel(data regiondata.RegionData) (Rank, Label) {
	switch {
	case data.Place.IsLocalityKind():
		return Rank(data.Place), LabelLocality
	case data.Place.IsSuburbKind():
		return Rank(data.Place), LabelSuburb
	case data.Place.IsSublocalityKind():
		return Rank(data.Place), LabelSublocality
	}

	switch data.AdminLevel {
	case regiondata.AdminLevel(2):
		return Rank(2), LabelCountry
	case regiondata.AdminLevel(4):
		return Rank(4), LabelRegion
	case regiondata.AdminLevel(6):
		return Rank(6), LabelSubregion
	}
	return NoRank, LabelNone
}

// Contains reports whether r strictly contains other: bbox cover AND
// (polygon cover OR overlap-percentage >= 98), the containment test
// used throughout hierarchy construction (spec §4.5 step 4).
func (r *Region) Contains(other *Region) bool {
	if !geom.BoundCovers(r.bound, other.bound) {
		return false
	}
	if !r.hasPoly || !other.hasPoly {
		return false
	}
	if geom.Contains(r.Polygon, other.Polygon) {
		return true
	}
	return geom.OverlapPercentage(r.Polygon, other.Polygon) >= overlapThreshold
}

// overlapThreshold is the minimum overlap percentage the builder
// accepts as "effectively contained" (spec §4.5, §9; kept enabled per
// DESIGN.md's Open Question decision).
const overlapThreshold = 98.0

// ContainsRect reports whether other's bounding rectangle is covered by
// r's bounding rectangle, the cheap pre-filter used before a full
// Contains test.
func (r *Region) ContainsRect(other *Region) bool {
	return geom.BoundCovers(r.bound, other.bound)
}

// CalculateOverlapPercentage returns area(intersection(r,other)) /
// min(area(r),area(other)) * 100.
func (r *Region) CalculateOverlapPercentage(other *Region) float64 {
	if !r.hasPoly || !other.hasPoly {
		return 0
	}
	return geom.OverlapPercentage(r.Polygon, other.Polygon)
}

// PointCity is a populated-place node: center point + multi-language
// name + RegionData, with no polygon (spec §3).
type PointCity struct {
	ID       ids.ID
	Name     *multilang.Name
	Data     regiondata.RegionData
	Center   orb.Point
	consumed bool
}

// NewPointCity constructs a PointCity.
func NewPointCity(id ids.ID, name *multilang.Name, data regiondata.RegionData, center orb.Point) *PointCity {
	return &PointCity{ID: id, Name: name, Data: data, Center: center}
}

// Consumed reports whether this city has been fused into a Region or
// turned into a disc-polygon Region already.
func (p *PointCity) Consumed() bool { return p.consumed }

// MarkConsumed flags the city as used up by Repair (spec §4.4.1,
// §4.4.2 — a PointCity is consumed exactly once).
func (p *PointCity) MarkConsumed() { p.consumed = true }

// Stage is one step of a region-filtering/transformation pipeline
// (spec C.3 supplement): a pure function from one slice of regions to
// another, composed left-to-right by RunStages. This mirrors
// FilterRegions in region.cpp, generalized into a reusable primitive
// since the source applies several conceptually distinct filter/rewrite
// passes over the same Region slice (label filter, empty-name filter,
// and so on) in sequence.
type Stage func([]Region) []Region

// RunStages applies each stage to the output of the previous one,
// returning the final slice. An empty stages list returns regions
// unchanged.
func RunStages(regions []Region, stages ...Stage) []Region {
	for _, stage := range stages {
		regions = stage(regions)
	}
	return regions
}

// FilterEmptyLabelOrName drops any Region with an empty label or an
// empty (no-entries) multilang name, mirroring FilterRegions /
// §4.4.3's "drop any Region with empty label or empty name".
func FilterEmptyLabelOrName(regions []Region) []Region {
	out := regions[:0]
	for _, r := range regions {
		if !r.HasLabel() {
			continue
		}
		if r.Name == nil || r.Name.Len() == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}
