// Package repair implements the two region-repair passes (spec §4.4):
// admin-center fusion, which folds a point-city's name/place into the
// area region that names it as its administrative center, and point
// approximation, which synthesizes disc-polygon regions for whatever
// point-cities remain unconsumed afterward.
//
// Grounded on generator/regions/regions_fixer.cpp:
// RegionsFixerWithAdminCenter and RegionsFixerWithPlacePointApproximation.
package repair

import (
	"math"
	"sort"

	"github.com/maksim-andrianov/geohierarchy/internal/geom"
	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/region"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

// radiusByPlace is the disc radius (mercator units) used by point
// approximation, keyed by place kind (spec §4.4.2). Locality and
// unknown have no entry and are dropped, per the spec's Open Question
// decision (DESIGN.md) to keep that behavior rather than "fix" it.
var radiusByPlace = map[regiondata.PlaceType]float64{
	regiondata.PlaceCity:              0.078,
	regiondata.PlaceTown:              0.033,
	regiondata.PlaceVillage:           0.013,
	regiondata.PlaceHamlet:            0.0067,
	regiondata.PlaceSuburb:            0.016,
	regiondata.PlaceNeighbourhood:     0.0035,
	regiondata.PlaceIsolatedDwelling:  0.0035,
}

// discPoints is the vertex count used for the synthesized circle
// polygon (spec §4.4.2, "a 16-point circle").
const discPoints = 16

// FuseAdminCenters runs the admin-center fusion pass (spec §4.4.1) over
// regions and cities in place, returning the possibly-reordered regions
// slice (unconsumed R_ac entries are moved back unchanged, consumed
// ones are mutated in place) and leaving consumed cities flagged via
// PointCity.MarkConsumed.
//
// cityByID must map every PointCity's id to itself (a lookup the caller
// builds once from the full city slice) so admin_center references can
// be resolved.
func FuseAdminCenters(regions []region.Region, cityByID map[ids.ID]*region.PointCity) []region.Region {
	withCenter := make([]int, 0, len(regions))
	for i := range regions {
		if _, has := regions[i].Data.AdminCenter.Get(); has {
			withCenter = append(withCenter, i)
		}
	}

	// Sort by area ascending, id ascending tiebreak for determinism
	// (spec §4.4.1, "stable sort order and iteration in area-ascending,
	// id-ascending tiebreak").
	sort.SliceStable(withCenter, func(i, j int) bool {
		ri, rj := &regions[withCenter[i]], &regions[withCenter[j]]
		if ri.Area() != rj.Area() {
			return ri.Area() < rj.Area()
		}
		return ri.ID.Less(rj.ID)
	})

	for _, i := range withCenter {
		r := &regions[i]
		if r.IsCountry() {
			continue
		}
		if r.HasLabel() {
			continue
		}

		centerID, _ := r.Data.AdminCenter.Get()
		city, ok := cityByID[centerID]
		if !ok || city.Consumed() {
			continue
		}

		radius, hasRadius := radiusByPlace[city.Data.Place]
		if !hasRadius {
			// No sanity radius for this place kind: fall back to
			// never clamping, matching the source's behavior when
			// GetRadiusByPlaceType has no matching case.
			radius = 0
		}
		if radius > 0 {
			maxArea := 10 * math.Pi * radius * radius
			if r.Area() > maxArea {
				continue
			}
		}

		if hasShadowRegion(regions, r, city) {
			continue
		}

		// Rebuild through region.New so rank and label are re-derived
		// from the fused place kind.
		data := r.Data
		data.AdminLevel = city.Data.AdminLevel
		data.Place = city.Data.Place
		*r = region.New(r.ID, city.Name, data, r.Polygon)
		city.MarkConsumed()
	}

	return regions
}

// hasShadowRegion reports whether some region other than target already
// represents the same locality as city: same rank (derived from city's
// place) and a polygon that contains the city's point (spec §4.4.1,
// "shadow" check). Names are not compared: any other region of that
// rank containing the point counts as a shadow, whatever its name.
func hasShadowRegion(regions []region.Region, target *region.Region, city *region.PointCity) bool {
	cityRank := int(city.Data.Place)
	for i := range regions {
		candidate := &regions[i]
		if candidate.ID == target.ID {
			continue
		}
		if int(candidate.Rank()) != cityRank {
			continue
		}
		if !candidate.HasPolygon() {
			continue
		}
		if !geom.PointInBound(city.Center, candidate.Bound()) {
			continue
		}
		if geom.PointInPolygon(candidate.Polygon, city.Center) {
			return true
		}
	}
	return false
}

// Approximate runs the point-approximation pass (spec §4.4.2): every
// unconsumed city with a known, non-locality place kind becomes a new
// disc-polygon region. Cities with an unknown place kind, or
// place=locality, are dropped (kept per DESIGN.md's Open Question
// decision). The returned regions are appended in city iteration order;
// callers needing a total order should sort afterward.
func Approximate(cities []*region.PointCity) []region.Region {
	var out []region.Region
	for _, city := range cities {
		if city.Consumed() {
			continue
		}
		if city.Data.Place == regiondata.PlaceLocality || city.Data.Place == regiondata.PlaceUnknown {
			continue
		}
		radius, ok := radiusByPlace[city.Data.Place]
		if !ok {
			continue
		}
		disc := geom.MakeDisc(city.Center, radius, discPoints)
		out = append(out, region.New(city.ID, city.Name, city.Data, disc))
		city.MarkConsumed()
	}
	return out
}

// Filter drops any region with an empty label or empty name (spec
// §4.4.3), delegating to the region package's stage so the behavior
// stays in one place.
func Filter(regions []region.Region) []region.Region {
	return region.FilterEmptyLabelOrName(regions)
}

// Run executes the full repair pipeline (fusion, then approximation,
// then filter) and returns the final region set.
func Run(regions []region.Region, cities []*region.PointCity) []region.Region {
	cityByID := make(map[ids.ID]*region.PointCity, len(cities))
	for _, c := range cities {
		cityByID[c.ID] = c
	}

	regions = FuseAdminCenters(regions, cityByID)
	regions = append(regions, Approximate(cities)...)
	return Filter(regions)
}
