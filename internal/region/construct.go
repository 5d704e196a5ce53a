// Region Set Construction (spec §4.3): scans the Feature table once and
// materializes the two collections the repair/hierarchy stages consume.
//
// Grounded on generator/regions/region_base.cpp's region-from-feature
// construction: a closed area with a RegionInfo entry becomes a Region,
// a point with a RegionInfo entry becomes a PointCity, and an area with
// an empty outer ring fails with geometry-invalid rather than silently
// producing a zero-area region.
package region

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/multilang"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

// FeatureKind distinguishes the two geometry shapes Construct handles.
type FeatureKind int

const (
	FeatureUnknown FeatureKind = iota
	FeatureArea
	FeaturePoint
)

// Feature is the minimal geometry+name view of a parsed OSM primitive
// that the construction step needs. The Feature table itself (backed by
// an on-disk cache of raw nodes/ways/relations) is an external
// collaborator out of scope for this core (spec §1); callers adapt
// whatever their ingestion front end produces into this shape.
type Feature struct {
	ID      ids.ID
	Kind    FeatureKind
	Name    *multilang.Name
	Point   orb.Point
	Polygon orb.Polygon
}

// Construct scans features once, building a Region for every closed
// area with a regiondata.Info entry and a PointCity for every point
// with one (spec §4.3). Features without an Info entry, or with an
// unrecognized Kind, are silently skipped. An area feature with an empty
// outer ring produces a geometry-invalid error via warn and is dropped
// rather than aborting the scan (spec §7: "geometry-invalid drops the
// offending Region and logs a warning"). A missing or empty name is
// never an error; empty names are filtered later, by repair's §4.4.3
// pass.
func Construct(features []Feature, info *regiondata.Info, warn func(err error)) ([]Region, []*PointCity) {
	var regions []Region
	var cities []*PointCity

	for _, f := range features {
		rd, ok := info.Get(f.ID)
		if !ok {
			continue
		}

		switch f.Kind {
		case FeatureArea:
			if len(f.Polygon) == 0 || len(f.Polygon[0]) == 0 {
				if warn != nil {
					warn(pipelineerr.New(pipelineerr.KindGeometryInvalid, f.ID.String(),
						fmt.Errorf("empty outer ring")))
				}
				continue
			}
			regions = append(regions, New(f.ID, f.Name, rd, f.Polygon))
		case FeaturePoint:
			cities = append(cities, NewPointCity(f.ID, f.Name, rd, f.Point))
		}
	}

	return regions, cities
}
