// Package pipeline wires the collection-through-serialization stages
// (spec §4.3-§4.6) into one run, and defines the JSONL feature feed the
// CLI reads features from.
//
// The raw OSM reader and Feature-table cache that would normally supply
// geometry to region construction are external collaborators out of
// scope for this core (spec §1). FeatureRecord and LoadFeatures are the
// practical stand-in: a flat JSONL file carrying exactly the fields
// region.Construct needs (id, kind, names, point or rings), the same
// role internal/borders' packed test double plays for the border file
// (SPEC_FULL §C.4).
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"

	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/multilang"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
	"github.com/maksim-andrianov/geohierarchy/internal/region"
)

// FeatureRecord is one line of the features JSONL feed: an object id,
// a "area" or "point" kind, a language-code-keyed name map, and either
// a point or a polygon ring sequence.
type FeatureRecord struct {
	ID     string            `json:"id"`
	Kind   string            `json:"kind"`
	Names  map[string]string `json:"names,omitempty"`
	Point  []float64         `json:"point,omitempty"`
	Rings  [][][]float64     `json:"rings,omitempty"`
}

// LoadFeatures reads one FeatureRecord per line from r and converts each
// into a region.Feature, in file order. A malformed line (bad JSON, an
// unparseable id, a point/rings array of the wrong shape) fails the
// whole load with a format-mismatch error, matching the on-disk
// region-info codec's all-or-nothing validation (spec §7).
func LoadFeatures(r io.Reader) ([]region.Feature, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var features []region.Feature
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec FeatureRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "",
				fmt.Errorf("features: line %d: decode: %w", lineNo, err))
		}

		f, err := rec.toFeature()
		if err != nil {
			return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, rec.ID,
				fmt.Errorf("features: line %d: %w", lineNo, err))
		}
		features = append(features, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, pipelineerr.New(pipelineerr.KindIOMissing, "", fmt.Errorf("features: scan: %w", err))
	}
	return features, nil
}

func (rec FeatureRecord) toFeature() (region.Feature, error) {
	id, err := ids.Parse(rec.ID)
	if err != nil {
		return region.Feature{}, fmt.Errorf("id: %w", err)
	}

	var name *multilang.Name
	if len(rec.Names) > 0 {
		n := multilang.New()
		for lang, s := range rec.Names {
			if err := n.AddString(lang, s); err != nil {
				return region.Feature{}, fmt.Errorf("name: %w", err)
			}
		}
		name = &n
	}

	f := region.Feature{ID: id, Name: name}

	switch rec.Kind {
	case "point":
		if len(rec.Point) != 2 {
			return region.Feature{}, fmt.Errorf("point feature needs exactly 2 coordinates, got %d", len(rec.Point))
		}
		f.Kind = region.FeaturePoint
		f.Point = orb.Point{rec.Point[0], rec.Point[1]}
	case "area":
		polygon, err := toPolygon(rec.Rings)
		if err != nil {
			return region.Feature{}, err
		}
		f.Kind = region.FeatureArea
		f.Polygon = polygon
	default:
		return region.Feature{}, fmt.Errorf("unrecognized kind %q (want \"area\" or \"point\")", rec.Kind)
	}
	return f, nil
}

func toPolygon(rings [][][]float64) (orb.Polygon, error) {
	polygon := make(orb.Polygon, 0, len(rings))
	for i, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, pt := range ring {
			if len(pt) != 2 {
				return nil, fmt.Errorf("ring %d: point with %d coordinates, want 2", i, len(pt))
			}
			r = append(r, orb.Point{pt[0], pt[1]})
		}
		polygon = append(polygon, r)
	}
	return polygon, nil
}
