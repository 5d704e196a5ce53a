// Package serializer emits the two pipeline outputs (spec §4.6, §6):
// per-region JSONL (one orb/geojson Feature per line, carrying the
// address/locales/verbose fields) and an optional semicolon-delimited
// CSV for human inspection.
//
// Grounded on the teacher's JSON-encoding idiom (encoding/json throughout
// mumuon-tile-service) generalized to orb/geojson.Feature, the container
// type aurel42-phileasgo's shp2geojson command and geo package use for
// every orb.Geometry it serializes.
package serializer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/maksim-andrianov/geohierarchy/internal/hierarchy"
	"github.com/maksim-andrianov/geohierarchy/internal/multilang"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
	"github.com/maksim-andrianov/geohierarchy/internal/region"
)

// Options controls optional output detail (spec §4.6).
type Options struct {
	// Verbose appends per-ancestor _i/_a/_r debug fields (serial id,
	// area, rank) to the address object entries.
	Verbose bool
	// Transliterate supplies the fallback transliteration function used
	// by GetEnglishOrTransliteratedName when no "en" name is present.
	Transliterate func(multilang.Code, string) (string, bool)
	// ISOCode looks up the ISO3166-1 alpha2 code for a root (country)
	// node's object id, used to populate the "code" field (spec §6).
	// May be nil.
	ISOCode func(id string) (string, bool)
}

// JSONLWriter writes one GeoJSON Feature per line for every node in a
// hierarchy, tracking duplicate ids across independent roots (spec §7
// "duplicate-id").
type JSONLWriter struct {
	w       *bufio.Writer
	opts    Options
	seenIDs map[string]bool
}

// NewJSONLWriter wraps w.
func NewJSONLWriter(w io.Writer, opts Options) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w), opts: opts, seenIDs: make(map[string]bool)}
}

// WriteTree walks n's subtree pre-order, writing one JSONL line per
// node. A node whose id has already been emitted under a different
// parent is warned-and-dropped (spec §7 "duplicate-id": "not fatal").
// warn receives the offending id when that happens; pass nil to ignore.
func (jw *JSONLWriter) WriteTree(n *hierarchy.Node, warn func(id string)) error {
	var firstErr error
	hierarchy.Walk(n, func(node *hierarchy.Node) bool {
		key := node.Region.ID.String()
		if jw.seenIDs[key] {
			if warn != nil {
				warn(key)
			}
			return true
		}
		jw.seenIDs[key] = true

		if err := jw.writeNode(node); err != nil {
			firstErr = err
			return false
		}
		return true
	})
	return firstErr
}

func (jw *JSONLWriter) writeNode(n *hierarchy.Node) error {
	center := centerOf(n.Region)
	feature := geojson.NewFeature(orb.Point(center))

	name := ""
	if n.Region.Name != nil {
		name = n.Region.Name.GetEnglishOrTransliteratedName(jw.opts.Transliterate)
	}
	feature.Properties["name"] = name
	feature.Properties["rank"] = int(n.Region.Rank())
	feature.Properties["address"] = buildAddress(n, jw.opts.Verbose)
	feature.Properties["locales"] = buildLocales(n, jw.opts.Transliterate)

	if n.Parent == nil && n.Region.IsCountry() && jw.opts.ISOCode != nil {
		if code, ok := jw.opts.ISOCode(n.Region.ID.String()); ok {
			feature.Properties["code"] = code
		}
	}

	data, err := json.Marshal(feature)
	if err != nil {
		return fmt.Errorf("serializer: marshal feature %s: %w", n.Region.ID, err)
	}
	if _, err := jw.w.Write(data); err != nil {
		return fmt.Errorf("serializer: write feature %s: %w", n.Region.ID, err)
	}
	if _, err := jw.w.WriteString("\n"); err != nil {
		return fmt.Errorf("serializer: write newline: %w", err)
	}
	return nil
}

// Flush flushes buffered output.
func (jw *JSONLWriter) Flush() error {
	return jw.w.Flush()
}

// centerOf returns the node's center point: the Region's bound center
// (regions have no single stored point, so the bbox midpoint stands in
// for "center", matching how a derived/approximated polygon's centroid
// would be reported for a synthesized disc region).
func centerOf(r region.Region) orb.Point {
	b := r.Bound()
	return orb.Point{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2}
}

// buildAddress walks ancestors (innermost first) building the
// label->name map described in spec §4.6: "When two ancestors share a
// label ... the innermost wins", which falls out naturally here because
// the walk starts at the node itself and only ever sets a key once.
func buildAddress(n *hierarchy.Node, verbose bool) map[string]any {
	address := make(map[string]any)
	for cur := n; cur != nil; cur = cur.Parent {
		label := string(cur.Region.Label())
		if label == "" {
			continue
		}
		if _, exists := address[label]; exists {
			continue
		}
		name := ""
		if cur.Region.Name != nil {
			if s, ok := cur.Region.Name.GetString("en"); ok {
				name = s
			} else if s, ok := cur.Region.Name.GetString("default"); ok {
				name = s
			}
		}
		if !verbose {
			address[label] = name
			continue
		}
		address[label] = map[string]any{
			"name": name,
			"_i":   cur.Region.ID.Serial(),
			"_a":   cur.Region.Area(),
			"_r":   int(cur.Region.Rank()),
		}
	}
	return address
}

// buildLocales walks ancestors building a locales map keyed by label,
// holding each ancestor's English-or-transliterated name (spec §4.6
// "emits a locales section with the English or transliterated name per
// ancestor").
func buildLocales(n *hierarchy.Node, transliterate func(multilang.Code, string) (string, bool)) map[string]string {
	locales := make(map[string]string)
	for cur := n; cur != nil; cur = cur.Parent {
		label := string(cur.Region.Label())
		if label == "" {
			continue
		}
		if _, exists := locales[label]; exists {
			continue
		}
		if cur.Region.Name == nil {
			continue
		}
		locales[label] = cur.Region.Name.GetEnglishOrTransliteratedName(transliterate)
	}
	return locales
}

// WriteCSV writes the human-inspection CSV (spec §6: "Id;Parent
// id;Lat;Lon;Main type;Name[;MwmName;Level]", coordinates with 7
// fractional digits).
func WriteCSV(w io.Writer, n *hierarchy.Node, sourceFile string, level int, withExtra bool) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{"Id", "Parent id", "Lat", "Lon", "Main type", "Name"}
	if withExtra {
		header = append(header, "MwmName", "Level")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("serializer: write csv header: %w", err)
	}

	var walkErr error
	hierarchy.Walk(n, func(node *hierarchy.Node) bool {
		parentID := ""
		if node.Parent != nil {
			parentID = node.Parent.Region.ID.String()
		}
		center := centerOf(node.Region)
		name := ""
		if node.Region.Name != nil {
			if s, ok := node.Region.Name.GetString("en"); ok {
				name = s
			} else if s, ok := node.Region.Name.GetString("default"); ok {
				name = s
			}
		}
		row := []string{
			node.Region.ID.String(),
			parentID,
			strconv.FormatFloat(center[1], 'f', 7, 64),
			strconv.FormatFloat(center[0], 'f', 7, 64),
			string(node.Region.Label()),
			name,
		}
		if withExtra {
			row = append(row, sourceFile, strconv.Itoa(level))
		}
		if err := cw.Write(row); err != nil {
			walkErr = fmt.Errorf("serializer: write csv row %s: %w", node.Region.ID, err)
			return false
		}
		return true
	})
	if walkErr != nil {
		return walkErr
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("csv flush: %w", err))
	}
	return nil
}
