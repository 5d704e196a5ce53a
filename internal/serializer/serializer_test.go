package serializer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/maksim-andrianov/geohierarchy/internal/hierarchy"
	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/multilang"
	"github.com/maksim-andrianov/geohierarchy/internal/region"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func named(s string) *multilang.Name {
	n := multilang.New()
	_ = n.AddString("en", s)
	return &n
}

func buildSampleTree() *hierarchy.Node {
	country := region.New(ids.New(ids.KindRelation, 1), named("Country"),
		regiondata.RegionData{AdminLevel: regiondata.ParseAdminLevel(2)}, square(0, 0, 10, 10))
	city := region.New(ids.New(ids.KindRelation, 2), named("City"),
		regiondata.RegionData{Place: regiondata.PlaceCity}, square(1, 1, 2, 2))

	root := &hierarchy.Node{Region: country}
	child := &hierarchy.Node{Region: city, Parent: root}
	root.Children = []*hierarchy.Node{child}
	return root
}

func TestWriteTreeEmitsOneLinePerNode(t *testing.T) {
	tree := buildSampleTree()
	var buf bytes.Buffer
	jw := NewJSONLWriter(&buf, Options{})
	if err := jw.WriteTree(tree, nil); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if err := jw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var feature map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &feature); err != nil {
		t.Fatalf("unmarshal line 0: %v", err)
	}
	if feature["type"] != "Feature" {
		t.Fatalf("type = %v, want Feature", feature["type"])
	}
	props, _ := feature["properties"].(map[string]any)
	if props["name"] != "Country" {
		t.Fatalf("name = %v, want Country", props["name"])
	}
}

func TestWriteTreeAddressInnermostWins(t *testing.T) {
	tree := buildSampleTree()
	var buf bytes.Buffer
	jw := NewJSONLWriter(&buf, Options{})
	if err := jw.WriteTree(tree, nil); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	_ = jw.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var cityLine map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &cityLine); err != nil {
		t.Fatalf("unmarshal city line: %v", err)
	}
	props := cityLine["properties"].(map[string]any)
	address := props["address"].(map[string]any)
	if address["locality"] != "City" {
		t.Fatalf("address[locality] = %v, want City", address["locality"])
	}
	if address["country"] != "Country" {
		t.Fatalf("address[country] = %v, want Country", address["country"])
	}
}

func TestWriteTreeDuplicateIDWarnsAndDrops(t *testing.T) {
	tree := buildSampleTree()
	forest := &hierarchy.Node{Children: []*hierarchy.Node{tree, tree}}

	var buf bytes.Buffer
	jw := NewJSONLWriter(&buf, Options{})

	var warned []string
	if err := jw.WriteTree(forest, func(id string) { warned = append(warned, id) }); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	if len(warned) == 0 {
		t.Fatalf("expected duplicate-id warnings for the repeated subtree")
	}
}

func TestWriteTreeWithISOCode(t *testing.T) {
	tree := buildSampleTree()
	var buf bytes.Buffer
	jw := NewJSONLWriter(&buf, Options{
		ISOCode: func(id string) (string, bool) {
			if id == tree.Region.ID.String() {
				return "US", true
			}
			return "", false
		},
	})
	if err := jw.WriteTree(tree, nil); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	_ = jw.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rootLine map[string]any
	_ = json.Unmarshal([]byte(lines[0]), &rootLine)
	props := rootLine["properties"].(map[string]any)
	if props["code"] != "US" {
		t.Fatalf("code = %v, want US", props["code"])
	}
}

func TestWriteCSVHeaderAndRows(t *testing.T) {
	tree := buildSampleTree()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tree, "borders.bin", 1, true); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines (1 header + 2 rows), want 3", len(lines))
	}
	if lines[0] != "Id;Parent id;Lat;Lon;Main type;Name;MwmName;Level" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Country") {
		t.Fatalf("root row missing name: %q", lines[1])
	}
}
