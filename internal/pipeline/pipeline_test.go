package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/maksim-andrianov/geohierarchy/internal/borders"
	"github.com/maksim-andrianov/geohierarchy/internal/config"
	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

func square(minX, minY, maxX, maxY float64) [][][]float64 {
	return [][][]float64{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func squarePolygon(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func ringsJSON(rings [][][]float64) string {
	b, err := json.Marshal(rings)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func writeTempRegionData(t *testing.T) string {
	t.Helper()
	info := regiondata.NewInfo()
	info.RegionData[ids.New(ids.KindRelation, 1)] = regiondata.RegionData{AdminLevel: regiondata.ParseAdminLevel(2)}
	info.RegionData[ids.New(ids.KindNode, 2)] = regiondata.RegionData{Place: regiondata.ParsePlaceType("town")}

	path := filepath.Join(t.TempDir(), "region-info.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := regiondata.Save(f, info); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTempBorders(t *testing.T) string {
	t.Helper()
	s := borders.New()
	s.Add("Country_1", squarePolygon(0, 0, 10, 10))

	path := filepath.Join(t.TempDir(), "borders.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := borders.Save(f, s); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTempFeatures(t *testing.T) string {
	t.Helper()
	lines := []string{
		`{"id":"relation:1","kind":"area","names":{"en":"Country_1"},"rings":` + ringsJSON(square(0, 0, 10, 10)) + `}`,
		`{"id":"node:2","kind":"point","names":{"en":"Smalltown"},"point":[5,5]}`,
	}
	path := filepath.Join(t.TempDir(), "features.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunProducesJSONLWithCountryAndApproximatedTown(t *testing.T) {
	cfg := &config.Config{
		Input:       writeTempRegionData(t),
		Features:    writeTempFeatures(t),
		Borders:     writeTempBorders(t),
		OutputJSONL: filepath.Join(t.TempDir(), "out.jsonl"),
		Threads:     1,
	}

	stats, err := Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.CountriesBuilt != 1 {
		t.Fatalf("CountriesBuilt = %d, want 1", stats.CountriesBuilt)
	}
	if stats.RegionsEmitted < 1 {
		t.Fatalf("RegionsEmitted = %d, want >= 1", stats.RegionsEmitted)
	}

	f, err := os.Open(cfg.OutputJSONL)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		lines++
	}
	if lines != stats.RegionsEmitted {
		t.Fatalf("wrote %d JSONL lines, stats said %d", lines, stats.RegionsEmitted)
	}
}
