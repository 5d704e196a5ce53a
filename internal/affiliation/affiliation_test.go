package affiliation

import (
	"sync"
	"testing"

	"github.com/paulmach/orb"
)

func square(name string, minX, minY, maxX, maxY float64) Border {
	return Border{
		Name: name,
		Polygon: orb.Polygon{orb.Ring{
			{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
		}},
	}
}

func TestGetAffiliationsSingleMatch(t *testing.T) {
	idx := Build(nil, []Border{
		square("france", 0, 0, 10, 10),
		square("germany", 20, 20, 30, 30),
	}, false)

	got := idx.GetAffiliations(orb.Point{5, 5})
	if len(got) != 1 || got[0] != "france" {
		t.Fatalf("GetAffiliations = %v, want [france]", got)
	}
}

func TestGetAffiliationsNoMatch(t *testing.T) {
	idx := Build(nil, []Border{square("france", 0, 0, 10, 10)}, false)
	if got := idx.GetAffiliations(orb.Point{100, 100}); len(got) != 0 {
		t.Fatalf("GetAffiliations = %v, want empty", got)
	}
}

func TestGetAffiliationsOverlappingBorders(t *testing.T) {
	idx := Build(nil, []Border{
		square("region-a", 0, 0, 10, 10),
		square("region-b", 5, 5, 15, 15),
	}, false)

	got := idx.GetAffiliations(orb.Point{7, 7})
	if len(got) != 2 {
		t.Fatalf("GetAffiliations in overlap zone = %v, want both regions", got)
	}
}

// TestWholeWorldShortCircuit covers property P6: when the store is
// flagged as covering the whole world with a single border, every query
// resolves to that border without consulting the tree.
func TestWholeWorldShortCircuit(t *testing.T) {
	idx := Build(nil, []Border{square("world", -180, -90, 180, 90)}, true)
	for _, pt := range []orb.Point{{0, 0}, {170, 80}, {-170, -80}} {
		got := idx.GetAffiliations(pt)
		if len(got) != 1 || got[0] != "world" {
			t.Fatalf("GetAffiliations(%v) = %v, want [world]", pt, got)
		}
	}
}

func TestBuildMemoizedCachesByPathAndFlag(t *testing.T) {
	cacheMu.Lock()
	cache = make(map[cacheKey]*Index)
	cacheMu.Unlock()

	var loadCount int
	var mu sync.Mutex
	load := func() ([]Border, error) {
		mu.Lock()
		loadCount++
		mu.Unlock()
		return []Border{square("x", 0, 0, 1, 1)}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := BuildMemoized(nil, "/path/a", false, load); err != nil {
				t.Errorf("BuildMemoized: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if loadCount != 1 {
		t.Fatalf("load called %d times concurrently, want exactly 1 (memoized)", loadCount)
	}

	// A different path, or a different haveBordersForWholeWorld flag for
	// the same path, must build independently.
	if _, err := BuildMemoized(nil, "/path/b", false, load); err != nil {
		t.Fatalf("BuildMemoized: %v", err)
	}
	if _, err := BuildMemoized(nil, "/path/a", true, load); err != nil {
		t.Fatalf("BuildMemoized: %v", err)
	}
	if loadCount != 3 {
		t.Fatalf("load called %d times across distinct keys, want 3", loadCount)
	}
}

func TestCandidatesForBound(t *testing.T) {
	idx := Build(nil, []Border{
		square("a", 0, 0, 10, 10),
		square("b", 100, 100, 110, 110),
	}, false)

	got := idx.CandidatesForBound(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{2, 2}})
	if len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("CandidatesForBound = %v, want [a]", got)
	}
}
