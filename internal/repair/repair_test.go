package repair

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

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

func nameWith(lang, s string) *multilang.Name {
	n := multilang.New()
	_ = n.AddString(lang, s)
	return &n
}

// TestFuseAdminCenters covers scenario S3: a no-place region A with
// admin_center = node-9 gains PointCity-9's name/place after fusion,
// and the city is consumed. A is a 0.4x0.4 square (area 0.16), inside
// the city sanity clamp of 10*pi*0.078^2 (about 0.19).
func TestFuseAdminCenters(t *testing.T) {
	cityID := ids.New(ids.KindNode, 9)
	regionID := ids.New(ids.KindRelation, 1)

	city := region.NewPointCity(cityID, nameWith("en", "Metropolis"),
		regiondata.RegionData{Place: regiondata.PlaceCity}, orb.Point{5, 5})

	data := regiondata.RegionData{AdminCenter: ids.Some(cityID)}
	r := region.New(regionID, nameWith("en", "A"), data, square(4.8, 4.8, 5.2, 5.2))

	regions := FuseAdminCenters([]region.Region{r}, map[ids.ID]*region.PointCity{cityID: city})

	if !city.Consumed() {
		t.Fatalf("city should be consumed by fusion")
	}
	got, _ := regions[0].Name.GetString("en")
	if got != "Metropolis" {
		t.Fatalf("region name after fusion = %q, want Metropolis", got)
	}
	if regions[0].Data.Place != regiondata.PlaceCity {
		t.Fatalf("region place after fusion = %v, want city", regions[0].Data.Place)
	}
	if regions[0].Label() != region.LabelLocality {
		t.Fatalf("region label after fusion = %v, want locality", regions[0].Label())
	}
}

func TestFuseAdminCentersSkipsCountries(t *testing.T) {
	cityID := ids.New(ids.KindNode, 2)
	city := region.NewPointCity(cityID, nameWith("en", "Capital"),
		regiondata.RegionData{Place: regiondata.PlaceCity}, orb.Point{5, 5})

	data := regiondata.RegionData{AdminLevel: regiondata.ParseAdminLevel(2), AdminCenter: ids.Some(cityID)}
	r := region.New(ids.New(ids.KindRelation, 3), nameWith("en", "Country"), data, square(0, 0, 10, 10))

	FuseAdminCenters([]region.Region{r}, map[ids.ID]*region.PointCity{cityID: city})
	if city.Consumed() {
		t.Fatalf("a country should never be fused with its admin center")
	}
}

func TestFuseAdminCentersSkipsOversizedRegion(t *testing.T) {
	cityID := ids.New(ids.KindNode, 4)
	city := region.NewPointCity(cityID, nameWith("en", "Smallville"),
		regiondata.RegionData{Place: regiondata.PlaceHamlet}, orb.Point{5, 5})

	// hamlet radius is 0.0067, so 10*pi*r^2 is tiny; a 10x10 region is
	// far larger than the sanity clamp allows.
	data := regiondata.RegionData{AdminCenter: ids.Some(cityID)}
	r := region.New(ids.New(ids.KindRelation, 5), nameWith("en", "A"), data, square(0, 0, 10, 10))

	FuseAdminCenters([]region.Region{r}, map[ids.ID]*region.PointCity{cityID: city})
	if city.Consumed() {
		t.Fatalf("oversized region should not be fused (sanity clamp)")
	}
}

// TestApproximate covers scenario S4: a town PointCity with no matching
// region becomes a 16-vertex disc region with radius 0.033.
func TestApproximate(t *testing.T) {
	cityID := ids.New(ids.KindNode, 7)
	city := region.NewPointCity(cityID, nameWith("en", "Townsville"),
		regiondata.RegionData{Place: regiondata.PlaceTown}, orb.Point{0, 0})

	regions := Approximate([]*region.PointCity{city})
	if len(regions) != 1 {
		t.Fatalf("expected 1 synthesized region, got %d", len(regions))
	}
	if !city.Consumed() {
		t.Fatalf("city should be consumed after approximation")
	}
	ring := regions[0].Polygon[0]
	if len(ring) != discPoints+1 {
		t.Fatalf("disc ring has %d points, want %d (closed 16-gon)", len(ring), discPoints+1)
	}
	area := regions[0].Area()
	expected := math.Pi * 0.033 * 0.033
	if math.Abs(area-expected) > expected*0.1 {
		t.Fatalf("disc area = %v, want close to %v", area, expected)
	}
}

func TestApproximateDropsLocalityAndUnknown(t *testing.T) {
	locality := region.NewPointCity(ids.New(ids.KindNode, 8), nameWith("en", "x"),
		regiondata.RegionData{Place: regiondata.PlaceLocality}, orb.Point{0, 0})
	unknown := region.NewPointCity(ids.New(ids.KindNode, 9), nameWith("en", "y"),
		regiondata.RegionData{Place: regiondata.PlaceUnknown}, orb.Point{0, 0})

	regions := Approximate([]*region.PointCity{locality, unknown})
	if len(regions) != 0 {
		t.Fatalf("locality/unknown place cities should not be approximated, got %d regions", len(regions))
	}
	if locality.Consumed() || unknown.Consumed() {
		t.Fatalf("dropped cities should not be marked consumed")
	}
}

func TestFilterDropsEmptyLabelOrName(t *testing.T) {
	labeled := region.New(ids.New(ids.KindRelation, 10), nameWith("en", "Named"),
		regiondata.RegionData{AdminLevel: regiondata.ParseAdminLevel(2)}, square(0, 0, 1, 1))
	unlabeled := region.New(ids.New(ids.KindRelation, 11), nameWith("en", "NoLabel"),
		regiondata.RegionData{AdminLevel: regiondata.ParseAdminLevel(9)}, square(0, 0, 1, 1))

	got := Filter([]region.Region{labeled, unlabeled})
	if len(got) != 1 || got[0].ID != labeled.ID {
		t.Fatalf("Filter kept %d regions, want only the labeled one", len(got))
	}
}

func TestRunEndToEnd(t *testing.T) {
	cityID := ids.New(ids.KindNode, 20)
	city := region.NewPointCity(cityID, nameWith("en", "Metropolis"),
		regiondata.RegionData{Place: regiondata.PlaceCity}, orb.Point{5, 5})

	data := regiondata.RegionData{AdminCenter: ids.Some(cityID)}
	// Small enough (area 0.16) to pass the city sanity clamp.
	r := region.New(ids.New(ids.KindRelation, 21), nameWith("en", "A"), data, square(4.8, 4.8, 5.2, 5.2))

	townCity := region.NewPointCity(ids.New(ids.KindNode, 22), nameWith("en", "Townsville"),
		regiondata.RegionData{Place: regiondata.PlaceTown}, orb.Point{50, 50})

	got := Run([]region.Region{r}, []*region.PointCity{city, townCity})
	if len(got) != 2 {
		t.Fatalf("Run produced %d regions, want 2 (fused A + synthesized town)", len(got))
	}
}
