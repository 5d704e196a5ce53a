package collector

import (
	"testing"

	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

func TestCollectPlaceNode(t *testing.T) {
	c := New(nil)
	cityID := ids.New(ids.KindNode, 1)
	c.Collect(Entity{
		ID:   cityID,
		Tags: map[string]string{"place": "city"},
	})

	rd, ok := c.Info().Get(cityID)
	if !ok {
		t.Fatalf("expected region data for city node")
	}
	if rd.Place != regiondata.PlaceCity {
		t.Fatalf("Place = %v, want PlaceCity", rd.Place)
	}
}

func TestCollectBoundaryWithAdminCentre(t *testing.T) {
	c := New(nil)
	countryID := ids.New(ids.KindRelation, 2)
	centerID := ids.New(ids.KindNode, 3)

	c.Collect(Entity{
		ID: countryID,
		Tags: map[string]string{
			"boundary":         "administrative",
			"admin_level":      "2",
			"ISO3166-1:alpha2": "FR",
			"ISO3166-1:alpha3": "FRA",
			"ISO3166-1:numeric": "250",
		},
		Members: []Member{
			{Role: "label", ID: ids.New(ids.KindNode, 99)},
			{Role: "admin_centre", ID: centerID},
		},
	})

	rd, ok := c.Info().Get(countryID)
	if !ok {
		t.Fatalf("expected region data for boundary relation")
	}
	if rd.AdminLevel != regiondata.ParseAdminLevel(2) {
		t.Fatalf("AdminLevel = %v, want 2", rd.AdminLevel)
	}
	center, has := rd.AdminCenter.Get()
	if !has || center != centerID {
		t.Fatalf("AdminCenter = %v, %v, want %v, true (admin_centre takes priority over label)", center, has, centerID)
	}

	iso, ok := c.Info().IsoCodes[countryID]
	if !ok || iso.Alpha2 != "FR" || iso.Alpha3 != "FRA" || iso.Numeric != "250" {
		t.Fatalf("iso code = %+v, %v", iso, ok)
	}
}

func TestCollectBoundaryFallsBackToLabelMember(t *testing.T) {
	c := New(nil)
	regionID := ids.New(ids.KindRelation, 4)
	labelID := ids.New(ids.KindNode, 5)

	c.Collect(Entity{
		ID:      regionID,
		Tags:    map[string]string{"boundary": "administrative", "admin_level": "4"},
		Members: []Member{{Role: "label", ID: labelID}},
	})

	rd, _ := c.Info().Get(regionID)
	center, has := rd.AdminCenter.Get()
	if !has || center != labelID {
		t.Fatalf("AdminCenter = %v, %v, want %v, true", center, has, labelID)
	}
}

func TestCollectIgnoresUnrelatedEntities(t *testing.T) {
	c := New(nil)
	c.Collect(Entity{ID: ids.New(ids.KindWay, 6), Tags: map[string]string{"highway": "residential"}})
	if len(c.Info().RegionData) != 0 {
		t.Fatalf("unrelated entity should not produce region data")
	}
}

func TestCollectNonCountryBoundaryHasNoIsoCode(t *testing.T) {
	c := New(nil)
	id := ids.New(ids.KindRelation, 7)
	c.Collect(Entity{
		ID:   id,
		Tags: map[string]string{"boundary": "administrative", "admin_level": "6", "ISO3166-1:alpha2": "XX"},
	})
	if _, ok := c.Info().IsoCodes[id]; ok {
		t.Fatalf("admin_level=6 boundary should not record an iso code")
	}
}
