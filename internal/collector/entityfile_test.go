package collector

import (
	"strings"
	"testing"

	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

func TestLoadEntitiesFeedsCollector(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"node:1","tags":{"place":"city"}}`,
		`{"id":"relation:2","tags":{"boundary":"administrative","admin_level":"2"},"members":[{"role":"admin_centre","id":"node:3"}]}`,
	}, "\n")

	c := New(nil)
	if err := LoadEntities(strings.NewReader(input), c); err != nil {
		t.Fatalf("LoadEntities: %v", err)
	}

	rd, ok := c.Info().Get(ids.New(ids.KindNode, 1))
	if !ok || rd.Place != regiondata.PlaceCity {
		t.Fatalf("city node: rd=%+v ok=%v", rd, ok)
	}

	rd2, ok := c.Info().Get(ids.New(ids.KindRelation, 2))
	if !ok {
		t.Fatalf("expected region data for boundary relation")
	}
	center, has := rd2.AdminCenter.Get()
	if !has || center != ids.New(ids.KindNode, 3) {
		t.Fatalf("AdminCenter = %v, %v", center, has)
	}
}

func TestLoadEntitiesRejectsMalformedLine(t *testing.T) {
	if err := LoadEntities(strings.NewReader("not json\n"), New(nil)); err == nil {
		t.Fatalf("expected format-mismatch error on malformed line")
	}
}

func TestLoadEntitiesRejectsBadID(t *testing.T) {
	if err := LoadEntities(strings.NewReader(`{"id":"not-an-id"}`+"\n"), New(nil)); err == nil {
		t.Fatalf("expected error on unparseable id")
	}
}
