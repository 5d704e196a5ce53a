// Package collector implements the Collector stage (spec §4.1): it
// walks parsed OSM entities (nodes carrying place=*, relations carrying
// boundary=administrative) and emits a regiondata.Info populated with
// RegionData and IsoCode records keyed by tagged object id.
//
// It is grounded on generator/regions/collector_region_info.cpp's
// CollectorRegionInfo: FillRegionData reads place/admin_level, FillIsoCode
// reads ISO3166-1 alpha2/alpha3/numeric tags on admin_level=2 boundaries,
// and the admin_centre role on a boundary relation's members supplies
// RegionData.AdminCenter.
package collector

import (
	"log/slog"
	"strconv"

	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
)

// Entity is the minimal view of a parsed OSM primitive the collector
// needs: its tagged id, its tag map, and (for relations) its member
// list. A real ingestion front end (an osmpbf reader, for example) adapts
// its primitives into this shape; the collector itself has no I/O.
type Entity struct {
	ID      ids.ID
	Tags    map[string]string
	Members []Member
}

// Member is a relation member reference, used to locate the
// admin_centre node of a boundary=administrative relation.
type Member struct {
	Role string
	ID   ids.ID
}

// Collector accumulates RegionData and IsoCode records across a stream
// of entities, mirroring CollectorRegionInfo's single-pass Collect.
type Collector struct {
	logger *slog.Logger
	info   *regiondata.Info
}

// New returns an empty Collector.
func New(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		logger: logger,
		info:   regiondata.NewInfo(),
	}
}

// Collect processes one entity, recording RegionData (and, for
// admin_level=2 boundaries, IsoCode) when the entity's tags qualify it
// as a place node or an administrative boundary relation. Entities with
// neither tag are silently skipped, matching FillRegionData's early
// return when no relevant tag is present.
func (c *Collector) Collect(e Entity) {
	place := regiondata.ParsePlaceType(e.Tags["place"])
	adminLevel := regiondata.AdminLevelUnknown
	if raw, ok := e.Tags["admin_level"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			adminLevel = regiondata.ParseAdminLevel(n)
		} else {
			c.logger.Warn("unparseable admin_level tag", "id", e.ID.String(), "value", raw)
		}
	}

	isBoundary := e.Tags["boundary"] == "administrative"
	if place == regiondata.PlaceUnknown && !isBoundary {
		return
	}

	rd := regiondata.RegionData{
		AdminLevel: adminLevel,
		Place:      place,
	}
	if isBoundary {
		if centerID, ok := adminCentre(e.Members); ok {
			rd.AdminCenter = ids.Some(centerID)
		}
	}
	c.info.RegionData[e.ID] = rd

	if isBoundary && adminLevel == regiondata.AdminLevel(2) {
		iso := regiondata.IsoCode{
			Alpha2:  e.Tags["ISO3166-1:alpha2"],
			Alpha3:  e.Tags["ISO3166-1:alpha3"],
			Numeric: e.Tags["ISO3166-1:numeric"],
		}
		if iso.HasAlpha2() || iso.HasAlpha3() || iso.HasNumeric() {
			c.info.IsoCodes[e.ID] = iso
		}
	}
}

// adminCentre returns the id of the first member with role
// "admin_centre" or, when there is none, of the first member with role
// "label", matching RegionInfo's admin-centre lookup order.
func adminCentre(members []Member) (ids.ID, bool) {
	for _, m := range members {
		if m.Role == "admin_centre" {
			return m.ID, true
		}
	}
	for _, m := range members {
		if m.Role == "label" {
			return m.ID, true
		}
	}
	return 0, false
}

// Info returns the accumulated RegionData/IsoCode records, ready for
// regiondata.Save or direct use by the hierarchy builder.
func (c *Collector) Info() *regiondata.Info {
	return c.info
}
