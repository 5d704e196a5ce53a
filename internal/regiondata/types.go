// Package regiondata implements the RegionData / IsoCode records
// attached to object ids during collection (spec §3, §4.1) and their
// versioned on-disk binary format (spec §6).
package regiondata

import "github.com/maksim-andrianov/geohierarchy/internal/ids"

// AdminLevel is an OSM boundary=administrative admin_level value,
// restricted to the [1,12] range used by the pipeline; AdminLevelUnknown
// covers everything else (spec §3).
type AdminLevel uint8

const AdminLevelUnknown AdminLevel = 0

// ParseAdminLevel parses the numeric admin_level tag value. Values
// outside [1,12] (and unparseable strings) map to AdminLevelUnknown
// rather than erroring, matching collector_region_info.cpp's
// FillRegionData, which logs and falls back rather than failing the run.
func ParseAdminLevel(level int) AdminLevel {
	if level < 1 || level > 12 {
		return AdminLevelUnknown
	}
	return AdminLevel(level)
}

// PlaceType is the OSM place=* tag, restricted to the values the
// hierarchy builder understands (spec §3). The known kinds start at 9,
// so that a place-derived rank (the enum value) is always above the
// admin-level ranks 2, 4 and 6.
type PlaceType uint8

const (
	PlaceUnknown PlaceType = 0
	PlaceCity    PlaceType = iota + 8
	PlaceTown
	PlaceVillage
	PlaceHamlet
	PlaceSuburb
	PlaceNeighbourhood
	PlaceLocality
	PlaceIsolatedDwelling
)

var placeNames = map[string]PlaceType{
	"city":              PlaceCity,
	"town":              PlaceTown,
	"village":           PlaceVillage,
	"hamlet":             PlaceHamlet,
	"suburb":            PlaceSuburb,
	"neighbourhood":      PlaceNeighbourhood,
	"locality":          PlaceLocality,
	"isolated_dwelling": PlaceIsolatedDwelling,
}

// ParsePlaceType maps an OSM place=* tag value to a PlaceType, returning
// PlaceUnknown for anything not in the table (EncodePlaceType in
// collector_region_info.cpp).
func ParsePlaceType(place string) PlaceType {
	if pt, ok := placeNames[place]; ok {
		return pt
	}
	return PlaceUnknown
}

func (p PlaceType) String() string {
	for name, pt := range placeNames {
		if pt == p {
			return name
		}
	}
	return "unknown"
}

// IsLocalityKind reports whether p is one of the "locality" label group
// used by Region.Rank/Label (spec §3 rank table): the settlement sizes
// city, town, village and hamlet.
func (p PlaceType) IsLocalityKind() bool {
	switch p {
	case PlaceCity, PlaceTown, PlaceVillage, PlaceHamlet:
		return true
	}
	return false
}

// IsSuburbKind reports whether p belongs to the "suburb" label group:
// suburb and neighbourhood.
func (p PlaceType) IsSuburbKind() bool {
	return p == PlaceSuburb || p == PlaceNeighbourhood
}

// IsSublocalityKind reports whether p belongs to the "sublocality" label
// group: locality and isolated-dwelling.
func (p PlaceType) IsSublocalityKind() bool {
	return p == PlaceLocality || p == PlaceIsolatedDwelling
}

// RegionData is the per-object-id record emitted by the Collector (spec
// §3, §4.1).
type RegionData struct {
	AdminLevel  AdminLevel
	Place       PlaceType
	AdminCenter ids.OptionalID
}

// HasPlaceType reports whether Place is a recognized, non-unknown value.
func (rd RegionData) HasPlaceType() bool { return rd.Place != PlaceUnknown }

// HasAdminLevel reports whether AdminLevel is in [1,12].
func (rd RegionData) HasAdminLevel() bool { return rd.AdminLevel != AdminLevelUnknown }

// IsoCode holds the three ISO-3166-1 encodings for an admin-level-2
// region, as fixed-size ASCII buffers including the NUL terminator (spec
// §6): alpha2 <= 3 bytes, alpha3 <= 4 bytes, numeric <= 4 bytes.
type IsoCode struct {
	Alpha2  string
	Alpha3  string
	Numeric string
}

func (c IsoCode) HasAlpha2() bool  { return c.Alpha2 != "" }
func (c IsoCode) HasAlpha3() bool  { return c.Alpha3 != "" }
func (c IsoCode) HasNumeric() bool { return c.Numeric != "" }
