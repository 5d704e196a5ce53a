package regiondata

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
)

// version is the on-disk format version byte (spec §6). Only 0 is
// currently defined; a mismatched version fails the run with
// format-mismatch, same as RegionInfo::ParseFile's CHECK_EQUAL.
const version uint8 = 0

const (
	alpha2BufSize  = 3
	alpha3BufSize  = 4
	numericBufSize = 4
)

// Info is the in-memory form of the two maps the Collector emits and the
// hierarchy pipeline consumes: per-id RegionData and, for admin-level-2
// ids only, an IsoCode.
type Info struct {
	RegionData map[ids.ID]RegionData
	IsoCodes   map[ids.ID]IsoCode
}

// NewInfo returns an empty Info ready for population.
func NewInfo() *Info {
	return &Info{
		RegionData: make(map[ids.ID]RegionData),
		IsoCodes:   make(map[ids.ID]IsoCode),
	}
}

// Get returns the RegionData for id and whether it was present.
func (info *Info) Get(id ids.ID) (RegionData, bool) {
	rd, ok := info.RegionData[id]
	return rd, ok
}

// Save writes the versioned binary format described in spec §6 to w.
func Save(w io.Writer, info *Info) error {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte(version); err != nil {
		return fmt.Errorf("regiondata: write version: %w", err)
	}
	if err := writeRegionDataMap(bw, info.RegionData); err != nil {
		return err
	}
	if err := writeIsoCodeMap(bw, info.IsoCodes); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("regiondata: flush: %w", err)
	}
	return nil
}

// Load reads and validates the versioned binary format, returning a
// format-mismatch pipeline error if the version byte or a length header
// fails validation.
func Load(r io.Reader) (*Info, error) {
	br := bufio.NewReader(r)

	v, err := br.ReadByte()
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "", fmt.Errorf("read version: %w", err))
	}
	if v != version {
		return nil, pipelineerr.Newf(pipelineerr.KindFormatMismatch, "", "unsupported region-info version %d (want %d)", v, version)
	}

	regionMap, err := readRegionDataMap(br)
	if err != nil {
		return nil, err
	}
	isoMap, err := readIsoCodeMap(br)
	if err != nil {
		return nil, err
	}

	return &Info{RegionData: regionMap, IsoCodes: isoMap}, nil
}

func writeRegionDataMap(w io.Writer, m map[ids.ID]RegionData) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(m))); err != nil {
		return fmt.Errorf("regiondata: write region map length: %w", err)
	}
	for id, rd := range m {
		if err := binary.Write(w, binary.LittleEndian, uint64(id)); err != nil {
			return fmt.Errorf("regiondata: write id: %w", err)
		}
		adminCenter, has := rd.AdminCenter.Get()
		var reserved uint8
		if has {
			reserved = 1
		}
		fields := []any{rd.AdminLevel, rd.Place, uint64(adminCenter), reserved}
		for _, f := range fields {
			if err := binary.Write(w, binary.LittleEndian, f); err != nil {
				return fmt.Errorf("regiondata: write region data: %w", err)
			}
		}
	}
	return nil
}

func readRegionDataMap(r io.Reader) (map[ids.ID]RegionData, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "", fmt.Errorf("read region map length: %w", err))
	}
	out := make(map[ids.ID]RegionData, n)
	for i := uint64(0); i < n; i++ {
		var rawID uint64
		if err := binary.Read(r, binary.LittleEndian, &rawID); err != nil {
			return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "", fmt.Errorf("read id: %w", err))
		}
		var adminLevel AdminLevel
		var place PlaceType
		var adminCenter uint64
		var reserved uint8
		for _, f := range []any{&adminLevel, &place, &adminCenter, &reserved} {
			if err := binary.Read(r, binary.LittleEndian, f); err != nil {
				return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "", fmt.Errorf("read region data: %w", err))
			}
		}
		rd := RegionData{AdminLevel: adminLevel, Place: place}
		if reserved != 0 {
			rd.AdminCenter = ids.Some(ids.ID(adminCenter))
		}
		out[ids.ID(rawID)] = rd
	}
	return out, nil
}

func writeIsoCodeMap(w io.Writer, m map[ids.ID]IsoCode) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(m))); err != nil {
		return fmt.Errorf("regiondata: write iso map length: %w", err)
	}
	for id, code := range m {
		if err := binary.Write(w, binary.LittleEndian, uint64(id)); err != nil {
			return fmt.Errorf("regiondata: write id: %w", err)
		}
		alpha2, err := fixedASCII(code.Alpha2, alpha2BufSize)
		if err != nil {
			return pipelineerr.New(pipelineerr.KindFormatMismatch, id.String(), fmt.Errorf("alpha2: %w", err))
		}
		alpha3, err := fixedASCII(code.Alpha3, alpha3BufSize)
		if err != nil {
			return pipelineerr.New(pipelineerr.KindFormatMismatch, id.String(), fmt.Errorf("alpha3: %w", err))
		}
		numeric, err := fixedASCII(code.Numeric, numericBufSize)
		if err != nil {
			return pipelineerr.New(pipelineerr.KindFormatMismatch, id.String(), fmt.Errorf("numeric: %w", err))
		}
		for _, buf := range [][]byte{alpha2, alpha3, numeric} {
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("regiondata: write iso buffer: %w", err)
			}
		}
	}
	return nil
}

func readIsoCodeMap(r io.Reader) (map[ids.ID]IsoCode, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "", fmt.Errorf("read iso map length: %w", err))
	}
	out := make(map[ids.ID]IsoCode, n)
	for i := uint64(0); i < n; i++ {
		var rawID uint64
		if err := binary.Read(r, binary.LittleEndian, &rawID); err != nil {
			return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "", fmt.Errorf("read id: %w", err))
		}
		alpha2 := make([]byte, alpha2BufSize)
		alpha3 := make([]byte, alpha3BufSize)
		numeric := make([]byte, numericBufSize)
		for _, buf := range [][]byte{alpha2, alpha3, numeric} {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, pipelineerr.New(pipelineerr.KindFormatMismatch, "", fmt.Errorf("read iso buffer: %w", err))
			}
		}
		out[ids.ID(rawID)] = IsoCode{
			Alpha2:  fromFixedASCII(alpha2),
			Alpha3:  fromFixedASCII(alpha3),
			Numeric: fromFixedASCII(numeric),
		}
	}
	return out, nil
}

// fixedASCII encodes s into a NUL-terminated fixed-size buffer, mirroring
// IsoCode::SetAlpha2's CHECK_LESS_OR_EQUAL(alpha2.size()+1, ARRAY_SIZE(...)).
// An oversized string is rejected rather than silently truncated.
func fixedASCII(s string, size int) ([]byte, error) {
	if len(s)+1 > size {
		return nil, fmt.Errorf("string %q (len %d) does not fit in a %d-byte buffer", s, len(s), size)
	}
	buf := make([]byte, size)
	copy(buf, s)
	return buf, nil
}

func fromFixedASCII(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
