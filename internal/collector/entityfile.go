package collector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/maksim-andrianov/geohierarchy/internal/ids"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
)

// EntityRecord is one line of the raw-entity JSONL feed a real OSM
// reader would otherwise supply: an object id, its tag map, and (for
// boundary relations) its member list. cmd/geohierarchy-collect reads
// this format and drives it through Collector the way an osmpbf-backed
// reader would drive Collect directly, without adapting this package's
// Entity/Member shapes.
type EntityRecord struct {
	ID      string            `json:"id"`
	Tags    map[string]string `json:"tags,omitempty"`
	Members []MemberRecord    `json:"members,omitempty"`
}

// MemberRecord is one relation member reference in the JSONL feed.
type MemberRecord struct {
	Role string `json:"role"`
	ID   string `json:"id"`
}

// LoadEntities reads one EntityRecord per line from r and feeds each,
// in file order, to c.Collect. A malformed line or an unparseable id
// fails the whole load with a format-mismatch error, matching
// LoadFeatures' all-or-nothing validation.
func LoadEntities(r io.Reader, c *Collector) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec EntityRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return pipelineerr.New(pipelineerr.KindFormatMismatch, "",
				fmt.Errorf("entities: line %d: decode: %w", lineNo, err))
		}

		e, err := rec.toEntity()
		if err != nil {
			return pipelineerr.New(pipelineerr.KindFormatMismatch, rec.ID,
				fmt.Errorf("entities: line %d: %w", lineNo, err))
		}
		c.Collect(e)
	}
	if err := scanner.Err(); err != nil {
		return pipelineerr.New(pipelineerr.KindIOMissing, "", fmt.Errorf("entities: scan: %w", err))
	}
	return nil
}

func (rec EntityRecord) toEntity() (Entity, error) {
	id, err := ids.Parse(rec.ID)
	if err != nil {
		return Entity{}, fmt.Errorf("id: %w", err)
	}

	members := make([]Member, 0, len(rec.Members))
	for i, m := range rec.Members {
		mid, err := ids.Parse(m.ID)
		if err != nil {
			return Entity{}, fmt.Errorf("member %d: id: %w", i, err)
		}
		members = append(members, Member{Role: m.Role, ID: mid})
	}

	return Entity{ID: id, Tags: rec.Tags, Members: members}, nil
}
