package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/maksim-andrianov/geohierarchy/internal/affiliation"
	"github.com/maksim-andrianov/geohierarchy/internal/borders"
	"github.com/maksim-andrianov/geohierarchy/internal/config"
	"github.com/maksim-andrianov/geohierarchy/internal/hierarchy"
	"github.com/maksim-andrianov/geohierarchy/internal/jobstore"
	"github.com/maksim-andrianov/geohierarchy/internal/pipelineerr"
	"github.com/maksim-andrianov/geohierarchy/internal/pool"
	"github.com/maksim-andrianov/geohierarchy/internal/region"
	"github.com/maksim-andrianov/geohierarchy/internal/regiondata"
	"github.com/maksim-andrianov/geohierarchy/internal/repair"
	"github.com/maksim-andrianov/geohierarchy/internal/serializer"
)

// Run executes region set construction through serialization (spec
// §4.3-§4.6) for one invocation of cfg, writing the JSONL output (and,
// if cfg.OutputCSV is set, the CSV output), and returns the stage
// counters a caller can persist via internal/jobstore.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (jobstore.Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stats jobstore.Stats

	info, err := loadRegionData(cfg.Input)
	if err != nil {
		return stats, err
	}
	features, err := loadFeatureFile(cfg.Features)
	if err != nil {
		return stats, err
	}
	borderStore, err := loadBorders(cfg.Borders)
	if err != nil {
		return stats, err
	}

	regions, cities := region.Construct(features, info, func(warnErr error) {
		logger.Warn("dropping invalid feature", "error", warnErr)
	})
	stats.RegionsCollected = len(regions) + len(cities)
	logger.Info("constructed regions", "regions", len(regions), "cities", len(cities))

	regions = repair.Run(regions, cities)
	logger.Info("repair complete", "regions", len(regions))

	var countries, rest []region.Region
	for _, r := range regions {
		if r.IsCountry() {
			countries = append(countries, r)
		} else {
			rest = append(rest, r)
		}
	}
	stats.CountriesBuilt = len(countries)

	restByCountryName := narrowByAffiliation(logger, borderStore, cfg.WholeWorld, countries, rest)

	p := pool.New(cfg.Threads)
	defer p.Close()

	trees, err := pool.Map(ctx, p, countries, func(c region.Region) (*hierarchy.Node, error) {
		candidates, ok := restByCountryName[displayName(c)]
		if !ok {
			candidates = rest
		}
		return hierarchy.BuildCountryRegionTree(c, candidates), nil
	})
	if err != nil {
		return stats, pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("build country trees: %w", err))
	}
	trees = hierarchy.MergeCountryTrees(trees)
	stats.TreesMerged = len(trees)

	for _, t := range trees {
		if t == nil {
			continue
		}
		if err := hierarchy.CheckContainment(t); err != nil {
			return stats, pipelineerr.New(pipelineerr.KindInternal, t.Region.ID.String(), err)
		}
		if err := hierarchy.CheckRankMonotonicity(t); err != nil {
			return stats, pipelineerr.New(pipelineerr.KindInternal, t.Region.ID.String(), err)
		}
		if cfg.Verbose {
			s := hierarchy.ComputeStats(t)
			logger.Debug("country tree", "country", t.Region.ID.String(), "size", s.Size, "max_depth", s.MaxDepth)
		}
	}

	emitted, err := writeJSONL(cfg.OutputJSONL, trees, info, logger)
	if err != nil {
		return stats, err
	}
	stats.RegionsEmitted = emitted

	if cfg.OutputCSV != "" {
		if err := writeCSV(cfg.OutputCSV, trees, cfg.Borders); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func loadRegionData(path string) (*regiondata.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.KindIOMissing, "", fmt.Errorf("open region info %s: %w", path, err))
	}
	defer f.Close()
	return regiondata.Load(f)
}

func loadFeatureFile(path string) ([]region.Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.KindIOMissing, "", fmt.Errorf("open features %s: %w", path, err))
	}
	defer f.Close()
	return LoadFeatures(f)
}

func loadBorders(path string) (*borders.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.KindIOMissing, "", fmt.Errorf("open borders %s: %w", path, err))
	}
	defer f.Close()
	return borders.Load(f)
}

// narrowByAffiliation builds the affiliation index over the border
// store (spec §4.2) and uses it to bucket rest regions by the country
// border(s) their center point affiliates with, so BuildCountryRegionTree
// only has to bound-check the regions actually near that country rather
// than the whole world. Bucketing is a pre-filter only: every country
// not found by name in the bucket map (a data-quality mismatch between
// the region-info names and the border-file names) falls back to the
// full rest slice, so correctness never depends on the optimization
// succeeding.
func narrowByAffiliation(logger *slog.Logger, store *borders.Store, wholeWorld bool, countries, rest []region.Region) map[string][]region.Region {
	entries := store.All()
	affBorders := make([]affiliation.Border, len(entries))
	for i, e := range entries {
		affBorders[i] = affiliation.Border{Name: e.Name, Polygon: e.Polygon}
	}
	idx := affiliation.Build(logger, affBorders, wholeWorld)

	byName := make(map[string][]region.Region)
	for _, r := range rest {
		b := r.Bound()
		center := orb.Point{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2}
		for _, name := range idx.GetAffiliations(center) {
			byName[name] = append(byName[name], r)
		}
	}

	// Confirm every country resolved to a non-empty bucket at least
	// once so a systematic name mismatch surfaces as a log line instead
	// of a silent full-scan fallback for every country.
	var unmatched int
	for _, c := range countries {
		if _, ok := byName[displayName(c)]; !ok {
			unmatched++
		}
	}
	if unmatched > 0 {
		logger.Warn("affiliation narrowing missed some countries, falling back to full scan for them", "unmatched", unmatched, "total", len(countries))
	}
	return byName
}

func displayName(r region.Region) string {
	if r.Name == nil {
		return ""
	}
	if s, ok := r.Name.GetString("en"); ok {
		return s
	}
	if s, ok := r.Name.GetString("default"); ok {
		return s
	}
	return ""
}

func writeJSONL(path string, trees []*hierarchy.Node, info *regiondata.Info, logger *slog.Logger) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("create %s: %w", path, err))
	}
	defer f.Close()

	jw := serializer.NewJSONLWriter(f, serializer.Options{
		ISOCode: isoCodeLookup(info),
	})
	emitted := 0
	for _, t := range trees {
		if t == nil {
			continue
		}
		if err := jw.WriteTree(t, func(id string) {
			logger.Warn("duplicate region id across trees", "id", id)
		}); err != nil {
			return emitted, pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("write jsonl: %w", err))
		}
		hierarchy.Walk(t, func(*hierarchy.Node) bool { emitted++; return true })
	}
	if err := jw.Flush(); err != nil {
		return emitted, pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("flush jsonl: %w", err))
	}
	return emitted, nil
}

func isoCodeLookup(info *regiondata.Info) func(string) (string, bool) {
	alpha2ByIDString := make(map[string]string, len(info.IsoCodes))
	for id, code := range info.IsoCodes {
		if code.HasAlpha2() {
			alpha2ByIDString[id.String()] = code.Alpha2
		}
	}
	return func(idStr string) (string, bool) {
		code, ok := alpha2ByIDString[idStr]
		return code, ok
	}
}

// writeCSV writes every tree's rows into one CSV file sharing a single
// header, extending serializer.WriteCSV's single-tree row shape (spec
// §6) across the whole forest the pipeline produces.
func writeCSV(path string, trees []*hierarchy.Node, sourceFile string) error {
	f, err := os.Create(path)
	if err != nil {
		return pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("create %s: %w", path, err))
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = ';'
	if err := cw.Write([]string{"Id", "Parent id", "Lat", "Lon", "Main type", "Name", "MwmName", "Level"}); err != nil {
		return pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("write csv header: %w", err))
	}

	var walkErr error
	for _, t := range trees {
		if t == nil || walkErr != nil {
			continue
		}
		hierarchy.Walk(t, func(n *hierarchy.Node) bool {
			if err := writeCSVRow(cw, n, sourceFile); err != nil {
				walkErr = err
				return false
			}
			return true
		})
	}
	if walkErr != nil {
		return walkErr
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("flush csv: %w", err))
	}
	return nil
}

func writeCSVRow(cw *csv.Writer, n *hierarchy.Node, sourceFile string) error {
	parentID := ""
	if n.Parent != nil {
		parentID = n.Parent.Region.ID.String()
	}
	b := n.Region.Bound()
	lon, lat := (b.Min[0]+b.Max[0])/2, (b.Min[1]+b.Max[1])/2

	name := ""
	if n.Region.Name != nil {
		name = n.Region.Name.GetEnglishOrTransliteratedName(nil)
	}

	row := []string{
		n.Region.ID.String(),
		parentID,
		strconv.FormatFloat(lat, 'f', 7, 64),
		strconv.FormatFloat(lon, 'f', 7, 64),
		string(n.Region.Label()),
		name,
		sourceFile,
		strconv.Itoa(n.Depth()),
	}
	if err := cw.Write(row); err != nil {
		return pipelineerr.New(pipelineerr.KindInternal, "", fmt.Errorf("write csv row %s: %w", n.Region.ID, err))
	}
	return nil
}
