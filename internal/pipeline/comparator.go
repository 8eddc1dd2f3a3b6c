package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
	"github.com/couchcryptid/heat-island-analysis/internal/observability"
)

// Comparator runs the per-period analysis across every configured period and
// folds the hotspot masks into the persistence comparison.
type Comparator struct {
	analyzer *Analyzer
	regions  RegionStore
	logger   *slog.Logger
	metrics  *observability.Metrics
	params   Params
}

// NewComparator creates a Comparator over the given region store and
// analyzer.
func NewComparator(analyzer *Analyzer, regions RegionStore, logger *slog.Logger, metrics *observability.Metrics, params Params) *Comparator {
	return &Comparator{
		analyzer: analyzer,
		regions:  regions,
		logger:   logger,
		metrics:  metrics,
		params:   params,
	}
}

// Compare analyzes every period for the named region and assembles the
// multi-period report. Periods are independent, so they run concurrently;
// the report orders them as configured regardless of completion order.
func (c *Comparator) Compare(ctx context.Context, regionName string, periods []domain.Period) (domain.AnalysisReport, error) {
	if len(periods) == 0 {
		return domain.AnalysisReport{}, errors.New("compare: no periods configured")
	}
	region, err := c.regions.Region(ctx, regionName)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("compare: resolve region %q: %w", regionName, err)
	}

	results := make([]domain.PeriodResult, len(periods))
	errs := make([]error, len(periods))

	var wg sync.WaitGroup
	for i, period := range periods {
		wg.Add(1)
		go func(i int, period domain.Period) {
			defer wg.Done()
			results[i], errs[i] = c.analyzer.AnalyzePeriod(ctx, region, period)
		}(i, period)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return domain.AnalysisReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.AnalysisReport{}, err
	}

	interM2, unionM2, diagnostics, err := c.combineMasks(region, results)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("compare: %w", err)
	}

	for _, res := range results {
		if res.HotspotAreaHa != nil {
			c.metrics.HotspotArea.WithLabelValues(res.Period.Label).Set(*res.HotspotAreaHa)
		}
	}

	report := domain.NewAnalysisReport(region.Name, results, interM2, unionM2, diagnostics)
	c.logger.Info("periods compared",
		"region", region.Name,
		"periods", len(periods),
		"persistent_area_ha", report.PersistentAreaHa,
		"union_area_ha", report.UnionAreaHa)
	return report, nil
}

// combineMasks intersects and unions the per-period hotspot masks and turns
// both into areas. A period without a mask (no scenes) contributes an empty
// mask, so persistence across all periods is empty by construction.
func (c *Comparator) combineMasks(region domain.Region, results []domain.PeriodResult) (interM2, unionM2 float64, diagnostics []string, err error) {
	var ref *domain.Grid
	for _, res := range results {
		if res.Hotspots != nil {
			g := res.Hotspots.Grid
			ref = &g
			break
		}
	}
	if ref == nil {
		// Every period came up empty; there is nothing to intersect.
		diagnostics = append(diagnostics, "no period produced a hotspot mask")
		return 0, 0, diagnostics, nil
	}

	masks := make([]*domain.Mask, 0, len(results))
	for _, res := range results {
		if res.Hotspots == nil {
			diagnostics = append(diagnostics,
				fmt.Sprintf("period %s contributed no hotspots", res.Period.Label))
			masks = append(masks, domain.NewMask(*ref))
			continue
		}
		if !res.Hotspots.Grid.Equal(*ref) {
			return 0, 0, nil, fmt.Errorf("period %s mask is on a different grid", res.Period.Label)
		}
		masks = append(masks, res.Hotspots)
	}

	intersection, err := domain.AndAll(masks...)
	if err != nil {
		return 0, 0, nil, err
	}
	union, err := domain.OrAll(masks...)
	if err != nil {
		return 0, 0, nil, err
	}

	interM2, _, err = maskAreaM2(*ref, intersection, region, c.params)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("persistent area: %w", err)
	}
	unionM2, coarsened, err := maskAreaM2(*ref, union, region, c.params)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("union area: %w", err)
	}
	if coarsened {
		diagnostics = append(diagnostics, "cross-period area sampling was coarsened")
	}
	return interM2, unionM2, diagnostics, nil
}
