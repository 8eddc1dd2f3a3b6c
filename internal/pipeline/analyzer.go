// Package pipeline orchestrates the heat-island analysis: scene selection,
// cloud masking, temporal compositing, thresholding, and the multi-period
// comparison that produces the published report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
	"github.com/couchcryptid/heat-island-analysis/internal/observability"
)

// compositePercentile is the per-pixel temporal reduction: the median is
// robust against residual clouds the QA mask missed.
const compositePercentile = 50

// SceneQuery selects scenes for one analysis period.
type SceneQuery struct {
	Bound         orb.Bound
	Start, End    time.Time
	MaxCloudCover float64
}

// SceneCatalog yields the rasters matching a query, each carrying at least
// the thermal and quality bands on a common grid.
type SceneCatalog interface {
	Scenes(ctx context.Context, q SceneQuery) ([]*domain.Raster, error)
}

// RegionStore resolves a named analysis region.
type RegionStore interface {
	Region(ctx context.Context, name string) (domain.Region, error)
}

// ReportPublisher delivers a finished analysis report to the sink.
type ReportPublisher interface {
	Publish(ctx context.Context, report domain.AnalysisReport) error
}

// Params tunes the per-period analysis chain.
type Params struct {
	// UHIPercentile is the zonal LST percentile used as the hotspot
	// threshold.
	UHIPercentile int
	// MinPatchPixels drops hotspot components smaller than this many
	// pixels.
	MinPatchPixels int
	// MaxPatchSizeHint bounds buffer preallocation in component labeling.
	MaxPatchSizeHint int
	// MaxCloudCover excludes scenes above this scene-level cloud percentage.
	MaxCloudCover float64

	ZonalScale      float64
	ZonalMaxSamples int
	ZonalBestEffort bool
}

func (p Params) reduceSpec(stats []domain.Stat, percentiles []int) domain.ReduceSpec {
	return domain.ReduceSpec{
		Stats:       stats,
		Percentiles: percentiles,
		Scale:       p.ZonalScale,
		MaxSamples:  p.ZonalMaxSamples,
		BestEffort:  p.ZonalBestEffort,
	}
}

// Analyzer runs the single-period chain: mask, composite, convert,
// threshold, clean.
type Analyzer struct {
	catalog SceneCatalog
	logger  *slog.Logger
	metrics *observability.Metrics
	params  Params
}

// NewAnalyzer creates an Analyzer over the given scene catalog.
func NewAnalyzer(catalog SceneCatalog, logger *slog.Logger, metrics *observability.Metrics, params Params) *Analyzer {
	return &Analyzer{
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
		params:  params,
	}
}

// AnalyzePeriod produces the hotspot result for one region and period.
//
// Degraded inputs degrade the result instead of failing it: an empty scene
// collection or a region with no valid samples yields a result whose pointer
// fields are nil and whose diagnostics say why. Errors are reserved for
// malformed data and infrastructure failures.
func (a *Analyzer) AnalyzePeriod(ctx context.Context, region domain.Region, period domain.Period) (domain.PeriodResult, error) {
	res := domain.PeriodResult{Period: period}

	scenes, err := a.catalog.Scenes(ctx, SceneQuery{
		Bound:         region.Bound(),
		Start:         period.Start,
		End:           period.End,
		MaxCloudCover: a.params.MaxCloudCover,
	})
	if err != nil {
		return res, fmt.Errorf("period %s: list scenes: %w", period.Label, err)
	}
	res.SceneCount = len(scenes)

	if len(scenes) == 0 {
		a.metrics.EmptyCollections.Inc()
		a.logger.Warn("no usable scenes for period",
			"region", region.Name, "period", period.Label,
			"max_cloud_cover", a.params.MaxCloudCover)
		res.Diagnostics = append(res.Diagnostics, "no scenes matched the period filters")
		return res, nil
	}

	masked := make([]*domain.Raster, 0, len(scenes))
	for i, scene := range scenes {
		m, err := a.maskScene(scene)
		if err != nil {
			return res, fmt.Errorf("period %s: scene %d: %w", period.Label, i, err)
		}
		masked = append(masked, m)
	}
	a.metrics.ScenesComposited.Add(float64(len(masked)))

	lst, err := a.compositeLST(masked)
	if err != nil {
		return res, fmt.Errorf("period %s: %w", period.Label, err)
	}

	zonalPcts := dedupPercentiles([]int{5, 50, 95}, a.params.UHIPercentile)
	zr, err := domain.ReduceRegion(lst, domain.BandLST, region,
		a.params.reduceSpec([]domain.Stat{domain.StatMin, domain.StatMax, domain.StatMean}, zonalPcts))
	if err != nil {
		return res, fmt.Errorf("period %s: zonal statistics: %w", period.Label, err)
	}
	if zr.Coarsened {
		a.metrics.ZonalCoarsenings.Inc()
		res.Diagnostics = append(res.Diagnostics,
			fmt.Sprintf("zonal sampling coarsened from %gm to %gm", a.params.ZonalScale, zr.Scale))
	}
	res.LSTStats = zr.Values()

	threshold, fallback, err := domain.ThresholdFromResult(zr, domain.BandLST, a.params.UHIPercentile)
	if errors.Is(err, domain.ErrNoSamples) {
		res.Diagnostics = append(res.Diagnostics, "region has no valid samples; threshold undefined")
		res.Hotspots = domain.NewMask(lst.Grid)
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("period %s: threshold: %w", period.Label, err)
	}
	if fallback {
		a.metrics.ThresholdFallbacks.Inc()
		a.logger.Warn("threshold key missing, used first zonal entry",
			"region", region.Name, "period", period.Label)
		res.Diagnostics = append(res.Diagnostics, "threshold fell back to first zonal entry")
	}
	res.ThresholdC = &threshold
	res.ThresholdFallback = fallback

	raw, err := domain.HotspotMask(lst, domain.BandLST, threshold)
	if err != nil {
		return res, fmt.Errorf("period %s: hotspot mask: %w", period.Label, err)
	}
	cleaned := domain.FilterComponents(raw, a.params.MinPatchPixels, a.params.MaxPatchSizeHint)
	res.Hotspots = cleaned

	if err := a.fillAreas(&res, region, lst.Grid, cleaned); err != nil {
		return res, fmt.Errorf("period %s: %w", period.Label, err)
	}
	if err := a.fillSeverity(&res, region, lst, cleaned); err != nil {
		return res, fmt.Errorf("period %s: %w", period.Label, err)
	}

	a.logger.Info("period analyzed",
		"region", region.Name,
		"period", period.Label,
		"scenes", res.SceneCount,
		"threshold_c", threshold,
		"hotspot_pixels", cleaned.Count())
	return res, nil
}

// maskScene applies the quality-bit and sensor-range masks to one scene.
// Masks intersect: a pixel survives only if every mask accepts it.
func (a *Analyzer) maskScene(scene *domain.Raster) (*domain.Raster, error) {
	qa, ok := scene.Band(domain.BandQA)
	if !ok {
		return nil, fmt.Errorf("missing band %q", domain.BandQA)
	}
	qaValid, err := domain.QualityMask(qa, domain.DefaultQAChecks)
	if err != nil {
		return nil, err
	}
	out, err := scene.UpdateMask(qaValid)
	if err != nil {
		return nil, err
	}

	thermal, ok := out.Band(domain.BandThermal)
	if !ok {
		return nil, fmt.Errorf("missing band %q", domain.BandThermal)
	}
	rangeValid, err := domain.RangeMask(thermal, domain.ThermalDNLow, domain.ThermalDNHigh)
	if err != nil {
		return nil, err
	}
	return out.UpdateMask(rangeValid)
}

// compositeLST reduces the masked scenes to a single LST raster in Celsius:
// per-pixel median of the thermal DNs, then the radiometric conversion.
func (a *Analyzer) compositeLST(scenes []*domain.Raster) (*domain.Raster, error) {
	composite, err := domain.CompositePercentile(domain.Collection{Scenes: scenes}, domain.BandThermal, compositePercentile)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	compositeBand := fmt.Sprintf("%s_p%d", domain.BandThermal, compositePercentile)

	converted, err := domain.ConvertBand(composite, compositeBand,
		[]domain.Linear{domain.ThermalToKelvin, domain.KelvinToCelsius}, domain.BandLST)
	if err != nil {
		return nil, fmt.Errorf("radiometric conversion: %w", err)
	}
	return converted, nil
}

// fillAreas computes hotspot and region areas via pixel-area sums so that
// the numbers come from the same sampler as the statistics.
func (a *Analyzer) fillAreas(res *domain.PeriodResult, region domain.Region, g domain.Grid, hotspots *domain.Mask) error {
	hotM2, coarsened, err := maskAreaM2(hotspots.Grid, hotspots, region, a.params)
	if err != nil {
		return fmt.Errorf("hotspot area: %w", err)
	}
	totalM2, _, err := maskAreaM2(g, nil, region, a.params)
	if err != nil {
		return fmt.Errorf("region area: %w", err)
	}
	if coarsened {
		a.metrics.ZonalCoarsenings.Inc()
	}

	hotHa := hotM2 / domain.SquareMetersPerHectare
	totalHa := totalM2 / domain.SquareMetersPerHectare
	res.HotspotAreaHa = &hotHa
	res.TotalAreaHa = &totalHa
	if totalM2 > 0 {
		pct := hotM2 / totalM2 * 100
		res.HotspotPct = &pct
	}
	return nil
}

// fillSeverity reduces the LST band restricted to the hotspot mask. An empty
// mask leaves the severity fields nil.
func (a *Analyzer) fillSeverity(res *domain.PeriodResult, region domain.Region, lst *domain.Raster, hotspots *domain.Mask) error {
	if hotspots.Count() == 0 {
		return nil
	}
	hot, err := lst.UpdateMask(hotspots.Bools())
	if err != nil {
		return err
	}
	zr, err := domain.ReduceRegion(hot, domain.BandLST, region,
		a.params.reduceSpec([]domain.Stat{domain.StatMean, domain.StatMax}, nil))
	if err != nil {
		return fmt.Errorf("severity statistics: %w", err)
	}
	if mean, ok := zr.Get(domain.BandLST + "_mean"); ok {
		res.SeverityMeanC = &mean
	}
	if maxC, ok := zr.Get(domain.BandLST + "_max"); ok {
		res.SeverityMaxC = &maxC
	}
	return nil
}

// maskAreaM2 sums pixel areas over the region, restricted to the mask when
// one is given. An empty reduction means zero area, not an error.
func maskAreaM2(g domain.Grid, m *domain.Mask, region domain.Region, params Params) (float64, bool, error) {
	areas, err := domain.PixelAreaRaster(g, m)
	if err != nil {
		return 0, false, err
	}
	zr, err := domain.ReduceRegion(areas, "area", region,
		params.reduceSpec([]domain.Stat{domain.StatSum}, nil))
	if err != nil {
		return 0, false, err
	}
	sum, _ := zr.Get("area_sum")
	return sum, zr.Coarsened, nil
}

func dedupPercentiles(base []int, extra int) []int {
	for _, p := range base {
		if p == extra {
			return base
		}
	}
	return append(base, extra)
}
