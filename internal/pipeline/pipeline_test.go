package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
	"github.com/couchcryptid/heat-island-analysis/internal/observability"
	"github.com/couchcryptid/heat-island-analysis/internal/pipeline"
)

// --- mocks ---

type mockCatalog struct {
	// scenes keyed by period start, so tests can give each period its own
	// collection.
	scenes map[time.Time][]*domain.Raster
	err    error

	mu      sync.Mutex
	queries []pipeline.SceneQuery
}

func (m *mockCatalog) Scenes(_ context.Context, q pipeline.SceneQuery) ([]*domain.Raster, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.scenes[q.Start], nil
}

type mockRegions struct {
	region domain.Region
	err    error
}

func (m *mockRegions) Region(_ context.Context, name string) (domain.Region, error) {
	if m.err != nil {
		return domain.Region{}, m.err
	}
	return m.region, nil
}

type mockPublisher struct {
	mu      sync.Mutex
	reports []domain.AnalysisReport
	err     error
}

func (m *mockPublisher) Publish(_ context.Context, report domain.AnalysisReport) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.reports = append(m.reports, report)
	m.mu.Unlock()
	return nil
}

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() pipeline.Params {
	return pipeline.Params{
		UHIPercentile:    92,
		MinPatchPixels:   3,
		MaxPatchSizeHint: 1024,
		MaxCloudCover:    30,
		ZonalScale:       30,
		ZonalBestEffort:  true,
	}
}

func testGrid() domain.Grid {
	return domain.Grid{Cols: 10, Rows: 10, OriginX: 0, OriginY: 300, PixelSize: 30}
}

func testRegion(t *testing.T) domain.Region {
	t.Helper()
	reg, err := domain.NewRegion("downtown", orb.Polygon{orb.Ring{
		{0, 0}, {300, 0}, {300, 300}, {0, 300}, {0, 0},
	}})
	require.NoError(t, err)
	return reg
}

// celsiusToDN encodes a surface temperature the way the sensor would store
// it, so the analysis has to run the full radiometric conversion to get it
// back.
func celsiusToDN(c float64) float64 {
	kelvin := domain.KelvinToCelsius.Inverse().Apply(c)
	return domain.ThermalToKelvin.Inverse().Apply(kelvin)
}

// makeScene builds a raster with a QA band and DN-encoded thermal band.
// cloudy pixels get the cloud QA bit and a bogus reading.
func makeScene(t *testing.T, g domain.Grid, celsius func(i int) float64, cloudy map[int]bool) *domain.Raster {
	t.Helper()
	qa := domain.NewBand(domain.BandQA, g.NumPixels())
	thermal := domain.NewBand(domain.BandThermal, g.NumPixels())
	for i := 0; i < g.NumPixels(); i++ {
		if cloudy[i] {
			qa.Set(i, float64(1<<domain.CloudBit))
			thermal.Set(i, 1) // garbage under cloud
			continue
		}
		qa.Set(i, 0)
		thermal.Set(i, celsiusToDN(celsius(i)))
	}
	r, err := domain.NewRaster(g, qa, thermal)
	require.NoError(t, err)
	return r
}

// warmBlock is a 3×3 block at rows 1..3, cols 1..3.
var warmBlock = map[int]bool{
	11: true, 12: true, 13: true,
	21: true, 22: true, 23: true,
	31: true, 32: true, 33: true,
}

func blockScene(t *testing.T, g domain.Grid, hotC, coolC float64, cloudy map[int]bool) *domain.Raster {
	t.Helper()
	return makeScene(t, g, func(i int) float64 {
		if warmBlock[i] {
			return hotC
		}
		return coolC
	}, cloudy)
}

func newAnalyzer(catalog pipeline.SceneCatalog, params pipeline.Params) *pipeline.Analyzer {
	return pipeline.NewAnalyzer(catalog, testLogger(), observability.NewMetricsForTesting(), params)
}

func summerPeriod(year int) domain.Period {
	return domain.Period{
		Label: fmt.Sprintf("summer-%d", year),
		Start: time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

// --- analyzer tests ---

func TestAnalyzer_AnalyzePeriod_DetectsWarmBlock(t *testing.T) {
	g := testGrid()
	period := summerPeriod(2024)

	// Three scenes; one has cloud cover over the warm block, which the QA
	// mask must remove before the median sees it.
	scenes := []*domain.Raster{
		blockScene(t, g, 40, 27, nil),
		blockScene(t, g, 40, 27, warmBlock),
		blockScene(t, g, 40, 27, nil),
	}
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{period.Start: scenes}}

	a := newAnalyzer(catalog, testParams())
	res, err := a.AnalyzePeriod(context.Background(), testRegion(t), period)
	require.NoError(t, err)

	assert.Equal(t, 3, res.SceneCount)
	require.NotNil(t, res.ThresholdC)
	assert.InDelta(t, 40, *res.ThresholdC, 1e-6)
	assert.False(t, res.ThresholdFallback)

	require.NotNil(t, res.Hotspots)
	assert.Equal(t, 9, res.Hotspots.Count())
	for i := range warmBlock {
		assert.True(t, res.Hotspots.At(i), "pixel %d", i)
	}

	require.NotNil(t, res.HotspotAreaHa)
	assert.InDelta(t, 9*900.0/10000, *res.HotspotAreaHa, 1e-9)
	require.NotNil(t, res.TotalAreaHa)
	assert.InDelta(t, 100*900.0/10000, *res.TotalAreaHa, 1e-9)
	require.NotNil(t, res.HotspotPct)
	assert.InDelta(t, 9, *res.HotspotPct, 1e-9)

	require.NotNil(t, res.SeverityMeanC)
	assert.InDelta(t, 40, *res.SeverityMeanC, 1e-6)
	require.NotNil(t, res.SeverityMaxC)
	assert.InDelta(t, 40, *res.SeverityMaxC, 1e-6)

	assert.InDelta(t, 27, res.LSTStats["LST_min"], 1e-6)
	assert.InDelta(t, 40, res.LSTStats["LST_max"], 1e-6)
}

func TestAnalyzer_AnalyzePeriod_MinPatchFiltersBlock(t *testing.T) {
	g := testGrid()
	period := summerPeriod(2024)
	scenes := []*domain.Raster{blockScene(t, g, 40, 27, nil)}
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{period.Start: scenes}}

	params := testParams()
	params.MinPatchPixels = 10 // warm block is only 9 pixels

	a := newAnalyzer(catalog, params)
	res, err := a.AnalyzePeriod(context.Background(), testRegion(t), period)
	require.NoError(t, err)

	require.NotNil(t, res.Hotspots)
	assert.Equal(t, 0, res.Hotspots.Count())
	require.NotNil(t, res.HotspotAreaHa)
	assert.Equal(t, 0.0, *res.HotspotAreaHa)
	assert.Nil(t, res.SeverityMeanC, "no hotspots, no severity")
}

func TestAnalyzer_AnalyzePeriod_EmptyCollection(t *testing.T) {
	period := summerPeriod(2024)
	catalog := &mockCatalog{}

	a := newAnalyzer(catalog, testParams())
	res, err := a.AnalyzePeriod(context.Background(), testRegion(t), period)
	require.NoError(t, err, "an empty period degrades, it does not fail")

	assert.Equal(t, 0, res.SceneCount)
	assert.Nil(t, res.ThresholdC)
	assert.Nil(t, res.Hotspots)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestAnalyzer_AnalyzePeriod_DisjointRegion(t *testing.T) {
	g := testGrid()
	period := summerPeriod(2024)
	scenes := []*domain.Raster{blockScene(t, g, 40, 27, nil)}
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{period.Start: scenes}}

	far, err := domain.NewRegion("elsewhere", orb.Polygon{orb.Ring{
		{9000, 9000}, {9300, 9000}, {9300, 9300}, {9000, 9300}, {9000, 9000},
	}})
	require.NoError(t, err)

	a := newAnalyzer(catalog, testParams())
	res, err := a.AnalyzePeriod(context.Background(), far, period)
	require.NoError(t, err)

	assert.Nil(t, res.ThresholdC, "threshold undefined without samples")
	require.NotNil(t, res.Hotspots)
	assert.Equal(t, 0, res.Hotspots.Count())
	assert.NotEmpty(t, res.Diagnostics)
}

func TestAnalyzer_AnalyzePeriod_CatalogError(t *testing.T) {
	catalog := &mockCatalog{err: errors.New("catalog unavailable")}

	a := newAnalyzer(catalog, testParams())
	_, err := a.AnalyzePeriod(context.Background(), testRegion(t), summerPeriod(2024))
	assert.Error(t, err)
}

func TestAnalyzer_AnalyzePeriod_QueryCarriesFilters(t *testing.T) {
	period := summerPeriod(2024)
	catalog := &mockCatalog{}

	a := newAnalyzer(catalog, testParams())
	region := testRegion(t)
	_, err := a.AnalyzePeriod(context.Background(), region, period)
	require.NoError(t, err)

	require.Len(t, catalog.queries, 1)
	q := catalog.queries[0]
	assert.Equal(t, period.Start, q.Start)
	assert.Equal(t, period.End, q.End)
	assert.Equal(t, 30.0, q.MaxCloudCover)
	assert.Equal(t, region.Bound(), q.Bound)
}

// --- comparator tests ---

func newComparator(catalog pipeline.SceneCatalog, regions pipeline.RegionStore, params pipeline.Params) *pipeline.Comparator {
	metrics := observability.NewMetricsForTesting()
	a := pipeline.NewAnalyzer(catalog, testLogger(), metrics, params)
	return pipeline.NewComparator(a, regions, testLogger(), metrics, params)
}

func TestComparator_Compare_PersistentHotspots(t *testing.T) {
	g := testGrid()
	p1, p2 := summerPeriod(2023), summerPeriod(2024)

	// The same warm block in both periods: full persistence.
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{
		p1.Start: {blockScene(t, g, 40, 27, nil)},
		p2.Start: {blockScene(t, g, 40, 27, nil)},
	}}
	regions := &mockRegions{region: testRegion(t)}

	c := newComparator(catalog, regions, testParams())
	report, err := c.Compare(context.Background(), "downtown", []domain.Period{p1, p2})
	require.NoError(t, err)

	assert.Equal(t, "downtown", report.Region)
	require.Len(t, report.Periods, 2)
	assert.Equal(t, "summer-2023", report.Periods[0].Period.Label)
	assert.Equal(t, "summer-2024", report.Periods[1].Period.Label)

	assert.InDelta(t, 0.81, report.PersistentAreaHa, 1e-9)
	assert.InDelta(t, 0.81, report.UnionAreaHa, 1e-9)
	require.NotNil(t, report.Jaccard)
	assert.InDelta(t, 1.0, *report.Jaccard, 1e-9)
}

func TestComparator_Compare_DisjointPeriods(t *testing.T) {
	g := testGrid()
	p1, p2 := summerPeriod(2023), summerPeriod(2024)

	// Period two's warm block moved: rows 6..8, cols 6..8.
	moved := map[int]bool{
		66: true, 67: true, 68: true,
		76: true, 77: true, 78: true,
		86: true, 87: true, 88: true,
	}
	scene2 := makeScene(t, g, func(i int) float64 {
		if moved[i] {
			return 40
		}
		return 27
	}, nil)

	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{
		p1.Start: {blockScene(t, g, 40, 27, nil)},
		p2.Start: {scene2},
	}}
	regions := &mockRegions{region: testRegion(t)}

	c := newComparator(catalog, regions, testParams())
	report, err := c.Compare(context.Background(), "downtown", []domain.Period{p1, p2})
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.PersistentAreaHa, "disjoint hotspots never persist")
	assert.InDelta(t, 1.62, report.UnionAreaHa, 1e-9, "union is the sum of disjoint areas")
	require.NotNil(t, report.Jaccard)
	assert.Equal(t, 0.0, *report.Jaccard)
}

func TestComparator_Compare_EmptyPeriodBreaksPersistence(t *testing.T) {
	g := testGrid()
	p1, p2 := summerPeriod(2023), summerPeriod(2024)

	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{
		p1.Start: {blockScene(t, g, 40, 27, nil)},
		// p2 has no scenes.
	}}
	regions := &mockRegions{region: testRegion(t)}

	c := newComparator(catalog, regions, testParams())
	report, err := c.Compare(context.Background(), "downtown", []domain.Period{p1, p2})
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.PersistentAreaHa)
	assert.InDelta(t, 0.81, report.UnionAreaHa, 1e-9)
	require.NotNil(t, report.Jaccard)
	assert.Equal(t, 0.0, *report.Jaccard)
	assert.NotEmpty(t, report.Diagnostics)
}

func TestComparator_Compare_NoHotspotsAnywhere(t *testing.T) {
	p1, p2 := summerPeriod(2023), summerPeriod(2024)
	catalog := &mockCatalog{} // nothing for either period
	regions := &mockRegions{region: testRegion(t)}

	c := newComparator(catalog, regions, testParams())
	report, err := c.Compare(context.Background(), "downtown", []domain.Period{p1, p2})
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.PersistentAreaHa)
	assert.Equal(t, 0.0, report.UnionAreaHa)
	assert.Nil(t, report.Jaccard, "zero union leaves similarity undefined")
}

func TestComparator_Compare_Errors(t *testing.T) {
	regions := &mockRegions{region: testRegion(t)}

	c := newComparator(&mockCatalog{err: errors.New("boom")}, regions, testParams())
	_, err := c.Compare(context.Background(), "downtown", []domain.Period{summerPeriod(2024)})
	assert.Error(t, err)

	c = newComparator(&mockCatalog{}, &mockRegions{err: errors.New("unknown region")}, testParams())
	_, err = c.Compare(context.Background(), "downtown", []domain.Period{summerPeriod(2024)})
	assert.Error(t, err)

	c = newComparator(&mockCatalog{}, regions, testParams())
	_, err = c.Compare(context.Background(), "downtown", nil)
	assert.Error(t, err, "no periods configured")
}

// --- runner tests ---

func newRunner(catalog pipeline.SceneCatalog, regions pipeline.RegionStore, pub pipeline.ReportPublisher, cfg pipeline.RunnerConfig, clk clockwork.Clock) *pipeline.Runner {
	metrics := observability.NewMetricsForTesting()
	a := pipeline.NewAnalyzer(catalog, testLogger(), metrics, testParams())
	c := pipeline.NewComparator(a, regions, testLogger(), metrics, testParams())
	return pipeline.NewRunner(c, pub, testLogger(), metrics, cfg, clk)
}

func TestRunner_Run_OncePublishes(t *testing.T) {
	g := testGrid()
	period := summerPeriod(2024)
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{
		period.Start: {blockScene(t, g, 40, 27, nil)},
	}}
	pub := &mockPublisher{}

	r := newRunner(catalog, &mockRegions{region: testRegion(t)}, pub, pipeline.RunnerConfig{
		RegionName: "downtown",
		Periods:    []domain.Period{period},
	}, nil)

	require.Error(t, r.CheckReadiness(context.Background()), "not ready before the first report")
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, pub.reports, 1)
	assert.Equal(t, "downtown", pub.reports[0].Region)
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRunner_Run_NilPublisher(t *testing.T) {
	g := testGrid()
	period := summerPeriod(2024)
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{
		period.Start: {blockScene(t, g, 40, 27, nil)},
	}}

	r := newRunner(catalog, &mockRegions{region: testRegion(t)}, nil, pipeline.RunnerConfig{
		RegionName: "downtown",
		Periods:    []domain.Period{period},
	}, nil)

	require.NoError(t, r.Run(context.Background()))
	assert.NoError(t, r.CheckReadiness(context.Background()), "readiness does not depend on a sink")

	report, ok := r.LatestReport()
	require.True(t, ok)
	assert.Equal(t, "downtown", report.Region)
}

func TestRunner_Run_PublishError(t *testing.T) {
	g := testGrid()
	period := summerPeriod(2024)
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{
		period.Start: {blockScene(t, g, 40, 27, nil)},
	}}
	pub := &mockPublisher{err: errors.New("sink down")}

	r := newRunner(catalog, &mockRegions{region: testRegion(t)}, pub, pipeline.RunnerConfig{
		RegionName: "downtown",
		Periods:    []domain.Period{period},
	}, nil)

	require.Error(t, r.Run(context.Background()))
	assert.Error(t, r.CheckReadiness(context.Background()))
}

func TestRunner_Run_IntervalStopsOnCancel(t *testing.T) {
	g := testGrid()
	period := summerPeriod(2024)
	catalog := &mockCatalog{scenes: map[time.Time][]*domain.Raster{
		period.Start: {blockScene(t, g, 40, 27, nil)},
	}}
	pub := &mockPublisher{}
	clk := clockwork.NewFakeClock()

	r := newRunner(catalog, &mockRegions{region: testRegion(t)}, pub, pipeline.RunnerConfig{
		RegionName: "downtown",
		Periods:    []domain.Period{period},
		Interval:   time.Hour,
	}, clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// The first run happens immediately, before any tick.
	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.reports) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on cancellation")
	}
}
