package domain

import "time"

// SquareMetersPerHectare converts zonal area sums to the hectares used in
// reports.
const SquareMetersPerHectare = 10000

// Period is one analysis time window. Start is inclusive, End exclusive.
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// PeriodResult is the outcome of the per-period analysis chain. Pointer
// fields are nil when the underlying value could not be derived (empty
// collection, zonal no-data) — absence is distinct from zero.
type PeriodResult struct {
	Period     Period `json:"period"`
	SceneCount int    `json:"scene_count"`

	ThresholdC        *float64 `json:"threshold_c,omitempty"`
	ThresholdFallback bool     `json:"threshold_fallback,omitempty"`

	// LSTStats holds the zonal min/max/mean/p5/p50/p95 of the composite LST
	// over the region, keyed by the reducer's synthesized names.
	LSTStats map[string]float64 `json:"lst_stats,omitempty"`

	HotspotAreaHa *float64 `json:"hotspot_area_ha,omitempty"`
	TotalAreaHa   *float64 `json:"total_area_ha,omitempty"`
	HotspotPct    *float64 `json:"hotspot_pct,omitempty"`

	SeverityMeanC *float64 `json:"severity_mean_c,omitempty"`
	SeverityMaxC  *float64 `json:"severity_max_c,omitempty"`

	// Diagnostics records degraded behavior: empty collections, coarsened
	// sampling, threshold key fallback.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// Hotspots is the cleaned per-period mask, kept for rendering and for
	// the cross-period combination; it does not serialize.
	Hotspots *Mask `json:"-"`
}

// AnalysisReport is the full multi-period comparison for one region.
type AnalysisReport struct {
	Region      string         `json:"region"`
	GeneratedAt time.Time      `json:"generated_at"`
	Periods     []PeriodResult `json:"periods"`

	PersistentAreaHa float64 `json:"persistent_area_ha"`
	UnionAreaHa      float64 `json:"union_area_ha"`
	// Jaccard serializes as null when undefined (zero union area).
	Jaccard *float64 `json:"jaccard"`

	Diagnostics []string `json:"diagnostics,omitempty"`
}

// NewAnalysisReport assembles the report from per-period results and the
// intersection/union areas in square meters, computing the Jaccard index and
// stamping the generation time from the package clock.
func NewAnalysisReport(region string, periods []PeriodResult, intersectionM2, unionM2 float64, diagnostics []string) AnalysisReport {
	sim := NewSimilarity(intersectionM2, unionM2)
	return AnalysisReport{
		Region:           region,
		GeneratedAt:      clock.Now(),
		Periods:          periods,
		PersistentAreaHa: intersectionM2 / SquareMetersPerHectare,
		UnionAreaHa:      unionM2 / SquareMetersPerHectare,
		Jaccard:          sim.Jaccard,
		Diagnostics:      diagnostics,
	}
}
