package model

// RegionStats is the derived aggregate for one region. Pointer fields are nil when
// the value is undefined: no observations for the price fields, no known points for
// the coverage fields.
type RegionStats struct {
	Code           string   `json:"code" csv:"code"`
	Name           string   `json:"name" csv:"name"`
	Observations   int      `json:"n_observations" csv:"n_observations"`
	AvgPrice       *float64 `json:"avg_price" csv:"avg_price,omitempty"`
	MedianPrice    *float64 `json:"median_price" csv:"median_price,omitempty"`
	MinPrice       *float64 `json:"min_price" csv:"min_price,omitempty"`
	MaxPrice       *float64 `json:"max_price" csv:"max_price,omitempty"`
	DistinctPoints int      `json:"n_points" csv:"n_points"`
	KnownPoints    *int     `json:"n_known_points" csv:"n_known_points,omitempty"`
	CoveragePct    *float64 `json:"coverage_pct" csv:"coverage_pct,omitempty"`
}

// Metric names a numeric column of RegionStats.
type Metric string

const (
	MetricAvgPrice     Metric = "avg_price"
	MetricObservations Metric = "n_observations"
	MetricPoints       Metric = "n_points"
	MetricCoverage     Metric = "coverage_pct"
)

// Value returns the metric for s and whether it is defined.
func (s RegionStats) Value(m Metric) (float64, bool) {
	switch m {
	case MetricAvgPrice:
		if s.AvgPrice == nil {
			return 0, false
		}
		return *s.AvgPrice, true
	case MetricObservations:
		return float64(s.Observations), s.Observations > 0
	case MetricPoints:
		return float64(s.DistinctPoints), s.DistinctPoints > 0
	case MetricCoverage:
		if s.CoveragePct == nil {
			return 0, false
		}
		return *s.CoveragePct, true
	default:
		return 0, false
	}
}
