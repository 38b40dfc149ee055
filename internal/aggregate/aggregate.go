// Package aggregate computes per-region price statistics from assigned observations.
package aggregate

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/pintmap/internal/assign"
	"github.com/sells-group/pintmap/internal/model"
)

// Table holds statistics for every region of a catalog, in catalog order.
type Table struct {
	Stats []model.RegionStats

	// Excluded counts observations whose point is unassigned or unknown.
	Excluded int

	byCode  map[string]int
	byName  map[string]int
	samples map[string][]float64 // by region code
}

// Get returns the statistics for a region name.
func (t *Table) Get(name string) (model.RegionStats, bool) {
	i, ok := t.byName[name]
	if !ok {
		return model.RegionStats{}, false
	}
	return t.Stats[i], true
}

// ByCode returns the statistics for a region code.
func (t *Table) ByCode(code string) (model.RegionStats, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return model.RegionStats{}, false
	}
	return t.Stats[i], true
}

// Prices returns the sorted price samples observed in a region, by name.
func (t *Table) Prices(name string) []float64 {
	i, ok := t.byName[name]
	if !ok {
		return nil
	}
	return t.samples[t.Stats[i].Code]
}

// RidgelineSeries is the price sample of one region for density plotting.
type RidgelineSeries struct {
	Name   string
	Prices []float64
}

// Ridgeline returns, in catalog order, the regions with more than minObservations
// observations together with their price samples.
func (t *Table) Ridgeline(minObservations int) []RidgelineSeries {
	var out []RidgelineSeries
	for _, s := range t.Stats {
		if s.Observations > minObservations {
			out = append(out, RidgelineSeries{Name: s.Name, Prices: t.samples[s.Code]})
		}
	}
	return out
}

// Option configures Aggregate.
type Option func(*config)

type config struct {
	known    []string
	hasKnown bool
}

// WithKnownPoints enables coverage: the IDs are the full catalog of points known to
// exist, located through the same assignment as the observations. Coverage counts
// only observed points that are in this catalog.
func WithKnownPoints(ids []string) Option {
	return func(c *config) {
		c.known = ids
		c.hasKnown = true
	}
}

// Aggregate joins observations to regions through the assignment, matching on region
// code. Observations whose point is unassigned are excluded from every region.
// Prices are sorted per region before any arithmetic, so the result does not depend
// on input order.
func Aggregate(regions []model.Region, observations []model.Observation, a assign.Assignment, opts ...Option) *Table {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &Table{
		Stats:   make([]model.RegionStats, len(regions)),
		byCode:  make(map[string]int, len(regions)),
		byName:  make(map[string]int, len(regions)),
		samples: make(map[string][]float64, len(regions)),
	}
	distinct := make(map[string]map[string]struct{}, len(regions))
	for i, r := range regions {
		t.Stats[i] = model.RegionStats{Code: r.Code, Name: r.Name}
		t.byCode[r.Code] = i
		if _, dup := t.byName[r.Name]; !dup {
			t.byName[r.Name] = i
		}
		distinct[r.Code] = make(map[string]struct{})
	}

	for _, o := range observations {
		code, ok := a.LookupCode(o.PointID)
		if !ok {
			t.Excluded++
			continue
		}
		if _, inCatalog := t.byCode[code]; !inCatalog {
			t.Excluded++
			continue
		}
		t.samples[code] = append(t.samples[code], o.Price)
		distinct[code][o.PointID] = struct{}{}
	}

	var (
		known    map[string]int
		knownIDs map[string]struct{}
	)
	if cfg.hasKnown {
		known, knownIDs = countKnown(cfg.known, a)
	}

	for i := range t.Stats {
		s := &t.Stats[i]
		prices := t.samples[s.Code]
		sort.Float64s(prices)

		s.Observations = len(prices)
		s.DistinctPoints = len(distinct[s.Code])
		if len(prices) > 0 {
			s.AvgPrice = ptr(stat.Mean(prices, nil))
			s.MedianPrice = ptr(median(prices))
			s.MinPrice = ptr(prices[0])
			s.MaxPrice = ptr(prices[len(prices)-1])
		}

		if cfg.hasKnown {
			n := known[s.Code]
			s.KnownPoints = &n
			if n > 0 {
				covered := 0
				for id := range distinct[s.Code] {
					if _, ok := knownIDs[id]; ok {
						covered++
					}
				}
				s.CoveragePct = ptr(100 * float64(covered) / float64(n))
			}
		}
	}

	return t
}

// countKnown counts each distinct known point once, in the region code it is
// assigned to, and returns the set of distinct known IDs.
func countKnown(ids []string, a assign.Assignment) (map[string]int, map[string]struct{}) {
	seen := make(map[string]struct{}, len(ids))
	out := make(map[string]int)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if code, ok := a.LookupCode(id); ok {
			out[code]++
		}
	}
	return out, seen
}

// median of a sorted, non-empty sample; even lengths average the middle pair.
func median(xs []float64) float64 {
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

func ptr[T any](v T) *T {
	return &v
}
