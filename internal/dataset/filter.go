package dataset

import (
	"github.com/sells-group/pintmap/internal/model"
)

// FilterYears keeps observations created in one of years. An empty list keeps all.
func FilterYears(obs []model.Observation, years []int) []model.Observation {
	if len(years) == 0 {
		return obs
	}
	want := make(map[int]struct{}, len(years))
	for _, y := range years {
		want[y] = struct{}{}
	}
	var out []model.Observation
	for _, o := range obs {
		if _, ok := want[o.CreatedAt.Year()]; ok {
			out = append(out, o)
		}
	}
	return out
}

// DistinctPoints returns one Point per point ID, taken from the first observation
// that mentions it, in input order.
func DistinctPoints(obs []model.Observation) []model.Point {
	seen := make(map[string]struct{})
	var out []model.Point
	for _, o := range obs {
		if _, ok := seen[o.PointID]; ok {
			continue
		}
		seen[o.PointID] = struct{}{}
		out = append(out, o.Point())
	}
	return out
}

// PointIDs lists the IDs of pts in order.
func PointIDs(pts []model.Point) []string {
	ids := make([]string, len(pts))
	for i, p := range pts {
		ids[i] = p.ID
	}
	return ids
}
