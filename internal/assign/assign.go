// Package assign labels points with the region whose boundary contains them.
package assign

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/location"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pintmap/internal/crs"
	"github.com/sells-group/pintmap/internal/model"
	"github.com/sells-group/pintmap/internal/region"
)

// Boundary controls how a point lying exactly on a region edge is treated.
type Boundary string

const (
	// BoundaryInclusive counts edge points as contained. A point on an edge shared by
	// two regions belongs to the first of them in catalog order.
	BoundaryInclusive Boundary = "inclusive"
	// BoundaryExclusive counts only strictly interior points; edge points are unassigned.
	BoundaryExclusive Boundary = "exclusive"
)

// ParseBoundary validates a boundary policy name. Empty selects BoundaryInclusive.
func ParseBoundary(s string) (Boundary, error) {
	switch Boundary(s) {
	case "", BoundaryInclusive:
		return BoundaryInclusive, nil
	case BoundaryExclusive:
		return BoundaryExclusive, nil
	}
	return "", eris.Errorf("assign: unknown boundary policy %q", s)
}

// Options configures an assignment.
type Options struct {
	Boundary  Boundary
	TargetCRS string // reference system the regions are in (default EPSG:4326)
}

// Assignment maps point IDs to regions. A point with no enclosing region has no
// entry for Lookup but is still tracked, and is listed by Unassigned. When a point ID
// appears more than once, its first occurrence decides.
type Assignment struct {
	regions    map[string]assigned
	unassigned map[string]struct{}
}

type assigned struct {
	code string
	name string
}

// Lookup returns the region name for a point and whether one was assigned.
func (a Assignment) Lookup(pointID string) (string, bool) {
	r, ok := a.regions[pointID]
	return r.name, ok
}

// LookupCode returns the region code for a point and whether one was assigned.
// Codes are unique within a catalog; names are for display.
func (a Assignment) LookupCode(pointID string) (string, bool) {
	r, ok := a.regions[pointID]
	return r.code, ok
}

// Known reports whether the point took part in the assignment, assigned or not.
func (a Assignment) Known(pointID string) bool {
	if _, ok := a.regions[pointID]; ok {
		return true
	}
	_, ok := a.unassigned[pointID]
	return ok
}

// Len returns the number of assigned points.
func (a Assignment) Len() int {
	return len(a.regions)
}

// Unassigned returns the sorted IDs of points outside every region.
func (a Assignment) Unassigned() []string {
	ids := make([]string, 0, len(a.unassigned))
	for id := range a.unassigned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts returns the number of assigned points per region name.
func (a Assignment) Counts() map[string]int {
	out := make(map[string]int)
	for _, r := range a.regions {
		out[r.name]++
	}
	return out
}

// Assign tests every point against every region in catalog order. The first region
// containing a point wins; a point no region contains is unassigned.
func Assign(points []model.Point, regions []model.Region, opts Options) (Assignment, error) {
	locate, err := newLocator(regions, opts)
	if err != nil {
		return Assignment{}, err
	}

	matches := make([]int, len(points))
	for i, p := range points {
		matches[i] = locate(p)
	}
	return build(points, regions, matches), nil
}

// AssignParallel is Assign with points split across workers. Each worker writes only
// its own result slots, so the outcome is identical to Assign.
func AssignParallel(ctx context.Context, points []model.Point, regions []model.Region, workers int, opts Options) (Assignment, error) {
	if workers <= 1 || len(points) < 2 {
		return Assign(points, regions, opts)
	}

	locate, err := newLocator(regions, opts)
	if err != nil {
		return Assignment{}, err
	}

	matches := make([]int, len(points))
	chunk := (len(points) + workers - 1) / workers

	g, gCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(points); start += chunk {
		lo, hi := start, min(start+chunk, len(points))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 && gCtx.Err() != nil {
					return eris.Wrap(gCtx.Err(), "assign: cancelled")
				}
				matches[i] = locate(points[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Assignment{}, err
	}
	return build(points, regions, matches), nil
}

// newLocator returns a function giving the catalog index of the region containing a
// point, or -1.
func newLocator(regions []model.Region, opts Options) (func(model.Point) int, error) {
	policy, err := ParseBoundary(string(opts.Boundary))
	if err != nil {
		return nil, err
	}
	target := opts.TargetCRS
	if target == "" {
		target = crs.WGS84
	}
	project, err := crs.NewTransform(crs.WGS84, target)
	if err != nil {
		return nil, eris.Wrap(err, "assign: point projection")
	}

	return func(p model.Point) int {
		x, y := project(p.Longitude, p.Latitude)
		c := geom.Coord{x, y}
		for i := range regions {
			switch region.Locate(regions[i].Geometry, c) {
			case location.Interior:
				return i
			case location.Boundary:
				if policy == BoundaryInclusive {
					return i
				}
			}
		}
		return -1
	}, nil
}

func build(points []model.Point, regions []model.Region, matches []int) Assignment {
	a := Assignment{
		regions:    make(map[string]assigned, len(points)),
		unassigned: make(map[string]struct{}),
	}
	for i, p := range points {
		if _, seen := a.regions[p.ID]; seen {
			continue
		}
		if _, seen := a.unassigned[p.ID]; seen {
			continue
		}
		if matches[i] < 0 {
			a.unassigned[p.ID] = struct{}{}
			continue
		}
		r := regions[matches[i]]
		a.regions[p.ID] = assigned{code: r.Code, name: r.Name}
	}

	if n := len(a.unassigned); n > 0 {
		zap.L().Debug("assign: points outside every region",
			zap.Int("unassigned", n),
			zap.Int("assigned", len(a.regions)),
		)
	}
	return a
}
