// Package pipeline runs one analysis pass from raw sources to published artifacts.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pintmap/internal/aggregate"
	"github.com/sells-group/pintmap/internal/assign"
	"github.com/sells-group/pintmap/internal/config"
	"github.com/sells-group/pintmap/internal/dataset"
	"github.com/sells-group/pintmap/internal/export"
	"github.com/sells-group/pintmap/internal/model"
	"github.com/sells-group/pintmap/internal/region"
	"github.com/sells-group/pintmap/internal/render"
	"github.com/sells-group/pintmap/internal/store"
)

// ManifestFile is written into the output directory after every run.
const ManifestFile = "manifest.yaml"

// Pipeline wires the stages of an analysis pass.
type Pipeline struct {
	cfg         *config.Config
	observation dataset.ObservationSource
	points      dataset.PointSource
	renderer    render.Renderer
	store       store.Store
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObservationSource sets the remote source used on an observation cache miss.
func WithObservationSource(s dataset.ObservationSource) Option {
	return func(p *Pipeline) { p.observation = s }
}

// WithPointSource sets the remote source used on a known-point cache miss.
func WithPointSource(s dataset.PointSource) Option {
	return func(p *Pipeline) { p.points = s }
}

// WithRenderer enables image output.
func WithRenderer(r render.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithStore persists each run.
func WithStore(s store.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. Only cfg is required; without sources the caches must
// exist, and without a renderer or store those stages are skipped.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a run.
type Result struct {
	Run        model.Run
	Regions    []model.Region
	Table      *aggregate.Table
	Assignment assign.Assignment
	Artifacts  []export.Artifact
}

// Run executes one pass. Any error aborts the run; nothing is persisted.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	run := model.Run{
		ID:        uuid.NewString(),
		StartedAt: p.now().UTC(),
		Area:      p.cfg.Area.County,
		Years:     p.cfg.Area.Years,
		TargetCRS: p.cfg.Projection.TargetCRS,
	}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", run.ID))
	log.Info("pipeline: starting run", zap.String("area", run.Area), zap.Ints("years", run.Years))

	res := &Result{}
	phase := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		fields := []zap.Field{zap.String("phase", name), zap.Duration("elapsed", time.Since(start))}
		if err != nil {
			log.Error("pipeline: phase failed", append(fields, zap.Error(err))...)
			return err
		}
		log.Debug("pipeline: phase complete", fields...)
		return nil
	}

	var (
		obs    []model.Observation
		points []model.Point
		known  []model.Point
	)

	if err := phase("regions", func() (err error) {
		res.Regions, err = LoadRegions(p.cfg)
		return err
	}); err != nil {
		return nil, err
	}

	if err := phase("observations", func() error {
		all, err := dataset.LoadObservations(ctx, p.cfg.Data.PintsPath(), p.observation)
		if err != nil {
			return err
		}
		obs = dataset.FilterYears(all, p.cfg.Area.Years)
		if len(obs) == 0 {
			return model.NewDataSourceError(p.cfg.Data.PintsPath(),
				eris.Errorf("pipeline: no observations in years %v", p.cfg.Area.Years))
		}
		points = dataset.DistinctPoints(obs)
		return nil
	}); err != nil {
		return nil, err
	}

	if path := p.cfg.Data.PubsPath(); path != "" {
		if err := phase("known_points", func() (err error) {
			known, err = dataset.LoadPoints(ctx, path, p.points)
			return err
		}); err != nil {
			return nil, err
		}
	}

	if err := phase("assign", func() (err error) {
		all := make([]model.Point, 0, len(points)+len(known))
		all = append(append(all, points...), known...)
		res.Assignment, err = AssignPoints(ctx, all, res.Regions, p.cfg.Assign, p.cfg.Projection.TargetCRS)
		return err
	}); err != nil {
		return nil, err
	}

	var aggOpts []aggregate.Option
	if known != nil {
		aggOpts = append(aggOpts, aggregate.WithKnownPoints(dataset.PointIDs(known)))
	}
	res.Table = aggregate.Aggregate(res.Regions, obs, res.Assignment, aggOpts...)

	run.Regions = len(res.Regions)
	run.Observations = len(obs)
	run.Points = len(points)
	run.UnassignedPoints = countUnassigned(points, res.Assignment)
	run.ExcludedObservations = res.Table.Excluded

	if err := phase("export", func() error {
		formats, err := p.cfg.Output.ParsedFormats()
		if err != nil {
			return err
		}
		arts, err := export.WriteAll(res.Regions, res.Table, export.Options{
			Dir:     p.cfg.Output.Dir,
			Formats: formats,
			CRS:     p.cfg.Projection.TargetCRS,
		})
		res.Artifacts = append(res.Artifacts, arts...)
		return err
	}); err != nil {
		return nil, err
	}

	if p.renderer != nil {
		if err := phase("render", func() error {
			arts, err := p.renderer.Render(res.Regions, res.Table)
			res.Artifacts = append(res.Artifacts, arts...)
			return err
		}); err != nil {
			return nil, err
		}
	}

	run.CompletedAt = p.now().UTC()

	if err := phase("manifest", func() error {
		return export.WriteManifest(filepath.Join(p.cfg.Output.Dir, ManifestFile), run, res.Artifacts)
	}); err != nil {
		return nil, err
	}

	if p.store != nil {
		if err := phase("persist", func() error {
			return p.store.SaveRun(ctx, run, res.Table.Stats)
		}); err != nil {
			return nil, err
		}
	}

	res.Run = run
	log.Info("pipeline: run complete",
		zap.Int("regions", run.Regions),
		zap.Int("observations", run.Observations),
		zap.Int("points", run.Points),
		zap.Int("unassigned_points", run.UnassignedPoints),
		zap.Int("excluded_observations", run.ExcludedObservations),
		zap.Int("artifacts", len(res.Artifacts)),
	)
	return res, nil
}

// LoadRegions loads the configured catalog in the target reference system.
func LoadRegions(cfg *config.Config) ([]model.Region, error) {
	return region.Load(cfg.Regions.Shapefile, cfg.Regions.Codes, region.Options{
		CodeField: cfg.Regions.CodeField,
		NameField: cfg.Regions.NameField,
		SourceCRS: cfg.Regions.SourceCRS,
		TargetCRS: cfg.Projection.TargetCRS,
	})
}

// AssignPoints runs the sequential or parallel assigner per the configured workers.
func AssignPoints(ctx context.Context, points []model.Point, regions []model.Region, cfg config.AssignConfig, targetCRS string) (assign.Assignment, error) {
	boundary, err := assign.ParseBoundary(cfg.Boundary)
	if err != nil {
		return assign.Assignment{}, err
	}
	opts := assign.Options{Boundary: boundary, TargetCRS: targetCRS}
	if cfg.Workers > 1 {
		return assign.AssignParallel(ctx, points, regions, cfg.Workers, opts)
	}
	return assign.Assign(points, regions, opts)
}

func countUnassigned(points []model.Point, a assign.Assignment) int {
	n := 0
	for _, pt := range points {
		if _, ok := a.Lookup(pt.ID); !ok {
			n++
		}
	}
	return n
}
