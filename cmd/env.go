package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/pintmap/internal/config"
	"github.com/sells-group/pintmap/internal/fetcher"
	"github.com/sells-group/pintmap/internal/pipeline"
	"github.com/sells-group/pintmap/internal/render"
	"github.com/sells-group/pintmap/internal/store"
	"github.com/sells-group/pintmap/pkg/guindex"
)

// newFetcher builds the shared retrying transport from the Guindex settings.
func newFetcher(c config.GuindexConfig) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		MaxRetries: c.MaxRetries,
		RateLimit:  rate.Limit(c.RateLimit),
	})
}

// newGuindexSource wires the Guindex client as the remote source for both caches.
func newGuindexSource(c *config.Config) pipeline.GuindexSource {
	client := guindex.NewClient(
		guindex.WithBaseURL(c.Guindex.BaseURL),
		guindex.WithHTTPClient(newFetcher(c.Guindex)),
		guindex.WithRateLimit(c.Guindex.RateLimit, 1),
		guindex.WithPageSize(c.Guindex.PageSize),
	)
	return pipeline.GuindexSource{
		Client: client,
		County: c.Area.County,
		Years:  c.Area.Years,
	}
}

func newRenderer(c *config.Config) render.Renderer {
	return render.NewPlotRenderer(render.Options{
		Dir:                      c.Output.Dir,
		Labels:                   c.Render.Labels,
		Width:                    c.Render.WidthIn,
		Height:                   c.Render.HeightIn,
		MinRidgelineObservations: c.Aggregate.MinRidgelineObservations,
		Area:                     c.Area.County,
	})
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}
