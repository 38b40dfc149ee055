package pipeline

import (
	"context"
	"strconv"

	"github.com/sells-group/pintmap/internal/model"
	"github.com/sells-group/pintmap/pkg/guindex"
)

// GuindexSource adapts a guindex.Client to the dataset source interfaces.
type GuindexSource struct {
	Client guindex.Client
	County string
	Years  []int
}

// Observations fetches pints for the county and years.
func (s GuindexSource) Observations(ctx context.Context) ([]model.Observation, error) {
	pints, err := s.Client.Pints(ctx, s.County, s.Years)
	if err != nil {
		return nil, err
	}
	out := make([]model.Observation, len(pints))
	for i, p := range pints {
		out[i] = model.Observation{
			PointID:   strconv.Itoa(p.PubID),
			PointName: p.PubName,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Price:     p.Price,
			CreatedAt: model.NewTimestamp(p.CreationDate),
		}
	}
	return out, nil
}

// Points fetches every pub in the county.
func (s GuindexSource) Points(ctx context.Context) ([]model.Point, error) {
	pubs, err := s.Client.Pubs(ctx, s.County)
	if err != nil {
		return nil, err
	}
	out := make([]model.Point, len(pubs))
	for i, p := range pubs {
		out[i] = model.Point{
			ID:        strconv.Itoa(p.ID),
			Name:      p.Name,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		}
	}
	return out, nil
}
