package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Observation is a single priced event tied to a Point.
type Observation struct {
	PointID   string    `csv:"pub_id"`
	PointName string    `csv:"name"`
	Latitude  float64   `csv:"latitude"`
	Longitude float64   `csv:"longitude"`
	Price     float64   `csv:"price"`
	CreatedAt Timestamp `csv:"creation_date"`
}

// Point returns the location the observation was recorded at.
func (o Observation) Point() Point {
	return Point{
		ID:        o.PointID,
		Name:      o.PointName,
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
	}
}

// timestampLayouts are tried in order when parsing creation dates. The second and
// third cover CSV files written by dataframe tooling.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a UTC time that tolerates the date formats seen in pricing exports.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t as a UTC Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses s using the known layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, eris.Errorf("model: unrecognized timestamp %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(b []byte) error {
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler. Output is RFC3339 in UTC.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.UTC().Format(time.RFC3339Nano)), nil
}
