// Package export writes aggregate tables and region geometry to files.
package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pintmap/internal/aggregate"
	"github.com/sells-group/pintmap/internal/model"
)

// Format names an export file type.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatXLSX, FormatGeoJSON:
		return f, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// Artifact is a file produced by a run.
type Artifact struct {
	Kind string `yaml:"kind" json:"kind"`
	Path string `yaml:"path" json:"path"`
}

// Options configures WriteAll.
type Options struct {
	Dir     string
	Formats []Format
	// CRS of the region geometry. GeoJSON output is always EPSG:4326.
	CRS string
}

// WriteAll writes each requested format into opts.Dir and returns the artifacts in
// format order.
func WriteAll(regions []model.Region, table *aggregate.Table, opts Options) ([]Artifact, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create output dir %s", opts.Dir)
	}

	var out []Artifact
	for _, f := range opts.Formats {
		var (
			path string
			err  error
		)
		switch f {
		case FormatCSV:
			path = filepath.Join(opts.Dir, "region_stats.csv")
			err = WriteStatsCSV(path, table)
		case FormatXLSX:
			path = filepath.Join(opts.Dir, "region_stats.xlsx")
			err = WriteStatsXLSX(path, table)
		case FormatGeoJSON:
			path = filepath.Join(opts.Dir, "regions.geojson")
			err = WriteGeoJSON(path, regions, table, opts.CRS)
		default:
			err = eris.Errorf("export: unknown format %q", f)
		}
		if err != nil {
			return nil, err
		}
		zap.L().Info("export: wrote artifact",
			zap.String("format", string(f)),
			zap.String("path", path),
		)
		out = append(out, Artifact{Kind: string(f), Path: path})
	}
	return out, nil
}

// createFile creates path, making parent directories as needed.
func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return nil, eris.Wrapf(err, "export: create %s", path)
	}
	return f, nil
}
