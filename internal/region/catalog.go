// Package region loads postal region boundaries from shapefiles into typed regions
// in a single target reference system.
package region

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/pintmap/internal/crs"
	"github.com/sells-group/pintmap/internal/model"
)

// Default attribute names in the routing key boundary files.
const (
	DefaultCodeField = "RoutingKey"
	DefaultNameField = "Descriptor"
)

// Options configures catalog loading.
type Options struct {
	CodeField string // attribute holding the region code (default RoutingKey)
	NameField string // attribute holding the descriptor (default Descriptor)
	SourceCRS string // reference system of the file (default EPSG:4326)
	TargetCRS string // reference system of the returned geometry (default EPSG:4326)
}

func (o *Options) setDefaults() {
	if o.CodeField == "" {
		o.CodeField = DefaultCodeField
	}
	if o.NameField == "" {
		o.NameField = DefaultNameField
	}
	if o.SourceCRS == "" {
		o.SourceCRS = crs.WGS84
	}
	if o.TargetCRS == "" {
		o.TargetCRS = crs.WGS84
	}
}

var upper = cases.Upper(language.Und)

// NormalizeCode trims padding and upper-cases a region code.
func NormalizeCode(code string) string {
	return upper.String(strings.TrimSpace(strings.TrimRight(code, "\x00")))
}

// Load reads the shapefile at path, keeps only the codes listed in allowed, attaches the
// mapped display names, and reprojects every coordinate into opts.TargetCRS. Regions are
// returned in allowed-list order; codes missing from the file are logged and skipped.
// Records sharing a code are merged into one region.
func Load(path string, allowed []model.CodeName, opts Options) ([]model.Region, error) {
	opts.setDefaults()

	log := zap.L().With(
		zap.String("component", "region.catalog"),
		zap.String("path", path),
	)

	transform, err := crs.NewTransform(opts.SourceCRS, opts.TargetCRS)
	if err != nil {
		return nil, eris.Wrap(err, "region: build reprojection")
	}
	target, err := crs.Lookup(opts.TargetCRS)
	if err != nil {
		return nil, eris.Wrap(err, "region: target crs")
	}
	srid := crs.SRID(target)

	order := make(map[string]int, len(allowed))
	names := make(map[string]string, len(allowed))
	for i, cn := range allowed {
		code := NormalizeCode(cn.Code)
		if _, dup := order[code]; dup {
			return nil, eris.Errorf("region: duplicate code %q in allowed list", code)
		}
		if other, dup := names[cn.Name]; dup {
			return nil, eris.Errorf("region: codes %q and %q share the name %q", other, code, cn.Name)
		}
		order[code] = i
		names[cn.Name] = code
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, model.NewDataSourceError(path, eris.Wrap(err, "region: open shapefile"))
	}
	defer func() { _ = reader.Close() }()

	codeIdx := fieldIndex(reader, opts.CodeField)
	if codeIdx < 0 {
		return nil, model.NewSchemaError(path, opts.CodeField, 0, eris.New("region: attribute not found"))
	}

	polys := make(map[string][]*geom.Polygon, len(allowed))
	var records, skipped int

	for reader.Next() {
		records++
		_, shape := reader.Shape()
		code := NormalizeCode(reader.Attribute(codeIdx))
		if _, ok := order[code]; !ok {
			continue
		}

		parts, ok := polygonParts(shape)
		if !ok {
			skipped++
			log.Debug("region: skipping non-polygon record", zap.String("code", code))
			continue
		}

		built := buildPolygons(parts, transform)
		if len(built) == 0 {
			skipped++
			log.Debug("region: skipping record without usable rings", zap.String("code", code))
			continue
		}
		polys[code] = append(polys[code], built...)
	}
	if err := reader.Err(); err != nil {
		return nil, model.NewDataSourceError(path, eris.Wrap(err, "region: read shapefile"))
	}

	regions := make([]model.Region, 0, len(polys))
	for _, cn := range allowed {
		code := NormalizeCode(cn.Code)
		ps, ok := polys[code]
		if !ok {
			log.Warn("region: configured code not present in shapefile", zap.String("code", code))
			continue
		}

		mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
		for _, p := range ps {
			if err := mp.Push(p); err != nil {
				return nil, eris.Wrapf(err, "region: assemble geometry for %s", code)
			}
		}

		regions = append(regions, model.Region{
			Code:     code,
			Name:     cn.Name,
			Order:    len(regions),
			Geometry: mp,
		})
	}

	if len(regions) == 0 {
		return nil, model.NewDataSourceError(path, eris.Errorf(
			"region: no regions left after filtering %d records to %d codes", records, len(allowed)))
	}

	log.Info("region catalog loaded",
		zap.Int("records", records),
		zap.Int("regions", len(regions)),
		zap.Int("skipped", skipped),
		zap.String("source_crs", opts.SourceCRS),
		zap.String("target_crs", target.Code()),
	)

	return regions, nil
}

// Feature is one raw record of a boundary file, as listed by Describe.
type Feature struct {
	Code       string
	Descriptor string
	Rings      int
}

// Describe lists every record in the shapefile without filtering or reprojection.
func Describe(path string, opts Options) ([]Feature, error) {
	opts.setDefaults()

	reader, err := shp.Open(path)
	if err != nil {
		return nil, model.NewDataSourceError(path, eris.Wrap(err, "region: open shapefile"))
	}
	defer func() { _ = reader.Close() }()

	codeIdx := fieldIndex(reader, opts.CodeField)
	if codeIdx < 0 {
		return nil, model.NewSchemaError(path, opts.CodeField, 0, eris.New("region: attribute not found"))
	}
	nameIdx := fieldIndex(reader, opts.NameField)

	var features []Feature
	for reader.Next() {
		_, shape := reader.Shape()
		f := Feature{Code: NormalizeCode(reader.Attribute(codeIdx))}
		if nameIdx >= 0 {
			f.Descriptor = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}
		if parts, ok := polygonParts(shape); ok {
			f.Rings = len(parts)
		}
		features = append(features, f)
	}
	if err := reader.Err(); err != nil {
		return nil, model.NewDataSourceError(path, eris.Wrap(err, "region: read shapefile"))
	}
	return features, nil
}

// fieldIndex returns the index of a named attribute, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
