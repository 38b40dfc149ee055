// Package crs converts coordinates between the fixed set of reference systems used by
// region boundaries and point locations. Every projection is expressed as a pair of
// functions to and from geographic WGS84 longitude/latitude in degrees, backed by
// PROJ definitions.
package crs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-spatial/proj/core"
	_ "github.com/go-spatial/proj/operations"
	"github.com/go-spatial/proj/support"
	"github.com/rotisserie/eris"
)

// WGS84 is the geographic reference system points are recorded in.
const WGS84 = "EPSG:4326"

// Projection maps between geographic coordinates and a projected plane.
type Projection interface {
	// Code returns the canonical "EPSG:nnnn" identifier.
	Code() string
	// Forward converts longitude/latitude degrees to projected x/y.
	Forward(lon, lat float64) (x, y float64)
	// Inverse converts projected x/y to longitude/latitude degrees.
	Inverse(x, y float64) (lon, lat float64)
}

// Transform converts coordinates from one projection to another.
type Transform func(x, y float64) (float64, float64)

// Lookup returns the projection for an EPSG identifier such as "EPSG:2157" or "2157".
func Lookup(code string) (Projection, error) {
	n, err := parseEPSG(code)
	if err != nil {
		return nil, err
	}
	if n == 4326 {
		return geographic{}, nil
	}
	def, ok := definition(n)
	if !ok {
		return nil, eris.Errorf("crs: unsupported reference system %s", code)
	}
	return newProjected(n, def)
}

// definition returns the PROJ string for a supported projected system.
func definition(n int) (string, bool) {
	switch {
	case n == 3857:
		return "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k_0=1", true
	case n == 2157:
		// Irish Transverse Mercator (IRENET95), the grid Irish postal boundaries are published in.
		return "+proj=etmerc +lat_0=53.5 +lon_0=-8 +k_0=0.99982 +x_0=600000 +y_0=750000 +ellps=GRS80", true
	case n >= 32601 && n <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +ellps=WGS84", n-32600), true
	case n >= 32701 && n <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +ellps=WGS84", n-32700), true
	case n >= 25828 && n <= 25838:
		// ETRS89 / UTM zones 28N-38N.
		return fmt.Sprintf("+proj=utm +zone=%d +ellps=GRS80", n-25800), true
	}
	return "", false
}

// NewTransform returns a Transform from src to dst. Identical codes yield an identity.
func NewTransform(src, dst string) (Transform, error) {
	from, err := Lookup(src)
	if err != nil {
		return nil, err
	}
	to, err := Lookup(dst)
	if err != nil {
		return nil, err
	}
	if from.Code() == to.Code() {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	return func(x, y float64) (float64, float64) {
		lon, lat := from.Inverse(x, y)
		return to.Forward(lon, lat)
	}, nil
}

// Normalize returns the canonical form of an EPSG identifier.
func Normalize(code string) (string, error) {
	p, err := Lookup(code)
	if err != nil {
		return "", err
	}
	return p.Code(), nil
}

// SRID returns the numeric EPSG identifier of p.
func SRID(p Projection) int {
	n, _ := parseEPSG(p.Code())
	return n
}

func parseEPSG(code string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.TrimPrefix(s, "EPSG:")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, eris.Errorf("crs: invalid EPSG code %q", code)
	}
	return n, nil
}

func epsg(n int) string {
	return fmt.Sprintf("EPSG:%d", n)
}

type geographic struct{}

func (geographic) Code() string                            { return WGS84 }
func (geographic) Forward(lon, lat float64) (x, y float64) { return lon, lat }
func (geographic) Inverse(x, y float64) (lon, lat float64) { return x, y }

// projected wraps a PROJ conversion. Coordinates the conversion rejects come back as NaN,
// which no region contains.
type projected struct {
	code string
	op   core.IConvertLPToXY
}

func newProjected(n int, def string) (*projected, error) {
	ps, err := support.NewProjString(def)
	if err != nil {
		return nil, eris.Wrapf(err, "crs: parse definition of %s", epsg(n))
	}
	_, opx, err := core.NewSystem(ps)
	if err != nil {
		return nil, eris.Wrapf(err, "crs: build %s", epsg(n))
	}
	op, ok := opx.(core.IConvertLPToXY)
	if !ok {
		return nil, eris.Errorf("crs: %s is not a forward projection", epsg(n))
	}
	return &projected{code: epsg(n), op: op}, nil
}

func (p *projected) Code() string { return p.code }

func (p *projected) Forward(lon, lat float64) (x, y float64) {
	xy, err := p.op.Forward(&core.CoordLP{Lam: support.DDToR(lon), Phi: support.DDToR(lat)})
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return xy.X, xy.Y
}

func (p *projected) Inverse(x, y float64) (lon, lat float64) {
	lp, err := p.op.Inverse(&core.CoordXY{X: x, Y: y})
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return support.RToDD(lp.Lam), support.RToDD(lp.Phi)
}
