// Package proj translates envelopes between coordinate reference systems.
//
// Only the transforms needed to query a spatial index from a map view are
// supported: identity, and EPSG:4326 <-> EPSG:3857 via orb/project.
package proj

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/geom"
)

// Authority codes.
const (
	AuthorityEPSG = "EPSG"
	AuthorityNone = "NONE"

	EPSGWorldGeodetic = 4326
	EPSGWebMercator   = 3857
)

// edgeSamples is the number of points sampled along each envelope edge when
// transforming, so curved edges in the target system stay enclosed.
const edgeSamples = 8

// Projection identifies a coordinate reference system.
type Projection struct {
	Authority string
	Code      int64
}

var (
	WGS84       = Projection{Authority: AuthorityEPSG, Code: EPSGWorldGeodetic}
	WebMercator = Projection{Authority: AuthorityEPSG, Code: EPSGWebMercator}
)

// New returns a projection for an organization and code as stored in
// gpkg_spatial_ref_sys.
func New(authority string, code int64) Projection {
	return Projection{Authority: strings.ToUpper(authority), Code: code}
}

// Equals reports whether both projections name the same system.
func (p Projection) Equals(o Projection) bool {
	return strings.EqualFold(p.Authority, o.Authority) && p.Code == o.Code
}

func (p Projection) String() string {
	return fmt.Sprintf("%s:%d", p.Authority, p.Code)
}

// Transform maps a point from one system to another.
type Transform func(orb.Point) orb.Point

// NewTransform returns the point transform from one projection to another.
func NewTransform(from, to Projection) (Transform, error) {
	switch {
	case from.Equals(to):
		return func(p orb.Point) orb.Point { return p }, nil
	case from.Equals(WGS84) && to.Equals(WebMercator):
		return Transform(project.WGS84.ToMercator), nil
	case from.Equals(WebMercator) && to.Equals(WGS84):
		return Transform(project.Mercator.ToWGS84), nil
	}
	return nil, gerrors.NewValidation("projection", fmt.Sprintf("no transform from %s to %s", from, to))
}

// TransformEnvelope maps an envelope into another projection, returning the
// smallest envelope enclosing the sampled boundary of the source envelope.
func TransformEnvelope(e geom.Envelope, from, to Projection) (geom.Envelope, error) {
	if from.Equals(to) {
		return e, nil
	}

	t, err := NewTransform(from, to)
	if err != nil {
		return geom.Envelope{}, err
	}

	if from.Equals(WGS84) && to.Equals(WebMercator) {
		e = clampLatitude(e)
	}

	out := geom.Envelope{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	add := func(x, y float64) {
		p := t(orb.Point{x, y})
		out.MinX = math.Min(out.MinX, p.X())
		out.MinY = math.Min(out.MinY, p.Y())
		out.MaxX = math.Max(out.MaxX, p.X())
		out.MaxY = math.Max(out.MaxY, p.Y())
	}

	for i := 0; i <= edgeSamples; i++ {
		f := float64(i) / edgeSamples
		x := e.MinX + f*(e.MaxX-e.MinX)
		y := e.MinY + f*(e.MaxY-e.MinY)
		add(x, e.MinY)
		add(x, e.MaxY)
		add(e.MinX, y)
		add(e.MaxX, y)
	}
	return out, nil
}

// maxMercatorLatitude is the latitude at which Web Mercator is cut off.
const maxMercatorLatitude = 85.0511287798066

func clampLatitude(e geom.Envelope) geom.Envelope {
	e.MinY = math.Max(e.MinY, -maxMercatorLatitude)
	e.MaxY = math.Min(e.MaxY, maxMercatorLatitude)
	return e
}
