package spatial

import (
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Common coordinate reference systems in proj4 form.
const (
	WGS84        = "+proj=longlat +datum=WGS84 +no_defs"
	WebMercator  = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
	maxMercLat   = 85.06
	denseSamples = 16
)

// IsGeographic reports whether a proj4 definition describes lon/lat degrees.
func IsGeographic(crs string) bool {
	c := strings.ToLower(crs)
	return strings.Contains(c, "+proj=longlat") || strings.Contains(c, "+proj=latlong")
}

// Projector reprojects lon/lat coordinates into a target CRS.
type Projector struct {
	source, target string
	transform      proj.Transformer
	identity       bool
	mercator       bool
}

// NewProjector parses both definitions and builds the transform.
func NewProjector(source, target string) (*Projector, error) {
	if source == "" {
		source = WGS84
	}
	if target == "" {
		target = WebMercator
	}
	p := &Projector{source: source, target: target}
	if IsGeographic(source) && IsGeographic(target) {
		p.identity = true
		return p, nil
	}

	src, err := proj.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source CRS %q: %w", source, err)
	}
	dst, err := proj.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target CRS %q: %w", target, err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to build transform: %w", err)
	}
	p.transform = t
	p.mercator = strings.Contains(strings.ToLower(target), "+proj=merc")
	return p, nil
}

// Target returns the target CRS definition.
func (p *Projector) Target() string {
	return p.target
}

// Geographic reports whether the target CRS is lon/lat.
func (p *Projector) Geographic() bool {
	return IsGeographic(p.target)
}

// Project converts lon/lat degrees to target coordinates. Results that are
// not finite are reported as errors.
func (p *Projector) Project(lon, lat float64) (float64, float64, error) {
	if p.identity {
		return lon, lat, nil
	}
	if p.mercator && math.Abs(lat) > maxMercLat {
		return 0, 0, fmt.Errorf("latitude %.4f outside mercator domain", lat)
	}
	x, y, err := p.transform(lon, lat)
	if err != nil {
		return 0, 0, err
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, fmt.Errorf("projection of (%f, %f) is not finite", lon, lat)
	}
	return x, y, nil
}

// ProjectBounds projects a lon/lat box through a densified outline and
// returns the bounds of the result.
func (p *Projector) ProjectBounds(b *geom.Bounds) (*geom.Bounds, error) {
	out := geom.NewBounds()
	for _, pt := range DenseOutline(b, denseSamples) {
		x, y, err := p.Project(pt.X, pt.Y)
		if err != nil {
			return nil, err
		}
		out.Extend(geom.Point{X: x, Y: y}.Bounds())
	}
	return out, nil
}

// ProjectPolygon reprojects every vertex of a lon/lat polygon.
func (p *Projector) ProjectPolygon(poly geom.Polygon) (geom.Polygon, error) {
	out := make(geom.Polygon, len(poly))
	for i, ring := range poly {
		out[i] = make(geom.Path, len(ring))
		for j, pt := range ring {
			x, y, err := p.Project(pt.X, pt.Y)
			if err != nil {
				return nil, err
			}
			out[i][j] = geom.Point{X: x, Y: y}
		}
	}
	return out, nil
}
