package spatial

import (
	"math"

	"github.com/ctessum/geom"
)

// Rect builds a closed, counter-clockwise rectangle polygon.
func Rect(minX, minY, maxX, maxY float64) geom.Polygon {
	return geom.Polygon{{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}}
}

// ExpandBounds returns a copy of b grown by d on every side.
func ExpandBounds(b *geom.Bounds, d float64) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.Min.X - d, Y: b.Min.Y - d},
		Max: geom.Point{X: b.Max.X + d, Y: b.Max.Y + d},
	}
}

// DenseOutline samples n points along each edge of b, so that the outline
// survives non-linear reprojection.
func DenseOutline(b *geom.Bounds, n int) []geom.Point {
	if n < 1 {
		n = 1
	}
	dx := b.Max.X - b.Min.X
	dy := b.Max.Y - b.Min.Y
	pts := make([]geom.Point, 0, 4*n)
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n)
		pts = append(pts,
			geom.Point{X: b.Min.X + f*dx, Y: b.Min.Y},
			geom.Point{X: b.Max.X, Y: b.Min.Y + f*dy},
			geom.Point{X: b.Max.X - f*dx, Y: b.Max.Y},
			geom.Point{X: b.Min.X, Y: b.Max.Y - f*dy},
		)
	}
	return pts
}

type segment struct {
	a, b geom.Point
}

// segments lists every ring edge of p. Rings are treated as closed whether
// or not the last vertex repeats the first.
func segments(p geom.Polygon) []segment {
	var out []segment
	for _, ring := range p {
		n := len(ring)
		for i := 0; i < n; i++ {
			a, b := ring[i], ring[(i+1)%n]
			if a == b {
				continue
			}
			out = append(out, segment{a, b})
		}
	}
	return out
}

// BoundaryDistance returns the minimum distance between the boundaries of
// two polygons; 0 when they touch or cross.
func BoundaryDistance(p, q geom.Polygon) float64 {
	best := math.Inf(1)
	qs := segments(q)
	for _, s := range segments(p) {
		for _, t := range qs {
			if d := segmentDistance(s, t); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

// SharedBoundaryLength sums the length over which the boundaries of p and q
// run along each other within tol.
func SharedBoundaryLength(p, q geom.Polygon, tol float64) float64 {
	var total float64
	qs := segments(q)
	for _, s := range segments(p) {
		for _, t := range qs {
			total += collinearOverlap(s, t, tol)
		}
	}
	return total
}

func collinearOverlap(s, t segment, tol float64) float64 {
	dx, dy := s.b.X-s.a.X, s.b.Y-s.a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0
	}
	if lineDistance(t.a, s) > tol || lineDistance(t.b, s) > tol {
		return 0
	}
	// Project t onto s's direction and clip to [0, length].
	ua := ((t.a.X-s.a.X)*dx + (t.a.Y-s.a.Y)*dy) / length
	ub := ((t.b.X-s.a.X)*dx + (t.b.Y-s.a.Y)*dy) / length
	lo := math.Max(0, math.Min(ua, ub))
	hi := math.Min(length, math.Max(ua, ub))
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// lineDistance is the distance from p to the infinite line through s.
func lineDistance(p geom.Point, s segment) float64 {
	dx, dy := s.b.X-s.a.X, s.b.Y-s.a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return PlanarDistance(p, s.a)
	}
	return math.Abs(dx*(s.a.Y-p.Y)-(s.a.X-p.X)*dy) / length
}

func pointSegmentDistance(p geom.Point, s segment) float64 {
	dx, dy := s.b.X-s.a.X, s.b.Y-s.a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return PlanarDistance(p, s.a)
	}
	u := ((p.X-s.a.X)*dx + (p.Y-s.a.Y)*dy) / l2
	u = math.Max(0, math.Min(1, u))
	return PlanarDistance(p, geom.Point{X: s.a.X + u*dx, Y: s.a.Y + u*dy})
}

func segmentDistance(s, t segment) float64 {
	if segmentsIntersect(s, t) {
		return 0
	}
	return math.Min(
		math.Min(pointSegmentDistance(s.a, t), pointSegmentDistance(s.b, t)),
		math.Min(pointSegmentDistance(t.a, s), pointSegmentDistance(t.b, s)),
	)
}

func orientation(a, b, c geom.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p geom.Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

func segmentsIntersect(s, t segment) bool {
	d1 := orientation(t.a, t.b, s.a)
	d2 := orientation(t.a, t.b, s.b)
	d3 := orientation(s.a, s.b, t.a)
	d4 := orientation(s.a, s.b, t.b)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(t.a, t.b, s.a):
		return true
	case d2 == 0 && onSegment(t.a, t.b, s.b):
		return true
	case d3 == 0 && onSegment(s.a, s.b, t.a):
		return true
	case d4 == 0 && onSegment(s.a, s.b, t.b):
		return true
	}
	return false
}
