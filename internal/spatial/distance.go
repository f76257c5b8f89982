package spatial

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PlanarDistance is the Euclidean distance between two projected points
func PlanarDistance(a, b geom.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// CentroidDistance measures the distance between two centroids. When
// geographic is true the points are lon/lat degrees (X=lon, Y=lat) and the
// result is in meters; otherwise it is in CRS units.
func CentroidDistance(a, b geom.Point, geographic bool) float64 {
	if geographic {
		return HaversineDistance(a.Y, a.X, b.Y, b.X)
	}
	return PlanarDistance(a, b)
}
