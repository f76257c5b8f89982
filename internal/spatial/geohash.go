package spatial

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// Base32 encoding for geohash
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// MaxGeohashPrecision is the longest supported geohash.
const MaxGeohashPrecision = 12

// EncodeGeohash encodes latitude and longitude into a geohash string
// precision: number of characters in the geohash (1-12)
func EncodeGeohash(lat, lon float64, precision int) string {
	precision = clampPrecision(precision)

	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	hash := make([]byte, 0, precision)
	bits, ch := 0, 0
	even := true

	for len(hash) < precision {
		// Even bits split longitude, odd bits latitude. A coordinate equal
		// to the midpoint goes to the lower half.
		if even {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon > mid {
				ch |= 1 << (4 - bits)
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= 1 << (4 - bits)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		even = !even

		bits++
		if bits == 5 {
			hash = append(hash, base32[ch])
			bits, ch = 0, 0
		}
	}

	return string(hash)
}

// GeohashBounds returns the bounding box of a geohash cell
// Returns (minLat, minLon, maxLat, maxLon)
func GeohashBounds(hash string) (float64, float64, float64, float64) {
	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	isLon := true
	for i := 0; i < len(hash); i++ {
		idx := indexOfBase32(hash[i])
		if idx == -1 {
			continue
		}
		for mask := 16; mask > 0; mask >>= 1 {
			r := &latRange
			if isLon {
				r = &lonRange
			}
			mid := (r[0] + r[1]) / 2
			if idx&mask != 0 {
				r[0] = mid
			} else {
				r[1] = mid
			}
			isLon = !isLon
		}
	}

	return latRange[0], lonRange[0], latRange[1], lonRange[1]
}

// GeohashCellDegrees returns the (latitude, longitude) extent in degrees of
// every cell at the given precision.
func GeohashCellDegrees(precision int) (float64, float64) {
	precision = clampPrecision(precision)
	totalBits := 5 * precision
	lonBits := (totalBits + 1) / 2
	latBits := totalBits / 2
	return 180 / math.Pow(2, float64(latBits)), 360 / math.Pow(2, float64(lonBits))
}

// CoverGeohashes lists, in ascending order, every geohash of the given
// precision whose cell intersects the lon/lat box. The corner cells come
// from EncodeGeohash, so every point inside the box encodes into the cover.
func CoverGeohashes(minLat, minLon, maxLat, maxLon float64, precision int) []string {
	dLat, dLon := GeohashCellDegrees(precision)
	i0, j0 := geohashCell(minLat, minLon, precision, dLat, dLon)
	i1, j1 := geohashCell(maxLat, maxLon, precision, dLat, dLon)

	var hashes []string
	for i := i0; i <= i1; i++ {
		lat := -90 + (float64(i)+0.5)*dLat
		for j := j0; j <= j1; j++ {
			lon := -180 + (float64(j)+0.5)*dLon
			hashes = append(hashes, EncodeGeohash(lat, lon, precision))
		}
	}
	sort.Strings(hashes)
	return hashes
}

// geohashCell returns the row and column of the cell a point encodes into.
func geohashCell(lat, lon float64, precision int, dLat, dLon float64) (int, int) {
	minLat, minLon, _, _ := GeohashBounds(EncodeGeohash(lat, lon, precision))
	return int(math.Round((minLat + 90) / dLat)), int(math.Round((minLon + 180) / dLon))
}

// GeohashPolygon returns the cell outline as a lon/lat polygon (X=lon, Y=lat).
func GeohashPolygon(hash string) geom.Polygon {
	minLat, minLon, maxLat, maxLon := GeohashBounds(hash)
	return Rect(minLon, minLat, maxLon, maxLat)
}

// indexOfBase32 finds the index of a character in the base32 alphabet
func indexOfBase32(ch byte) int {
	for i := 0; i < len(base32); i++ {
		if base32[i] == ch {
			return i
		}
	}
	return -1
}

func clampPrecision(p int) int {
	if p < 1 {
		return 1
	}
	if p > MaxGeohashPrecision {
		return MaxGeohashPrecision
	}
	return p
}
