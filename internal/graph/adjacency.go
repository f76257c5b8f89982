package graph

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/spatial"
	"gonum.org/v1/gonum/mat"
)

// pair is an undirected edge between partition positions i < j.
type pair struct {
	i, j   int
	weight float64
}

// searchBox is an R-tree entry covering a partition's bounds grown by the
// search radius.
type searchBox struct {
	geom.Polygon
	index int
}

// overridePairs reads edges from an explicit adjacency matrix.
func overridePairs(m mat.Matrix) []pair {
	n, _ := m.Dims()
	var out []pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if v := m.At(i, j); v != 0 {
				out = append(out, pair{i: i, j: j, weight: v})
			}
		}
	}
	return out
}

// inferPairs derives queen contiguity between partitions: boundaries within
// tolerance, or centroids within the distance threshold when one is set.
func inferPairs(table *models.PartitionTable, opts Options) []pair {
	parts := table.Partitions
	n := len(parts)

	radius := opts.Tolerance
	// A metric threshold has no fixed size in degrees, so geographic tables
	// compare every pair when one is set.
	allPairs := table.Geographic && opts.DistanceThreshold > 0
	if !table.Geographic && opts.DistanceThreshold > radius {
		radius = opts.DistanceThreshold
	}

	boxes := make([]*geom.Bounds, n)
	tree := rtree.NewTree(25, 50)
	for i := range parts {
		boxes[i] = spatial.ExpandBounds(parts[i].Bounds(), radius)
		tree.Insert(&searchBox{
			Polygon: spatial.Rect(boxes[i].Min.X, boxes[i].Min.Y, boxes[i].Max.X, boxes[i].Max.Y),
			index:   i,
		})
	}

	var out []pair
	for i := range parts {
		var candidates []int
		if allPairs {
			for j := i + 1; j < n; j++ {
				candidates = append(candidates, j)
			}
		} else {
			for _, item := range tree.SearchIntersect(boxes[i]) {
				if j := item.(*searchBox).index; j > i {
					candidates = append(candidates, j)
				}
			}
			sort.Ints(candidates)
		}

		for _, j := range candidates {
			a, b := &parts[i], &parts[j]
			dist := spatial.CentroidDistance(a.Centroid, b.Centroid, table.Geographic)
			touching := spatial.BoundaryDistance(a.Geometry, b.Geometry) <= opts.Tolerance
			near := opts.DistanceThreshold > 0 && dist <= opts.DistanceThreshold
			if !touching && !near {
				continue
			}

			var w float64
			switch opts.Weighting {
			case WeightingBinary:
				w = 1
			case WeightingSharedBoundary:
				// corner-only and distance-only contacts carry no length
				w = spatial.SharedBoundaryLength(a.Geometry, b.Geometry, opts.Tolerance)
				if w <= 0 {
					continue
				}
			default:
				w = inverseDistance(dist)
			}
			out = append(out, pair{i: i, j: j, weight: w})
		}
	}
	return out
}

func inverseDistance(d float64) float64 {
	if d <= 0 || math.IsNaN(d) {
		return 1
	}
	return 1 / d
}
