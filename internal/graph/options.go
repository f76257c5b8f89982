package graph

import (
	"math"

	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Edge weighting schemes
const (
	WeightingInverseDistance = "inverse_distance"
	WeightingBinary          = "binary"
	WeightingSharedBoundary  = "shared_boundary"
)

// DefaultTolerance is the boundary-touch tolerance in CRS units.
const DefaultTolerance = 1e-6

// FeatureEventCount is the first node feature column.
const FeatureEventCount = "event_count"

// SumFeatureName names the per-node sum column of an event attribute.
func SumFeatureName(attr string) string {
	return "sum_" + attr
}

// Options controls graph construction.
type Options struct {
	// AdjacencyOverride replaces inferred adjacency. It must be square,
	// symmetric, non-negative and sized to the partition table before empty
	// partitions are dropped. Nonzero off-diagonal entries become edges
	// weighted by the entry; the diagonal is ignored.
	AdjacencyOverride mat.Matrix `json:"-"`
	RemoveEmpty       bool       `mapstructure:"remove_empty" json:"remove_empty"`
	// StaticFeatures is left-joined on its Key column of the partition table.
	StaticFeatures    *models.StaticFeatureTable `mapstructure:"-" json:"static_features,omitempty"`
	EventAttributes   []string                   `mapstructure:"event_attributes" json:"event_attributes,omitempty"`
	Weighting         string                     `mapstructure:"weighting" json:"weighting,omitempty"`
	Tolerance         float64                    `mapstructure:"tolerance" json:"tolerance,omitempty"`
	DistanceThreshold float64                    `mapstructure:"distance_threshold" json:"distance_threshold,omitempty"`
}

// DefaultOptions returns options with empty partitions removed and inverse
// distance weighting.
func DefaultOptions() Options {
	return Options{
		RemoveEmpty: true,
		Weighting:   WeightingInverseDistance,
		Tolerance:   DefaultTolerance,
	}
}

func (o *Options) applyDefaults() {
	if o.Weighting == "" {
		o.Weighting = WeightingInverseDistance
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
}

// validate checks everything that does not depend on the input data.
func (o *Options) validate() error {
	switch o.Weighting {
	case WeightingInverseDistance, WeightingBinary, WeightingSharedBoundary:
	default:
		return apperrors.Config("unknown edge weighting %q", o.Weighting)
	}
	if !(o.Tolerance > 0) || math.IsInf(o.Tolerance, 0) {
		return apperrors.Config("tolerance must be positive, got %g", o.Tolerance)
	}
	if o.DistanceThreshold < 0 || math.IsNaN(o.DistanceThreshold) {
		return apperrors.Config("distance threshold must be non-negative, got %g", o.DistanceThreshold)
	}
	seen := make(map[string]bool, len(o.EventAttributes))
	for _, a := range o.EventAttributes {
		if a == "" || seen[a] {
			return apperrors.Config("event attributes must be unique and non-empty")
		}
		seen[a] = true
	}
	return nil
}

// validateOverride checks an explicit adjacency matrix against n partitions.
func validateOverride(m mat.Matrix, n int) error {
	r, c := m.Dims()
	if r != c {
		return apperrors.Shape("adjacency override must be square, got %d x %d", r, c)
	}
	if r != n {
		return apperrors.Shape("adjacency override is %d x %d but there are %d partitions", r, c, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v, w := m.At(i, j), m.At(j, i)
			if math.IsNaN(v) || math.IsNaN(w) || v < 0 || w < 0 {
				return apperrors.Shape("adjacency override has a negative or NaN entry at (%d, %d)", i, j)
			}
			if v != w {
				return apperrors.Shape("adjacency override is not symmetric at (%d, %d)", i, j)
			}
		}
	}
	return nil
}

// validateStatic checks the static table against the partition table and
// returns the join-key value of every partition.
func validateStatic(st *models.StaticFeatureTable, table *models.PartitionTable) ([]int64, error) {
	keys, ok := table.KeyColumn(st.Key)
	if !ok {
		return nil, apperrors.Config("static feature key %q is not a column of the partition table", st.Key)
	}
	for key, row := range st.Rows {
		if len(row) != len(st.Names) {
			return nil, apperrors.Shape("static feature row %d has %d values, want %d", key, len(row), len(st.Names))
		}
	}
	return keys, nil
}

// Validate checks the data-independent options after defaults are applied.
func (o Options) Validate() error {
	o.applyDefaults()
	return o.validate()
}

// OverrideFromRows builds an adjacency override from a row-major matrix.
// Rows of differing length are a shape error; the remaining checks run when
// the graph is built.
func OverrideFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, apperrors.Shape("adjacency override is empty")
	}
	n := len(rows[0])
	if n == 0 {
		return nil, apperrors.Shape("adjacency override has an empty first row")
	}
	data := make([]float64, 0, len(rows)*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, apperrors.Shape("adjacency override row %d has %d entries, want %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), n, data), nil
}
