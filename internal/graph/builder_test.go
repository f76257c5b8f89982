package graph

import (
	"math"
	"testing"

	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/spatial"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// grid2x2 returns unit cells 0 (SW), 1 (SE), 2 (NW), 3 (NE).
func grid2x2() *models.PartitionTable {
	return models.NewPartitionTable("", false, []models.Partition{
		{ID: 0, Geometry: spatial.Rect(0, 0, 1, 1)},
		{ID: 1, Geometry: spatial.Rect(1, 0, 2, 1)},
		{ID: 2, Geometry: spatial.Rect(0, 1, 1, 2)},
		{ID: 3, Geometry: spatial.Rect(1, 1, 2, 2)},
	})
}

func eventsAt(assignment ...int64) ([]models.PointEvent, []int64) {
	events := make([]models.PointEvent, len(assignment))
	for i := range events {
		events[i] = models.PointEvent{Attributes: map[string]float64{"injuries": float64(i + 1)}}
	}
	return events, assignment
}

func build(t *testing.T, table *models.PartitionTable, events []models.PointEvent, assignment []int64, opts Options) *models.GraphData {
	t.Helper()
	g, err := NewBuilder(logging.NewNopLogger()).BuildGraphAndAugment(table, events, assignment, opts)
	require.NoError(t, err)
	return g
}

func assertSymmetricNoSelfLoops(t *testing.T, g *models.GraphData) {
	t.Helper()
	require.Len(t, g.EdgeIndex[0], len(g.EdgeWeights))
	require.Len(t, g.EdgeIndex[1], len(g.EdgeWeights))
	for k := range g.EdgeWeights {
		src, dst := g.EdgeIndex[0][k], g.EdgeIndex[1][k]
		assert.NotEqual(t, src, dst)
		assert.True(t, src < g.NumNodes() && dst < g.NumNodes())
		w, ok := g.Weight(dst, src)
		assert.True(t, ok, "missing reverse of %d->%d", src, dst)
		assert.Equal(t, g.EdgeWeights[k], w)
		if k > 0 {
			prevSrc, prevDst := g.EdgeIndex[0][k-1], g.EdgeIndex[1][k-1]
			assert.True(t, prevSrc < src || (prevSrc == src && prevDst < dst), "edges not sorted")
		}
	}
}

func TestBuild_QueenContiguityBinary(t *testing.T) {
	events, assignment := eventsAt(0, 1, 2, 3)
	opts := DefaultOptions()
	opts.Weighting = WeightingBinary

	g := build(t, grid2x2(), events, assignment, opts)
	assert.Equal(t, []int64{0, 1, 2, 3}, g.NodeIDs)
	assert.Equal(t, 12, g.NumEdges())
	assertSymmetricNoSelfLoops(t, g)
	for _, w := range g.EdgeWeights {
		assert.Equal(t, 1.0, w)
	}
}

func TestBuild_SharedBoundaryDropsCorners(t *testing.T) {
	events, assignment := eventsAt(0, 1, 2, 3)
	opts := DefaultOptions()
	opts.Weighting = WeightingSharedBoundary

	g := build(t, grid2x2(), events, assignment, opts)
	assert.Equal(t, 8, g.NumEdges())
	assertSymmetricNoSelfLoops(t, g)
	_, ok := g.Weight(0, 3)
	assert.False(t, ok)
	w, ok := g.Weight(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 1.0, w, 1e-9)
}

func TestBuild_InverseDistance(t *testing.T) {
	events, assignment := eventsAt(0, 1, 2, 3)
	g := build(t, grid2x2(), events, assignment, DefaultOptions())

	w, ok := g.Weight(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 1.0, w, 1e-9)
	w, ok = g.Weight(0, 3)
	require.True(t, ok)
	assert.InDelta(t, 1/math.Sqrt2, w, 1e-9)
}

func TestBuild_RemoveEmpty(t *testing.T) {
	events, assignment := eventsAt(0, 3, 3, models.Unassigned)

	g := build(t, grid2x2(), events, assignment, DefaultOptions())
	assert.Equal(t, []int64{0, 3}, g.NodeIDs)
	assert.Equal(t, [2][]int{{0, 1}, {1, 0}}, g.EdgeIndex)
	assertSymmetricNoSelfLoops(t, g)

	require.Len(t, g.Events, 4)
	assert.Equal(t, []int{0, 1, 1, -1}, []int{g.Events[0].NodeID, g.Events[1].NodeID, g.Events[2].NodeID, g.Events[3].NodeID})
	assert.Equal(t, int64(3), g.Events[2].PartitionID)
	assert.Equal(t, models.Unassigned, g.Events[3].PartitionID)

	assert.Equal(t, [][]float64{{1}, {2}}, g.StaticFeatures)

	opts := DefaultOptions()
	opts.RemoveEmpty = false
	g = build(t, grid2x2(), events, assignment, opts)
	assert.Equal(t, []int64{0, 1, 2, 3}, g.NodeIDs)
	assert.Equal(t, [][]float64{{1}, {0}, {0}, {2}}, g.StaticFeatures)
	assert.Equal(t, 3, g.Events[1].NodeID)
}

func TestBuild_FeatureOrderAndZeroFill(t *testing.T) {
	events, assignment := eventsAt(0, 0, 1)
	events[2].Attributes = nil

	opts := DefaultOptions()
	opts.RemoveEmpty = false
	opts.EventAttributes = []string{"injuries"}
	opts.StaticFeatures = &models.StaticFeatureTable{
		Names: []string{"population", "roads"},
		Rows: map[int64][]float64{
			0: {100, 3},
			1: {math.NaN(), 2},
		},
	}

	g := build(t, grid2x2(), events, assignment, opts)
	assert.Equal(t, []string{"event_count", "sum_injuries", "population", "roads"}, g.FeatureNames)
	assert.Equal(t, [][]float64{
		{2, 3, 100, 3},
		{1, 0, 0, 2},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}, g.StaticFeatures)
}

func TestBuild_StaticJoinOnKeyColumn(t *testing.T) {
	table := grid2x2()
	table.Keys["zone"] = []int64{7, 7, 8, 8}
	events, assignment := eventsAt(0, 2)

	opts := DefaultOptions()
	opts.StaticFeatures = &models.StaticFeatureTable{
		Key:   "zone",
		Names: []string{"speed_limit"},
		Rows:  map[int64][]float64{8: {50}},
	}
	g := build(t, table, events, assignment, opts)
	assert.Equal(t, [][]float64{{1, 0}, {1, 50}}, g.StaticFeatures)
}

func TestBuild_Override(t *testing.T) {
	events, assignment := eventsAt(0, 1, 2, 3)
	override := mat.NewDense(4, 4, []float64{
		7, 2.5, 0, 0,
		2.5, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	opts := DefaultOptions()
	opts.AdjacencyOverride = override

	g := build(t, grid2x2(), events, assignment, opts)
	assert.Equal(t, [2][]int{{0, 1}, {1, 0}}, g.EdgeIndex)
	assert.Equal(t, []float64{2.5, 2.5}, g.EdgeWeights)
}

func TestBuild_OverrideDanglingEdgesRemoved(t *testing.T) {
	events, assignment := eventsAt(0, 2)
	override := mat.NewDense(4, 4, []float64{
		0, 1, 1, 0,
		1, 0, 0, 0,
		1, 0, 0, 1,
		0, 0, 1, 0,
	})
	opts := DefaultOptions()
	opts.AdjacencyOverride = override

	g := build(t, grid2x2(), events, assignment, opts)
	assert.Equal(t, []int64{0, 2}, g.NodeIDs)
	assert.Equal(t, [2][]int{{0, 1}, {1, 0}}, g.EdgeIndex)
}

func TestOverrideFromRows(t *testing.T) {
	m, err := OverrideFromRows([][]float64{{0, 1}, {1, 0}})
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1.0, m.At(0, 1))

	_, err = OverrideFromRows(nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeShape))
	_, err = OverrideFromRows([][]float64{{0, 1}, {1}})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeShape))
}

func TestBuild_DistanceThreshold(t *testing.T) {
	table := models.NewPartitionTable("", false, []models.Partition{
		{ID: 0, Geometry: spatial.Rect(0, 0, 1, 1)},
		{ID: 1, Geometry: spatial.Rect(5, 0, 6, 1)},
	})
	events, assignment := eventsAt(0, 1)

	g := build(t, table, events, assignment, DefaultOptions())
	assert.Equal(t, 0, g.NumEdges())

	opts := DefaultOptions()
	opts.DistanceThreshold = 10
	g = build(t, table, events, assignment, opts)
	w, ok := g.Weight(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.2, w, 1e-9)
}

func TestBuild_ValidationErrors(t *testing.T) {
	events, assignment := eventsAt(0, 1)
	tests := []struct {
		name       string
		assignment []int64
		opts       func(*Options)
		code       apperrors.ErrorCode
	}{
		{"assignment length", []int64{0}, nil, apperrors.CodeShape},
		{"unknown partition", []int64{0, 9}, nil, apperrors.CodeShape},
		{"override not square", assignment, func(o *Options) { o.AdjacencyOverride = mat.NewDense(4, 3, nil) }, apperrors.CodeShape},
		{"override wrong size", assignment, func(o *Options) { o.AdjacencyOverride = mat.NewDense(3, 3, nil) }, apperrors.CodeShape},
		{"override asymmetric", assignment, func(o *Options) {
			m := mat.NewDense(4, 4, nil)
			m.Set(0, 1, 1)
			o.AdjacencyOverride = m
		}, apperrors.CodeShape},
		{"override negative", assignment, func(o *Options) {
			m := mat.NewDense(4, 4, nil)
			m.Set(0, 1, -1)
			m.Set(1, 0, -1)
			o.AdjacencyOverride = m
		}, apperrors.CodeShape},
		{"static key missing", assignment, func(o *Options) {
			o.StaticFeatures = &models.StaticFeatureTable{Key: "tract", Names: []string{"x"}}
		}, apperrors.CodeConfig},
		{"static row width", assignment, func(o *Options) {
			o.StaticFeatures = &models.StaticFeatureTable{Names: []string{"x"}, Rows: map[int64][]float64{0: {1, 2}}}
		}, apperrors.CodeShape},
		{"unknown weighting", assignment, func(o *Options) { o.Weighting = "gravity" }, apperrors.CodeConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := NewBuilder(nil).BuildGraphAndAugment(grid2x2(), events, tt.assignment, opts)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	events, assignment := eventsAt(0, 1, 3, 3, 2)
	opts := DefaultOptions()
	opts.EventAttributes = []string{"injuries"}

	first := build(t, grid2x2(), events, assignment, opts)
	second := build(t, grid2x2(), events, assignment, opts)
	assert.Equal(t, first, second)
}
