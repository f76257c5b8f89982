package partition

import (
	"math"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/spatial"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lonLat = "+proj=longlat"

func event(lon, lat float64) models.PointEvent {
	return models.PointEvent{Lon: lon, Lat: lat, Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func newPartitioner(t *testing.T, cfg Config) Partitioner {
	t.Helper()
	p, err := New(cfg.Strategy, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return p
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New("hexagon", Config{}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
	assert.Equal(t, []string{StrategyGeohash, StrategyGrid, StrategyPolygon}, Strategies())
}

func TestCellIndex_HalfOpen(t *testing.T) {
	assert.Equal(t, int64(0), cellIndex(0, 1))
	assert.Equal(t, int64(0), cellIndex(0.999, 1))
	assert.Equal(t, int64(1), cellIndex(1, 1))
	assert.Equal(t, int64(-1), cellIndex(-0.5, 1))
	assert.Equal(t, int64(-1), cellIndex(-1, 1))
}

func TestGridPartitioner_AssignsRowMajor(t *testing.T) {
	p := newPartitioner(t, Config{Strategy: StrategyGrid, CellSize: 1, TargetCRS: lonLat})
	assert.Equal(t, StrategyGrid, p.Name())

	events := []models.PointEvent{
		event(0.5, 0.5),
		event(1.5, 0.5),
		event(0.5, 1.5),
		event(1.5, 1.5),
		event(1.0, 0.5), // on the shared edge of cells 0 and 1
		event(math.NaN(), 0.5),
		event(0.5, 95),
	}
	table, assignment, err := p.CreateMapping(events)
	require.NoError(t, err)

	require.Equal(t, 4, table.Len())
	assert.True(t, table.Geographic)
	for i, part := range table.Partitions {
		assert.Equal(t, int64(i), part.ID)
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 1, models.Unassigned, models.Unassigned}, assignment)

	// every assigned point lies inside its cell
	idx := table.IndexByID()
	for i, id := range assignment {
		if id == models.Unassigned {
			continue
		}
		b := table.Partitions[idx[id]].Bounds()
		assert.True(t, events[i].Lon >= b.Min.X && events[i].Lon < b.Max.X)
		assert.True(t, events[i].Lat >= b.Min.Y && events[i].Lat < b.Max.Y)
	}
}

func TestGridPartitioner_BoundsOverride(t *testing.T) {
	p := newPartitioner(t, Config{
		Strategy:  StrategyGrid,
		CellSize:  1,
		TargetCRS: lonLat,
		Bounds:    &BoundsConfig{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2},
	})

	table, assignment, err := p.CreateMapping([]models.PointEvent{
		event(1.5, 1.5),
		event(2.5, 0.5),
		event(-0.1, 0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []int64{3, models.Unassigned, models.Unassigned}, assignment)
}

func TestGridPartitioner_Errors(t *testing.T) {
	_, err := New(StrategyGrid, Config{CellSize: 0}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfig))

	_, err = New(StrategyGrid, Config{CellSize: 1, Bounds: &BoundsConfig{MinLon: 2, MaxLon: 1, MaxLat: 1}}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfig))

	p := newPartitioner(t, Config{Strategy: StrategyGrid, CellSize: 1, TargetCRS: lonLat, MaxCells: 3})
	_, _, err = p.CreateMapping([]models.PointEvent{event(0.5, 0.5), event(1.5, 1.5)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeShape))
}

func TestGridPartitioner_NoValidEvents(t *testing.T) {
	p := newPartitioner(t, Config{Strategy: StrategyGrid, CellSize: 1, TargetCRS: lonLat})
	table, assignment, err := p.CreateMapping([]models.PointEvent{event(math.Inf(1), 0)})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, []int64{models.Unassigned}, assignment)
}

func TestGridPartitioner_WebMercator(t *testing.T) {
	p := newPartitioner(t, Config{Strategy: StrategyGrid, CellSize: 1000})
	table, assignment, err := p.CreateMapping([]models.PointEvent{
		event(-0.0001, -0.0001),
		event(0.0001, 0.0001),
		event(0, 89.5),
	})
	require.NoError(t, err)
	assert.False(t, table.Geographic)
	assert.Equal(t, spatial.WebMercator, table.CRS)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []int64{0, 3, models.Unassigned}, assignment)
}

func squares() []models.Partition {
	return []models.Partition{
		{ID: 20, Geometry: spatial.Rect(1, 0, 2, 1)},
		{ID: 10, Geometry: spatial.Rect(0, 0, 1, 1)},
		{ID: 5, Geometry: spatial.Rect(0, 1, 1, 2)},
	}
}

func TestPolygonPartitioner(t *testing.T) {
	p := newPartitioner(t, Config{Strategy: StrategyPolygon, TargetCRS: lonLat, Polygons: squares()})

	table, assignment, err := p.CreateMapping([]models.PointEvent{
		event(0.5, 0.5),
		event(1.5, 0.5),
		event(0.5, 1.5),
		event(1.0, 0.5), // shared edge of 10 and 20
		event(3, 3),
		event(math.NaN(), math.NaN()),
	})
	require.NoError(t, err)

	ids := make([]int64, 0, table.Len())
	for _, part := range table.Partitions {
		ids = append(ids, part.ID)
		assert.NotZero(t, part.Centroid)
	}
	assert.Equal(t, []int64{5, 10, 20}, ids)
	assert.Equal(t, []int64{10, 20, 5, 10, models.Unassigned, models.Unassigned}, assignment)
}

func TestPolygonPartitioner_DoesNotReorderInput(t *testing.T) {
	in := squares()
	newPartitioner(t, Config{Strategy: StrategyPolygon, TargetCRS: lonLat, Polygons: in})
	assert.Equal(t, int64(20), in[0].ID)
}

func TestPolygonPartitioner_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		code apperrors.ErrorCode
	}{
		{"no polygons", Config{TargetCRS: lonLat}, apperrors.CodeConfig},
		{"overlap", Config{TargetCRS: lonLat, Polygons: []models.Partition{
			{ID: 1, Geometry: spatial.Rect(0, 0, 2, 2)},
			{ID: 2, Geometry: spatial.Rect(1, 1, 3, 3)},
		}}, apperrors.CodeShape},
		{"duplicate id", Config{TargetCRS: lonLat, Polygons: []models.Partition{
			{ID: 1, Geometry: spatial.Rect(0, 0, 1, 1)},
			{ID: 1, Geometry: spatial.Rect(1, 0, 2, 1)},
		}}, apperrors.CodeShape},
		{"missing shapefile", Config{TargetCRS: lonLat, ShapefilePath: "testdata/missing.shp"}, apperrors.CodeConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(StrategyPolygon, tt.cfg, nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestGeohashPartitioner(t *testing.T) {
	p := newPartitioner(t, Config{Strategy: StrategyGeohash, Precision: 1, TargetCRS: lonLat})

	events := []models.PointEvent{
		event(-10, -10),
		event(10, 10),
		event(0, 0), // corner of all four cells
		event(math.NaN(), 0),
	}
	table, assignment, err := p.CreateMapping(events)
	require.NoError(t, err)

	labels := make([]string, 0, table.Len())
	for _, part := range table.Partitions {
		labels = append(labels, part.Label)
	}
	assert.Equal(t, []string{"7", "e", "k", "s"}, labels)
	assert.Equal(t, []int64{0, 3, 0, models.Unassigned}, assignment)
}

func TestGeohashPartitioner_EdgeAlignedExtent(t *testing.T) {
	p := newPartitioner(t, Config{Strategy: StrategyGeohash, Precision: 3, TargetCRS: lonLat})
	dLat, dLon := spatial.GeohashCellDegrees(3)

	// every point sits on a cell edge, so the extent does too
	var events []models.PointEvent
	for i := 0; i <= 4; i++ {
		for j := 0; j <= 4; j++ {
			events = append(events, event(float64(j)*dLon, float64(i)*dLat))
		}
	}
	_, assignment, err := p.CreateMapping(events)
	require.NoError(t, err)
	for i, id := range assignment {
		assert.NotEqual(t, models.Unassigned, id, "event %d", i)
	}
}

func TestPointBounds(t *testing.T) {
	assert.Nil(t, pointBounds([]geom.Point{{X: 1, Y: 1}}, []bool{false}))

	b := pointBounds(
		[]geom.Point{{X: 1, Y: 5}, {X: -2, Y: 3}, {X: 100, Y: 100}},
		[]bool{true, true, false},
	)
	require.NotNil(t, b)
	assert.Equal(t, geom.Point{X: -2, Y: 3}, b.Min)
	assert.Equal(t, geom.Point{X: 1, Y: 5}, b.Max)
}

func TestGeohashPartitioner_InvalidPrecision(t *testing.T) {
	_, err := New(StrategyGeohash, Config{Precision: 13}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
}

func TestPartitioners_Deterministic(t *testing.T) {
	events := []models.PointEvent{event(0.2, 0.3), event(1.7, 0.9), event(0.4, 1.1)}
	for _, cfg := range []Config{
		{Strategy: StrategyGrid, CellSize: 0.5, TargetCRS: lonLat},
		{Strategy: StrategyGeohash, Precision: 3, TargetCRS: lonLat},
		{Strategy: StrategyPolygon, TargetCRS: lonLat, Polygons: squares()},
	} {
		p := newPartitioner(t, cfg)
		_, first, err := p.CreateMapping(events)
		require.NoError(t, err)
		_, second, err := p.CreateMapping(events)
		require.NoError(t, err)
		assert.Equal(t, first, second, cfg.Strategy)
	}
}
