package partition

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/metrics"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/spatial"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// Strategy names
const (
	StrategyGrid    = "grid"
	StrategyPolygon = "polygon"
	StrategyGeohash = "geohash"
)

// DefaultMaxCells caps generated grids and geohash covers.
const DefaultMaxCells = 1000000

// Partitioner decomposes an area into non-overlapping partitions and assigns
// each event to exactly one of them or to models.Unassigned.
type Partitioner interface {
	// Name returns the strategy name
	Name() string

	// CreateMapping builds the partition table and returns one partition id
	// per event, aligned with the input order.
	CreateMapping(events []models.PointEvent) (*models.PartitionTable, []int64, error)
}

// BoundsConfig is a lon/lat extent override.
type BoundsConfig struct {
	MinLon float64 `mapstructure:"min_lon" json:"min_lon"`
	MinLat float64 `mapstructure:"min_lat" json:"min_lat"`
	MaxLon float64 `mapstructure:"max_lon" json:"max_lon"`
	MaxLat float64 `mapstructure:"max_lat" json:"max_lat"`
}

func (b *BoundsConfig) validate() error {
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return apperrors.Config("bounds must have min < max, got lon [%g, %g] lat [%g, %g]",
			b.MinLon, b.MaxLon, b.MinLat, b.MaxLat)
	}
	if b.MinLon < -180 || b.MaxLon > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return apperrors.Config("bounds exceed lon/lat range")
	}
	return nil
}

func (b *BoundsConfig) geomBounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.MinLon, Y: b.MinLat},
		Max: geom.Point{X: b.MaxLon, Y: b.MaxLat},
	}
}

// Config holds the options of every strategy; each strategy reads the
// fields it needs.
type Config struct {
	Strategy  string        `mapstructure:"strategy" json:"strategy"`
	SourceCRS string        `mapstructure:"source_crs" json:"source_crs,omitempty"`
	TargetCRS string        `mapstructure:"target_crs" json:"target_crs,omitempty"`
	Bounds    *BoundsConfig `mapstructure:"bounds" json:"bounds,omitempty"`
	MaxCells  int           `mapstructure:"max_cells" json:"max_cells,omitempty"`

	// grid
	CellSize float64 `mapstructure:"cell_size" json:"cell_size,omitempty"`

	// geohash
	Precision int `mapstructure:"precision" json:"precision,omitempty"`

	// polygon
	ShapefilePath string             `mapstructure:"shapefile_path" json:"shapefile_path,omitempty"`
	IDField       string             `mapstructure:"id_field" json:"id_field,omitempty"`
	Polygons      []models.Partition `mapstructure:"-" json:"polygons,omitempty"`
}

// Factory creates a partitioner from configuration
type Factory func(cfg Config, logger logging.Logger) (Partitioner, error)

// registry maps strategy names to factories
var registry = make(map[string]Factory)

// Register registers a partitioner factory under a strategy name
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New creates the partitioner registered under name.
func New(name string, cfg Config, logger logging.Logger) (Partitioner, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, apperrors.Config("unknown partitioning strategy %q", name)
	}
	return factory(cfg, logging.OrNop(logger))
}

// Strategies lists registered strategy names in ascending order.
func Strategies() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// projectEvents reprojects every event; ok[i] is false when the event has
// unusable coordinates or fails reprojection.
func projectEvents(events []models.PointEvent, p *spatial.Projector) ([]geom.Point, []bool) {
	pts := make([]geom.Point, len(events))
	ok := make([]bool, len(events))
	for i, e := range events {
		if !e.ValidCoordinates() {
			continue
		}
		x, y, err := p.Project(e.Lon, e.Lat)
		if err != nil {
			continue
		}
		pts[i] = geom.Point{X: x, Y: y}
		ok[i] = true
	}
	return pts, ok
}

// pointBounds returns the bounds of the points flagged ok, or nil when none.
func pointBounds(pts []geom.Point, ok []bool) *geom.Bounds {
	var b *geom.Bounds
	for i, p := range pts {
		if !ok[i] {
			continue
		}
		if b == nil {
			b = geom.NewBounds()
		}
		b.Extend(p.Bounds())
	}
	return b
}

func unassignedAll(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = models.Unassigned
	}
	return out
}

// report logs and records the outcome of one partitioning run.
func report(logger logging.Logger, strategy string, table *models.PartitionTable, assignment []int64) {
	unassigned := 0
	for _, id := range assignment {
		if id == models.Unassigned {
			unassigned++
		}
	}
	assigned := len(assignment) - unassigned

	metrics.EventsPartitioned.WithLabelValues(strategy, "assigned").Add(float64(assigned))
	metrics.EventsPartitioned.WithLabelValues(strategy, "unassigned").Add(float64(unassigned))
	metrics.PartitionsCreated.WithLabelValues(strategy).Observe(float64(table.Len()))

	logger.Info("partitioning complete",
		logging.String("strategy", strategy),
		logging.Int("partitions", table.Len()),
		logging.Int("assigned", assigned),
		logging.Int("unassigned", unassigned),
	)
}
