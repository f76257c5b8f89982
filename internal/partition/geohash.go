package partition

import (
	"github.com/ctessum/geom"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/spatial"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// DefaultGeohashPrecision gives cells of roughly 1.2 km x 0.6 km.
const DefaultGeohashPrecision = 6

// GeohashPartitioner uses the geohash cells of a fixed precision that cover
// the extent. Partition ids follow ascending geohash order.
type GeohashPartitioner struct {
	precision int
	bounds    *BoundsConfig
	maxCells  int
	projector *spatial.Projector
	logger    logging.Logger
}

// NewGeohashPartitioner creates a geohash partitioner
func NewGeohashPartitioner(cfg Config, logger logging.Logger) (Partitioner, error) {
	precision := cfg.Precision
	if precision == 0 {
		precision = DefaultGeohashPrecision
	}
	if precision < 1 || precision > spatial.MaxGeohashPrecision {
		return nil, apperrors.Config("geohash precision must be in [1, %d], got %d", spatial.MaxGeohashPrecision, precision)
	}
	if cfg.Bounds != nil {
		if err := cfg.Bounds.validate(); err != nil {
			return nil, err
		}
	}
	projector, err := spatial.NewProjector(cfg.SourceCRS, cfg.TargetCRS)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "invalid geohash CRS")
	}
	maxCells := cfg.MaxCells
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	return &GeohashPartitioner{
		precision: precision,
		bounds:    cfg.Bounds,
		maxCells:  maxCells,
		projector: projector,
		logger:    logging.OrNop(logger).Named("GeohashPartitioner"),
	}, nil
}

// Name returns the strategy name
func (g *GeohashPartitioner) Name() string {
	return StrategyGeohash
}

// CreateMapping covers the extent with geohash cells and assigns each event
// by encoding its position.
func (g *GeohashPartitioner) CreateMapping(events []models.PointEvent) (*models.PartitionTable, []int64, error) {
	var extent *geom.Bounds
	if g.bounds != nil {
		extent = g.bounds.geomBounds()
	} else {
		for _, e := range events {
			if !e.ValidCoordinates() {
				continue
			}
			if extent == nil {
				extent = geom.NewBounds()
			}
			extent.Extend(geom.Point{X: e.Lon, Y: e.Lat}.Bounds())
		}
	}

	table := models.NewPartitionTable(g.projector.Target(), g.projector.Geographic(), nil)
	if extent == nil {
		assignment := unassignedAll(len(events))
		report(g.logger, StrategyGeohash, table, assignment)
		return table, assignment, nil
	}

	dLat, dLon := spatial.GeohashCellDegrees(g.precision)
	estimate := ((extent.Max.Y-extent.Min.Y)/dLat + 1) * ((extent.Max.X-extent.Min.X)/dLon + 1)
	if estimate > float64(g.maxCells) {
		return nil, nil, apperrors.Shape("geohash cover of about %.0f cells exceeds the limit of %d", estimate, g.maxCells)
	}

	hashes := spatial.CoverGeohashes(extent.Min.Y, extent.Min.X, extent.Max.Y, extent.Max.X, g.precision)
	ids := make(map[string]int64, len(hashes))
	partitions := make([]models.Partition, 0, len(hashes))
	for i, h := range hashes {
		poly, err := g.projector.ProjectPolygon(spatial.GeohashPolygon(h))
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeRange, "geohash cell "+h+" cannot be projected")
		}
		ids[h] = int64(i)
		partitions = append(partitions, models.Partition{ID: int64(i), Label: h, Geometry: poly})
	}
	table = models.NewPartitionTable(g.projector.Target(), g.projector.Geographic(), partitions)

	assignment := make([]int64, len(events))
	for i, e := range events {
		assignment[i] = models.Unassigned
		if !e.ValidCoordinates() {
			continue
		}
		if e.Lon < extent.Min.X || e.Lon > extent.Max.X || e.Lat < extent.Min.Y || e.Lat > extent.Max.Y {
			continue
		}
		if id, ok := ids[spatial.EncodeGeohash(e.Lat, e.Lon, g.precision)]; ok {
			assignment[i] = id
		}
	}

	report(g.logger, StrategyGeohash, table, assignment)
	return table, assignment, nil
}

func init() {
	Register(StrategyGeohash, NewGeohashPartitioner)
}
