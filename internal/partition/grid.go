package partition

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/spatial"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// GridPartitioner tiles the extent with square cells of a fixed size in the
// target CRS. Cells are half-open [k*s, (k+1)*s) on both axes, so a point
// on a shared edge belongs to the cell east or north of it.
type GridPartitioner struct {
	cellSize  float64
	bounds    *BoundsConfig
	maxCells  int
	projector *spatial.Projector
	logger    logging.Logger
}

// NewGridPartitioner creates a grid partitioner
func NewGridPartitioner(cfg Config, logger logging.Logger) (Partitioner, error) {
	if !(cfg.CellSize > 0) || math.IsInf(cfg.CellSize, 0) {
		return nil, apperrors.Config("grid cell size must be positive, got %g", cfg.CellSize)
	}
	if cfg.Bounds != nil {
		if err := cfg.Bounds.validate(); err != nil {
			return nil, err
		}
	}
	projector, err := spatial.NewProjector(cfg.SourceCRS, cfg.TargetCRS)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "invalid grid CRS")
	}
	maxCells := cfg.MaxCells
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	return &GridPartitioner{
		cellSize:  cfg.CellSize,
		bounds:    cfg.Bounds,
		maxCells:  maxCells,
		projector: projector,
		logger:    logging.OrNop(logger).Named("GridPartitioner"),
	}, nil
}

// Name returns the strategy name
func (g *GridPartitioner) Name() string {
	return StrategyGrid
}

// cellIndex returns the global index of the half-open cell containing v.
func cellIndex(v, size float64) int64 {
	return int64(math.Floor(v / size))
}

func maxIndex(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// CreateMapping builds the grid over the extent and assigns events by
// direct index computation.
func (g *GridPartitioner) CreateMapping(events []models.PointEvent) (*models.PartitionTable, []int64, error) {
	pts, ok := projectEvents(events, g.projector)

	var extent *geom.Bounds
	if g.bounds != nil {
		b, err := g.projector.ProjectBounds(g.bounds.geomBounds())
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeConfig, "failed to project grid bounds")
		}
		extent = b
	} else {
		extent = pointBounds(pts, ok)
	}

	table := models.NewPartitionTable(g.projector.Target(), g.projector.Geographic(), nil)
	if extent == nil {
		assignment := unassignedAll(len(events))
		report(g.logger, StrategyGrid, table, assignment)
		return table, assignment, nil
	}

	s := g.cellSize
	col0, row0 := cellIndex(extent.Min.X, s), cellIndex(extent.Min.Y, s)
	col1, row1 := cellIndex(extent.Max.X, s), cellIndex(extent.Max.Y, s)
	if g.bounds != nil {
		// an explicit extent is half-open on its max side too
		col1 = maxIndex(col0, int64(math.Ceil(extent.Max.X/s))-1)
		row1 = maxIndex(row0, int64(math.Ceil(extent.Max.Y/s))-1)
	}
	nx, ny := col1-col0+1, row1-row0+1
	if float64(nx)*float64(ny) > float64(g.maxCells) {
		return nil, nil, apperrors.Shape("grid of %d x %d cells exceeds the limit of %d", nx, ny, g.maxCells)
	}

	partitions := make([]models.Partition, 0, nx*ny)
	for r := int64(0); r < ny; r++ {
		for c := int64(0); c < nx; c++ {
			minX, minY := float64(col0+c)*s, float64(row0+r)*s
			partitions = append(partitions, models.Partition{
				ID:       r*nx + c,
				Geometry: spatial.Rect(minX, minY, minX+s, minY+s),
				Centroid: geom.Point{X: minX + s/2, Y: minY + s/2},
			})
		}
	}
	table = models.NewPartitionTable(g.projector.Target(), g.projector.Geographic(), partitions)
	table.Keys["col"] = make([]int64, len(partitions))
	table.Keys["row"] = make([]int64, len(partitions))
	for i, p := range table.Partitions {
		table.Keys["col"][i] = col0 + p.ID%nx
		table.Keys["row"][i] = row0 + p.ID/nx
	}

	assignment := make([]int64, len(events))
	for i, p := range pts {
		assignment[i] = models.Unassigned
		if !ok[i] {
			continue
		}
		if p.X < extent.Min.X || p.X > extent.Max.X || p.Y < extent.Min.Y || p.Y > extent.Max.Y {
			continue
		}
		c := cellIndex(p.X, s) - col0
		r := cellIndex(p.Y, s) - row0
		if c < 0 || c >= nx || r < 0 || r >= ny {
			continue
		}
		assignment[i] = r*nx + c
	}

	report(g.logger, StrategyGrid, table, assignment)
	return table, assignment, nil
}

func init() {
	Register(StrategyGrid, NewGridPartitioner)
}
