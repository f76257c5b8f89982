package partition

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/spatial"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// overlapTolerance is the intersection area, relative to the smaller
// polygon, above which two partitions are considered overlapping.
const overlapTolerance = 1e-9

// indexedPartition is an R-tree entry pointing back into the table.
type indexedPartition struct {
	geom.Polygon
	index int
}

// PolygonPartitioner assigns events to precomputed polygons (administrative
// areas, Voronoi cells, census tracts).
type PolygonPartitioner struct {
	table     *models.PartitionTable
	tree      *rtree.Rtree
	projector *spatial.Projector
	logger    logging.Logger
}

// NewPolygonPartitioner creates a polygon partitioner from inline polygons
// or, when ShapefilePath is set, from a shapefile. Polygons are expressed in
// TargetCRS.
func NewPolygonPartitioner(cfg Config, logger logging.Logger) (Partitioner, error) {
	target := cfg.TargetCRS
	if target == "" {
		target = spatial.WebMercator
	}

	polygons := cfg.Polygons
	if cfg.ShapefilePath != "" {
		loaded, err := LoadShapefile(cfg.ShapefilePath, cfg.IDField, target)
		if err != nil {
			return nil, err
		}
		polygons = loaded
	}
	if len(polygons) == 0 {
		return nil, apperrors.Config("polygon partitioner needs inline polygons or a shapefile")
	}

	projector, err := spatial.NewProjector(cfg.SourceCRS, target)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "invalid polygon CRS")
	}

	// copy so sorting does not reorder the caller's slice
	parts := make([]models.Partition, len(polygons))
	copy(parts, polygons)
	table := models.NewPartitionTable(target, spatial.IsGeographic(target), parts)

	tree, err := indexPartitions(table)
	if err != nil {
		return nil, err
	}

	return &PolygonPartitioner{
		table:     table,
		tree:      tree,
		projector: projector,
		logger:    logging.OrNop(logger).Named("PolygonPartitioner"),
	}, nil
}

// indexPartitions validates the table and builds its R-tree. Duplicate ids,
// empty geometries and overlapping polygons are shape errors.
func indexPartitions(table *models.PartitionTable) (*rtree.Rtree, error) {
	tree := rtree.NewTree(25, 50)
	for i, p := range table.Partitions {
		if i > 0 && table.Partitions[i-1].ID == p.ID {
			return nil, apperrors.Shape("duplicate partition id %d", p.ID)
		}
		if len(p.Geometry) == 0 || len(p.Geometry[0]) < 3 {
			return nil, apperrors.Shape("partition %d has no polygon geometry", p.ID)
		}
		area := p.Geometry.Area()
		for _, item := range tree.SearchIntersect(p.Geometry.Bounds()) {
			other := item.(*indexedPartition)
			overlap := p.Geometry.Intersection(other.Polygon)
			if overlap == nil {
				continue
			}
			limit := overlapTolerance * math.Min(area, other.Polygon.Area())
			if a := overlap.Area(); a > limit {
				return nil, apperrors.Shape("partitions %d and %d overlap (area %g)",
					table.Partitions[other.index].ID, p.ID, a)
			}
		}
		tree.Insert(&indexedPartition{Polygon: p.Geometry, index: i})
	}
	return tree, nil
}

// Name returns the strategy name
func (p *PolygonPartitioner) Name() string {
	return StrategyPolygon
}

// Table returns the partition table the partitioner assigns into.
func (p *PolygonPartitioner) Table() *models.PartitionTable {
	return p.table
}

// CreateMapping assigns each event to the polygon containing it. A point on a
// boundary shared by several polygons goes to the lowest partition id.
func (p *PolygonPartitioner) CreateMapping(events []models.PointEvent) (*models.PartitionTable, []int64, error) {
	pts, ok := projectEvents(events, p.projector)

	assignment := make([]int64, len(events))
	for i, pt := range pts {
		assignment[i] = models.Unassigned
		if !ok[i] {
			continue
		}
		assignment[i] = p.locate(pt)
	}

	report(p.logger, StrategyPolygon, p.table, assignment)
	return p.table, assignment, nil
}

func (p *PolygonPartitioner) locate(pt geom.Point) int64 {
	best := models.Unassigned
	for _, item := range p.tree.SearchIntersect(&geom.Bounds{Min: pt, Max: pt}) {
		entry := item.(*indexedPartition)
		if pt.Within(entry.Polygon) == geom.Outside {
			continue
		}
		id := p.table.Partitions[entry.index].ID
		if best == models.Unassigned || id < best {
			best = id
		}
	}
	return best
}

// LoadShapefile reads polygon partitions from an ESRI shapefile and
// reprojects them into targetCRS. The partition id is read from idField, or
// taken from the row number when idField is empty.
func LoadShapefile(path, idField, targetCRS string) ([]models.Partition, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "failed to open shapefile")
	}
	defer dec.Close()

	srcSR, err := dec.SR()
	if err != nil {
		return nil, fmt.Errorf("failed to read shapefile projection: %w", err)
	}
	dstSR, err := proj.Parse(targetCRS)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfig, "invalid target CRS")
	}
	trans, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("failed to build shapefile transform: %w", err)
	}

	var fields []string
	if idField != "" {
		fields = append(fields, idField)
	}

	var partitions []models.Partition
	for row := int64(0); ; row++ {
		g, values, more := dec.DecodeRowFields(fields...)
		if !more {
			break
		}
		id := row
		if idField != "" {
			s, ok := values[idField]
			if !ok {
				return nil, apperrors.Config("shapefile has no attribute column %q", idField)
			}
			id, err = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeShape, fmt.Sprintf("row %d: invalid partition id %q", row, s))
			}
		}

		gg, err := g.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("failed to reproject row %d: %w", row, err)
		}
		var poly geom.Polygon
		switch t := gg.(type) {
		case geom.Polygon:
			poly = t
		case geom.MultiPolygon:
			if len(t) != 1 {
				return nil, apperrors.Shape("row %d: multipart polygons are not supported", row)
			}
			poly = t[0]
		default:
			return nil, apperrors.Shape("row %d: partition shapes need to be polygons, got %T", row, gg)
		}
		partitions = append(partitions, models.Partition{ID: id, Label: strconv.FormatInt(id, 10), Geometry: poly})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("failed to decode shapefile: %w", err)
	}

	return partitions, nil
}

func init() {
	Register(StrategyPolygon, NewPolygonPartitioner)
}
