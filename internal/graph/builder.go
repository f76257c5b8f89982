package graph

import (
	"math"
	"sort"

	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/metrics"
	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// Builder turns a partition table and an event assignment into a region
// adjacency graph with per-node features.
type Builder struct {
	logger logging.Logger
}

// NewBuilder creates a new graph builder
func NewBuilder(logger logging.Logger) *Builder {
	return &Builder{logger: logging.OrNop(logger).Named("GraphBuilder")}
}

// BuildGraphAndAugment validates the inputs, derives adjacency, drops empty
// partitions when requested and aggregates node features. Node i of the
// result is the i-th retained partition in ascending id order.
func (b *Builder) BuildGraphAndAugment(table *models.PartitionTable, events []models.PointEvent, assignment []int64, opts Options) (*models.GraphData, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, apperrors.Config("partition table is required")
	}
	n := table.Len()

	if len(assignment) != len(events) {
		return nil, apperrors.Shape("assignment has %d entries for %d events", len(assignment), len(events))
	}
	position := table.IndexByID()
	for i, id := range assignment {
		if id == models.Unassigned {
			continue
		}
		if _, ok := position[id]; !ok {
			return nil, apperrors.Shape("event %d is assigned to unknown partition %d", i, id)
		}
	}
	if opts.AdjacencyOverride != nil {
		if err := validateOverride(opts.AdjacencyOverride, n); err != nil {
			return nil, err
		}
	}
	var staticKeys []int64
	if opts.StaticFeatures != nil {
		keys, err := validateStatic(opts.StaticFeatures, table)
		if err != nil {
			return nil, err
		}
		staticKeys = keys
	}

	// aggregate event counts and attribute sums per partition
	counts := make([]float64, n)
	sums := make([][]float64, n)
	for i := range sums {
		sums[i] = make([]float64, len(opts.EventAttributes))
	}
	for i, id := range assignment {
		if id == models.Unassigned {
			continue
		}
		p := position[id]
		counts[p]++
		for k, attr := range opts.EventAttributes {
			sums[p][k] += events[i].Attribute(attr)
		}
	}

	var pairs []pair
	if opts.AdjacencyOverride != nil {
		pairs = overridePairs(opts.AdjacencyOverride)
	} else {
		pairs = inferPairs(table, opts)
	}

	// old partition position -> new node index, -1 when dropped
	newIndex := make([]int, n)
	var nodeIDs []int64
	for i, p := range table.Partitions {
		if opts.RemoveEmpty && counts[i] == 0 {
			newIndex[i] = -1
			continue
		}
		newIndex[i] = len(nodeIDs)
		nodeIDs = append(nodeIDs, p.ID)
	}
	if nodeIDs == nil {
		nodeIDs = []int64{}
	}

	g := &models.GraphData{
		NodeIDs:      nodeIDs,
		FeatureNames: featureNames(opts),
	}
	g.EdgeIndex, g.EdgeWeights = directedEdges(pairs, newIndex)
	g.StaticFeatures = nodeFeatures(table, newIndex, len(nodeIDs), counts, sums, opts.StaticFeatures, staticKeys)

	g.Events = make([]models.AugmentedEvent, len(events))
	for i, e := range events {
		node := -1
		if id := assignment[i]; id != models.Unassigned {
			node = newIndex[position[id]]
		}
		g.Events[i] = models.AugmentedEvent{PointEvent: e, PartitionID: assignment[i], NodeID: node}
	}

	metrics.GraphNodes.Observe(float64(g.NumNodes()))
	metrics.GraphEdges.Observe(float64(g.NumEdges()))
	b.logger.Info("graph built",
		logging.Int("partitions", n),
		logging.Int("nodes", g.NumNodes()),
		logging.Int("edges", g.NumEdges()/2),
		logging.String("weighting", opts.Weighting),
		logging.Bool("override", opts.AdjacencyOverride != nil),
	)
	return g, nil
}

func featureNames(opts Options) []string {
	names := []string{FeatureEventCount}
	for _, attr := range opts.EventAttributes {
		names = append(names, SumFeatureName(attr))
	}
	if opts.StaticFeatures != nil {
		names = append(names, opts.StaticFeatures.Names...)
	}
	return names
}

// directedEdges remaps undirected pairs to retained nodes, drops edges that
// lost an endpoint and emits both directions sorted by (src, dst).
func directedEdges(pairs []pair, newIndex []int) ([2][]int, []float64) {
	type edge struct {
		src, dst int
		w        float64
	}
	edges := make([]edge, 0, 2*len(pairs))
	for _, p := range pairs {
		a, b := newIndex[p.i], newIndex[p.j]
		if a < 0 || b < 0 || a == b {
			continue
		}
		edges = append(edges, edge{a, b, p.weight}, edge{b, a, p.weight})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].src != edges[j].src {
			return edges[i].src < edges[j].src
		}
		return edges[i].dst < edges[j].dst
	})

	index := [2][]int{make([]int, len(edges)), make([]int, len(edges))}
	weights := make([]float64, len(edges))
	for k, e := range edges {
		index[0][k], index[1][k], weights[k] = e.src, e.dst, e.w
	}
	return index, weights
}

// nodeFeatures lays out event_count, attribute sums and static columns per
// retained node. Missing static rows and NaN values are zero-filled.
func nodeFeatures(table *models.PartitionTable, newIndex []int, nodes int, counts []float64, sums [][]float64,
	static *models.StaticFeatureTable, staticKeys []int64) [][]float64 {
	width := 1
	if len(sums) > 0 {
		width += len(sums[0])
	}
	staticWidth := 0
	if static != nil {
		staticWidth = len(static.Names)
	}

	out := make([][]float64, nodes)
	for i := range table.Partitions {
		k := newIndex[i]
		if k < 0 {
			continue
		}
		row := make([]float64, 0, width+staticWidth)
		row = append(row, counts[i])
		row = append(row, sums[i]...)
		if static != nil {
			values, ok := static.Rows[staticKeys[i]]
			for c := 0; c < staticWidth; c++ {
				v := 0.0
				if ok && !math.IsNaN(values[c]) && !math.IsInf(values[c], 0) {
					v = values[c]
				}
				row = append(row, v)
			}
		}
		out[k] = row
	}
	return out
}
