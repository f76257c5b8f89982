package temporal

import (
	"time"

	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// Input is everything the assembler reads from a built graph.
type Input struct {
	NodeIDs            []int64
	EdgeIndex          [2][]int
	EdgeWeights        []float64
	StaticFeatures     [][]float64
	StaticFeatureNames []string
	Events             []models.AugmentedEvent
}

// InputFromGraph takes the topology, node features and augmented events of
// a graph.
func InputFromGraph(g *models.GraphData) Input {
	return Input{
		NodeIDs:            g.NodeIDs,
		EdgeIndex:          g.EdgeIndex,
		EdgeWeights:        g.EdgeWeights,
		StaticFeatures:     g.StaticFeatures,
		StaticFeatureNames: g.FeatureNames,
		Events:             g.Events,
	}
}

// staticWidth returns the number of static channels.
func (in *Input) staticWidth() int {
	if len(in.StaticFeatures) == 0 {
		return 0
	}
	return len(in.StaticFeatureNames)
}

func (in *Input) validate() error {
	n := len(in.NodeIDs)
	if len(in.EdgeIndex[0]) != len(in.EdgeIndex[1]) || len(in.EdgeIndex[0]) != len(in.EdgeWeights) {
		return apperrors.Shape("edge index has %d/%d entries for %d weights",
			len(in.EdgeIndex[0]), len(in.EdgeIndex[1]), len(in.EdgeWeights))
	}
	for k := range in.EdgeWeights {
		if s, d := in.EdgeIndex[0][k], in.EdgeIndex[1][k]; s < 0 || s >= n || d < 0 || d >= n {
			return apperrors.Shape("edge %d (%d -> %d) references a node outside [0, %d)", k, s, d, n)
		}
	}
	if len(in.StaticFeatures) > 0 {
		if len(in.StaticFeatures) != n {
			return apperrors.Shape("static features have %d rows for %d nodes", len(in.StaticFeatures), n)
		}
		for i, row := range in.StaticFeatures {
			if len(row) != len(in.StaticFeatureNames) {
				return apperrors.Shape("static feature row %d has %d values, want %d", i, len(row), len(in.StaticFeatureNames))
			}
		}
	}
	for i, e := range in.Events {
		if e.NodeID >= n {
			return apperrors.Shape("event %d references node %d of %d", i, e.NodeID, n)
		}
	}
	return nil
}

// series is the gap-free dynamic feature cube, indexed [bin][node][channel].
type series struct {
	origin     time.Time
	numBins    int
	channels   []string
	raw        [][][]float64
	unassigned int
}

// binEvents aggregates events per (node, bin). Events without a node are
// counted and skipped.
func binEvents(in *Input, opts *Options) (*series, error) {
	s := &series{channels: opts.DynamicFeatureNames()}

	first := true
	var latest time.Time
	for _, e := range in.Events {
		if e.NodeID < 0 {
			s.unassigned++
			continue
		}
		if first || e.Time.Before(s.origin) {
			s.origin = e.Time
		}
		if first || e.Time.After(latest) {
			latest = e.Time
		}
		first = false
	}
	if first {
		return nil, apperrors.Range("no assigned events to bin")
	}
	if opts.TruncateOrigin {
		s.origin = s.origin.Truncate(opts.BinWidth)
	}
	s.numBins = bin(latest, s.origin, opts.BinWidth) + 1

	nodes := len(in.NodeIDs)
	s.raw = make([][][]float64, s.numBins)
	for t := range s.raw {
		s.raw[t] = make([][]float64, nodes)
		for v := range s.raw[t] {
			s.raw[t][v] = make([]float64, len(s.channels))
		}
	}
	for _, e := range in.Events {
		if e.NodeID < 0 {
			continue
		}
		cell := s.raw[bin(e.Time, s.origin, opts.BinWidth)][e.NodeID]
		cell[0]++
		for k, attr := range opts.DynamicAttributes {
			cell[k+1] += e.Attribute(attr)
		}
	}
	return s, nil
}

func bin(t, origin time.Time, width time.Duration) int {
	return int(t.Sub(origin) / width)
}

// columns gathers every value of each channel over bins [from, to).
func (s *series) columns(from, to int) [][]float64 {
	out := make([][]float64, len(s.channels))
	for c := range out {
		out[c] = make([]float64, 0, (to-from)*len(s.raw[0]))
	}
	for t := from; t < to; t++ {
		for _, cell := range s.raw[t] {
			for c, v := range cell {
				out[c] = append(out[c], v)
			}
		}
	}
	return out
}

// scaled returns a transformed copy of the cube.
func (s *series) scaled(sc *Scaler) [][][]float64 {
	out := make([][][]float64, s.numBins)
	for t, nodes := range s.raw {
		out[t] = make([][]float64, len(nodes))
		for v, cell := range nodes {
			row := make([]float64, len(cell))
			for c, x := range cell {
				row[c] = sc.Transform(c, x)
			}
			out[t][v] = row
		}
	}
	return out
}
