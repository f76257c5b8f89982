// Package tensor converts temporal datasets between the stacked 4d window
// layout and the flat 3d per-step layout.
package tensor

import (
	"math"
	"sort"

	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// shape is the common geometry every window must share.
type shape struct {
	nodes, channels, history int
}

func windowShape(w *models.Window) (shape, error) {
	sh := shape{nodes: len(w.Features)}
	if sh.nodes == 0 {
		return sh, nil
	}
	sh.channels = len(w.Features[0])
	if sh.channels > 0 {
		sh.history = len(w.Features[0][0])
	}
	for v, channels := range w.Features {
		if len(channels) != sh.channels {
			return sh, apperrors.Shape("window %d node %d has %d channels, want %d", w.Index, v, len(channels), sh.channels)
		}
		for c, steps := range channels {
			if len(steps) != sh.history {
				return sh, apperrors.Shape("window %d node %d channel %d has %d steps, want %d", w.Index, v, c, len(steps), sh.history)
			}
		}
	}
	if len(w.Target) != sh.nodes {
		return sh, apperrors.Shape("window %d has %d targets for %d nodes", w.Index, len(w.Target), sh.nodes)
	}
	return sh, nil
}

func same(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}

// Convert4DTo3D splits every window into its static block (the first
// staticFeatureCount channels, constant over history) and its dynamic
// block, and re-stacks the dynamic values by absolute time step. Windows
// that overlap must agree on every shared step.
func Convert4DTo3D(ds *models.Dataset, staticFeatureCount int) (*models.FlatDataset, error) {
	if ds == nil || ds.Flat != nil {
		return nil, apperrors.Shape("dataset is not in the 4d layout")
	}
	if staticFeatureCount < 0 {
		return nil, apperrors.Shape("static feature count must be non-negative, got %d", staticFeatureCount)
	}

	flat := &models.FlatDataset{
		StaticFeatureCount: staticFeatureCount,
		Steps:              []models.FlatStep{},
		WindowStarts:       make([]int, 0, len(ds.Windows)),
		WindowIndex:        make([]int, 0, len(ds.Windows)),
		Targets:            make([][]float64, 0, len(ds.Windows)),
		EdgeIndex:          ds.EdgeIndex,
		EdgeWeights:        ds.EdgeWeights,
	}
	if len(ds.Windows) == 0 {
		return flat, nil
	}

	want, err := windowShape(&ds.Windows[0])
	if err != nil {
		return nil, err
	}
	if staticFeatureCount > want.channels {
		return nil, apperrors.Shape("static feature count %d exceeds %d channels", staticFeatureCount, want.channels)
	}
	flat.HistoryWindow = want.history

	steps := make(map[int][][]float64)
	for i := range ds.Windows {
		w := &ds.Windows[i]
		sh, err := windowShape(w)
		if err != nil {
			return nil, err
		}
		if sh != want {
			return nil, apperrors.Shape("window %d is %d x %d x %d, want %d x %d x %d",
				w.Index, sh.nodes, sh.channels, sh.history, want.nodes, want.channels, want.history)
		}

		if err := collectStatic(flat, w, staticFeatureCount); err != nil {
			return nil, err
		}

		for s := 0; s < sh.history; s++ {
			abs := w.Start + s
			snapshot := make([][]float64, sh.nodes)
			for v := range snapshot {
				row := make([]float64, sh.channels-staticFeatureCount)
				for c := range row {
					row[c] = w.Features[v][staticFeatureCount+c][s]
				}
				snapshot[v] = row
			}
			prev, ok := steps[abs]
			if !ok {
				steps[abs] = snapshot
				continue
			}
			if !agree(prev, snapshot) {
				return nil, apperrors.Shape("window %d disagrees with an earlier window at step %d", w.Index, abs)
			}
		}

		flat.WindowStarts = append(flat.WindowStarts, w.Start)
		flat.WindowIndex = append(flat.WindowIndex, w.Index)
		flat.Targets = append(flat.Targets, append([]float64(nil), w.Target...))
	}

	keys := make([]int, 0, len(steps))
	for k := range steps {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		flat.Steps = append(flat.Steps, models.FlatStep{Step: k, Features: steps[k]})
	}
	return flat, nil
}

// collectStatic records the static block of the first window and checks
// every later window and history step against it.
func collectStatic(flat *models.FlatDataset, w *models.Window, count int) error {
	if flat.Static == nil {
		flat.Static = make([][]float64, len(w.Features))
		for v := range w.Features {
			row := make([]float64, count)
			for c := range row {
				if len(w.Features[v][c]) > 0 {
					row[c] = w.Features[v][c][0]
				}
			}
			flat.Static[v] = row
		}
	}
	for v := range w.Features {
		for c := 0; c < count; c++ {
			for s, x := range w.Features[v][c] {
				if !same(x, flat.Static[v][c]) {
					return apperrors.Shape("static channel %d of node %d varies at window %d step %d", c, v, w.Index, s)
				}
			}
		}
	}
	return nil
}

func agree(a, b [][]float64) bool {
	for v := range a {
		for c := range a[v] {
			if !same(a[v][c], b[v][c]) {
				return false
			}
		}
	}
	return true
}

// Convert3DTo4D rebuilds the windows of a flat dataset. It is the exact
// inverse of Convert4DTo3D.
func Convert3DTo4D(flat *models.FlatDataset) (*models.Dataset, error) {
	if flat == nil {
		return nil, apperrors.Shape("flat dataset is nil")
	}
	if len(flat.Targets) != len(flat.WindowStarts) {
		return nil, apperrors.Shape("flat dataset has %d targets for %d windows", len(flat.Targets), len(flat.WindowStarts))
	}
	if flat.WindowIndex != nil && len(flat.WindowIndex) != len(flat.WindowStarts) {
		return nil, apperrors.Shape("flat dataset has %d window indices for %d windows", len(flat.WindowIndex), len(flat.WindowStarts))
	}

	byStep := make(map[int][][]float64, len(flat.Steps))
	for _, st := range flat.Steps {
		byStep[st.Step] = st.Features
	}

	ds := &models.Dataset{
		Layout:      models.Layout4D,
		EdgeIndex:   flat.EdgeIndex,
		EdgeWeights: flat.EdgeWeights,
		Windows:     make([]models.Window, 0, len(flat.WindowStarts)),
	}
	nodes := len(flat.Static)
	h := flat.HistoryWindow
	for i, start := range flat.WindowStarts {
		if len(flat.Targets[i]) != nodes {
			return nil, apperrors.Shape("window %d has %d targets for %d nodes", i, len(flat.Targets[i]), nodes)
		}
		features := make([][][]float64, nodes)
		for v := 0; v < nodes; v++ {
			var dyn int
			if snap, ok := byStep[start]; ok && v < len(snap) {
				dyn = len(snap[v])
			}
			channels := make([][]float64, flat.StaticFeatureCount+dyn)
			for c := 0; c < flat.StaticFeatureCount; c++ {
				steps := make([]float64, h)
				for s := range steps {
					steps[s] = flat.Static[v][c]
				}
				channels[c] = steps
			}
			for c := 0; c < dyn; c++ {
				channels[flat.StaticFeatureCount+c] = make([]float64, h)
			}
			for s := 0; s < h; s++ {
				snap, ok := byStep[start+s]
				if !ok {
					return nil, apperrors.Shape("window %d needs step %d, which is missing", i, start+s)
				}
				if v >= len(snap) || len(snap[v]) != dyn {
					return nil, apperrors.Shape("step %d does not match the node and channel count", start+s)
				}
				for c := 0; c < dyn; c++ {
					channels[flat.StaticFeatureCount+c][s] = snap[v][c]
				}
			}
			features[v] = channels
		}
		index := i
		if flat.WindowIndex != nil {
			index = flat.WindowIndex[i]
		}
		ds.Windows = append(ds.Windows, models.Window{
			Index:    index,
			Start:    start,
			Features: features,
			Target:   append([]float64(nil), flat.Targets[i]...),
		})
	}
	return ds, nil
}
