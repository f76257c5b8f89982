package temporal

import "github.com/jengzang/eventgraph-go/internal/models"

// WindowIterator produces windows lazily in strictly increasing time order.
// Reset restarts the sequence; every pass yields identical windows.
type WindowIterator struct {
	static   [][]float64
	dynamic  [][][]float64 // [bin][node][channel], scaled when normalizing
	raw      [][][]float64
	history  int
	horizon  int
	target   int
	classify bool
	starts   []int
	pos      int
}

// Len returns the number of windows in one pass.
func (it *WindowIterator) Len() int {
	return len(it.starts)
}

// Starts returns the first history bin of every window.
func (it *WindowIterator) Starts() []int {
	out := make([]int, len(it.starts))
	copy(out, it.starts)
	return out
}

// Reset rewinds the iterator to the first window.
func (it *WindowIterator) Reset() {
	it.pos = 0
}

// Next builds the next window, or returns false when the pass is done.
func (it *WindowIterator) Next() (*models.Window, bool) {
	if it.pos >= len(it.starts) {
		return nil, false
	}
	w := it.build(it.pos, it.starts[it.pos])
	it.pos++
	return w, true
}

func (it *WindowIterator) build(index, start int) *models.Window {
	nodes := len(it.dynamic[start])
	staticCh := 0
	if len(it.static) > 0 {
		staticCh = len(it.static[0])
	}
	dynCh := len(it.dynamic[start][0])

	features := make([][][]float64, nodes)
	for v := 0; v < nodes; v++ {
		channels := make([][]float64, staticCh+dynCh)
		for c := 0; c < staticCh; c++ {
			steps := make([]float64, it.history)
			for s := range steps {
				steps[s] = it.static[v][c]
			}
			channels[c] = steps
		}
		for c := 0; c < dynCh; c++ {
			steps := make([]float64, it.history)
			for s := range steps {
				steps[s] = it.dynamic[start+s][v][c]
			}
			channels[staticCh+c] = steps
		}
		features[v] = channels
	}

	at := start + it.history - 1 + it.horizon
	target := make([]float64, nodes)
	for v := range target {
		if it.classify {
			if it.raw[at][v][it.target] > 0 {
				target[v] = 1
			}
			continue
		}
		target[v] = it.dynamic[at][v][it.target]
	}

	return &models.Window{Index: index, Start: start, Features: features, Target: target}
}

// windowStarts lists candidate starts t with t+history-1+horizon < numBins,
// drops windows straddling fitEnd when fitting on a prefix, then keeps every
// k-th. It also returns how many kept windows lie inside the fit range.
func windowStarts(numBins, history, horizon, k, fitEnd int, prefix bool) ([]int, int) {
	var starts []int
	inFit := 0
	candidate := 0
	for t := 0; t+history-1+horizon < numBins; t++ {
		last := t + history - 1 + horizon
		if prefix && t < fitEnd && last >= fitEnd {
			continue
		}
		if candidate%k == 0 {
			starts = append(starts, t)
			if last < fitEnd {
				inFit++
			}
		}
		candidate++
	}
	return starts, inFit
}
