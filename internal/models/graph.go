package models

// GraphData is the region-adjacency graph produced by the graph builder.
// Node i is backed by partition NodeIDs[i]; nodes are ordered by ascending
// partition id.
type GraphData struct {
	NodeIDs []int64 `json:"node_ids"`
	// EdgeIndex holds source and destination node indices. Both directions
	// of every undirected edge are present, sorted by (src, dst).
	EdgeIndex      [2][]int         `json:"edge_index"`
	EdgeWeights    []float64        `json:"edge_weights"`
	StaticFeatures [][]float64      `json:"static_features"`
	FeatureNames   []string         `json:"feature_names"`
	Events         []AugmentedEvent `json:"events"`
}

// NumNodes returns the node count.
func (g *GraphData) NumNodes() int {
	return len(g.NodeIDs)
}

// NumEdges returns the directed edge count (twice the undirected count).
func (g *GraphData) NumEdges() int {
	return len(g.EdgeWeights)
}

// Weight returns the weight of edge src->dst and whether it exists.
func (g *GraphData) Weight(src, dst int) (float64, bool) {
	for k := range g.EdgeWeights {
		if g.EdgeIndex[0][k] == src && g.EdgeIndex[1][k] == dst {
			return g.EdgeWeights[k], true
		}
	}
	return 0, false
}
