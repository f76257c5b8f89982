// Package stats describes assembled datasets: per-channel distributions,
// how activity spreads over regions and how persistent it is over time.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/eventgraph-go/internal/graph"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/tensor"
)

// ChannelSummary describes the values of one feature channel.
type ChannelSummary struct {
	Name      string  `json:"name"`
	Static    bool    `json:"static"`
	Count     int     `json:"count"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Median    float64 `json:"median"`
	P95       float64 `json:"p95"`
	ZeroShare float64 `json:"zero_share"`
}

// Summary describes a dataset.
type Summary struct {
	Nodes    int              `json:"nodes"`
	Steps    int              `json:"steps"`
	Windows  int              `json:"windows"`
	Channels []ChannelSummary `json:"channels"`
	// ActiveNodeShare is the share of nodes with at least one event.
	ActiveNodeShare float64 `json:"active_node_share"`
	// ActivityEntropy is the normalized entropy of event counts over nodes;
	// 1 means events are spread evenly.
	ActivityEntropy float64 `json:"activity_entropy"`
	ActivityGini    float64 `json:"activity_gini"`
	// Lag1Autocorrelation is measured on the first dynamic channel summed
	// over nodes, step by step.
	Lag1Autocorrelation float64 `json:"lag1_autocorrelation"`
	// PositiveTargetShare is the share of nonzero targets.
	PositiveTargetShare float64 `json:"positive_target_share"`
}

// Summarize describes a dataset in either layout.
func Summarize(meta *models.Metadata, ds *models.Dataset) (*Summary, error) {
	flat := ds.Flat
	if flat == nil {
		var err error
		flat, err = tensor.Convert4DTo3D(ds, len(meta.StaticFeatureNames))
		if err != nil {
			return nil, err
		}
	}

	s := &Summary{
		Nodes:   len(meta.NodeIDs),
		Steps:   len(flat.Steps),
		Windows: len(flat.WindowStarts),
	}

	for c, name := range meta.StaticFeatureNames {
		values := make([]float64, 0, len(flat.Static))
		for _, row := range flat.Static {
			values = append(values, row[c])
		}
		s.Channels = append(s.Channels, describe(name, true, values))

		if name == graph.FeatureEventCount {
			s.activity(values)
		}
	}

	for c, name := range meta.DynamicFeatureNames {
		var values []float64
		for _, step := range flat.Steps {
			for _, row := range step.Features {
				values = append(values, row[c])
			}
		}
		s.Channels = append(s.Channels, describe(name, false, values))
	}

	if len(meta.DynamicFeatureNames) > 0 {
		totals := make([]float64, len(flat.Steps))
		for i, step := range flat.Steps {
			for _, row := range step.Features {
				totals[i] += row[0]
			}
		}
		s.Lag1Autocorrelation = AutoCorrelation(totals, 1)
	}

	var positive, total int
	for _, targets := range flat.Targets {
		for _, t := range targets {
			total++
			if t != 0 {
				positive++
			}
		}
	}
	if total > 0 {
		s.PositiveTargetShare = float64(positive) / float64(total)
	}
	return s, nil
}

func (s *Summary) activity(counts []float64) {
	if len(counts) == 0 {
		return
	}
	var active int
	for _, v := range counts {
		if v > 0 {
			active++
		}
	}
	s.ActiveNodeShare = float64(active) / float64(len(counts))
	s.ActivityEntropy = NormalizedEntropy(counts)
	s.ActivityGini = GiniImpurity(counts)
}

func describe(name string, static bool, values []float64) ChannelSummary {
	cs := ChannelSummary{Name: name, Static: static, Count: len(values)}
	if len(values) == 0 {
		return cs
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	cs.Min = sorted[0]
	cs.Max = sorted[len(sorted)-1]
	cs.Mean, cs.StdDev = stat.PopMeanStdDev(sorted, nil)
	cs.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	cs.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	cs.ZeroShare = float64(floats.Count(isZero, sorted)) / float64(len(sorted))
	return cs
}

func isZero(v float64) bool { return v == 0 }
