package models

import "time"

// Dataset layouts
const (
	Layout4D = "4d"
	Layout3D = "3d"
)

// Task types
const (
	TaskClassification = "classification"
	TaskRegression     = "regression"
)

// Scaler types
const (
	ScalerMinMax   = "minmax"
	ScalerStandard = "standard"
)

// Window is one graph snapshot sequence: the history range used as model
// input and the target at the horizon offset.
type Window struct {
	Index int `json:"index"`
	// Start is the absolute bin index of the first history step.
	Start int `json:"start"`
	// Features is indexed [node][channel][history step]; static channels
	// come first, then dynamic channels.
	Features [][][]float64 `json:"features"`
	// Target is indexed [node].
	Target []float64 `json:"target"`
}

// Dataset is the stacked 4-dimensional layout: windows × nodes × channels ×
// history, sharing one static topology.
type Dataset struct {
	Layout      string    `json:"layout"`
	EdgeIndex   [2][]int  `json:"edge_index"`
	EdgeWeights []float64 `json:"edge_weights"`
	Windows     []Window  `json:"windows,omitempty"`
	// Flat is set instead of Windows when the 3d layout was requested.
	Flat *FlatDataset `json:"flat,omitempty"`
}

// NumWindows returns the window count for either layout.
func (d *Dataset) NumWindows() int {
	if d.Flat != nil {
		return len(d.Flat.WindowStarts)
	}
	return len(d.Windows)
}

// FlatStep is one absolute time step: dynamic features indexed
// [node][channel].
type FlatStep struct {
	Step     int         `json:"step"`
	Features [][]float64 `json:"features"`
}

// FlatDataset is the 3-dimensional per-snapshot layout: steps × nodes ×
// dynamic channels, indexed by absolute time step rather than by window.
// Static channels are stored once per node.
type FlatDataset struct {
	StaticFeatureCount int         `json:"static_feature_count"`
	HistoryWindow      int         `json:"history_window"`
	Static             [][]float64 `json:"static"`
	Steps              []FlatStep  `json:"steps"`
	WindowStarts       []int       `json:"window_starts"`
	WindowIndex        []int       `json:"window_index"`
	Targets            [][]float64 `json:"targets"`
	EdgeIndex          [2][]int    `json:"edge_index"`
	EdgeWeights        []float64   `json:"edge_weights"`
}

// NormalizationState holds per-channel parameters of a fitted scaler:
// scaled = (raw - Offset) / Scale. FitStart and FitEnd give the half-open
// bin range the parameters were fitted on.
type NormalizationState struct {
	Type     string    `json:"type"`
	Offset   []float64 `json:"offset"`
	Scale    []float64 `json:"scale"`
	FitStart int       `json:"fit_start"`
	FitEnd   int       `json:"fit_end"`
}

// Metadata records everything needed to reproduce the preprocessing.
type Metadata struct {
	BinWidth            time.Duration       `json:"bin_width"`
	Origin              time.Time           `json:"origin"`
	NumBins             int                 `json:"num_bins"`
	HistoryWindow       int                 `json:"history_window"`
	Horizon             int                 `json:"horizon"`
	Task                string              `json:"task"`
	Layout              string              `json:"layout"`
	DownsampleFactor    int                 `json:"downsample_factor"`
	NodeIDs             []int64             `json:"node_ids"`
	StaticFeatureNames  []string            `json:"static_feature_names"`
	DynamicFeatureNames []string            `json:"dynamic_feature_names"`
	TargetFeature       string              `json:"target_feature"`
	Normalization       *NormalizationState `json:"normalization,omitempty"`
	NumWindows          int                 `json:"num_windows"`
	// TrainWindows is the count of leading windows inside the normalization
	// fit range when the scaler was fitted on the training prefix.
	TrainWindows     int `json:"train_windows,omitempty"`
	UnassignedEvents int `json:"unassigned_events"`
}

// FeatureOrder returns static then dynamic channel names, matching the
// channel axis of every window.
func (m *Metadata) FeatureOrder() []string {
	out := make([]string, 0, len(m.StaticFeatureNames)+len(m.DynamicFeatureNames))
	out = append(out, m.StaticFeatureNames...)
	return append(out, m.DynamicFeatureNames...)
}
