package temporal

import (
	"math"
	"time"

	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// Normalization fit scopes
const (
	FitScopeSeries = "series"
	FitScopeTrain  = "train"
)

// FeatureEventCount is the first dynamic channel.
const FeatureEventCount = "event_count"

// Options controls binning, windowing and normalization.
type Options struct {
	BinWidth time.Duration `mapstructure:"bin_width" json:"bin_width"`
	// TruncateOrigin aligns the origin to a multiple of BinWidth.
	TruncateOrigin    bool     `mapstructure:"truncate_origin" json:"truncate_origin,omitempty"`
	HistoryWindow     int      `mapstructure:"history_window" json:"history_window"`
	Horizon           int      `mapstructure:"horizon" json:"horizon"`
	Task              string   `mapstructure:"task" json:"task"`
	Normalize         bool     `mapstructure:"normalize" json:"normalize"`
	ScalerType        string   `mapstructure:"scaler_type" json:"scaler_type,omitempty"`
	OutputFormat      string   `mapstructure:"output_format" json:"output_format,omitempty"`
	DownsampleFactor  int      `mapstructure:"downsample_factor" json:"downsample_factor,omitempty"`
	DynamicAttributes []string `mapstructure:"dynamic_attributes" json:"dynamic_attributes,omitempty"`
	TargetFeature     string   `mapstructure:"target_feature" json:"target_feature,omitempty"`
	// FitScope selects the bins the scaler is fitted on: the whole series,
	// or the leading TrainRatio share of it.
	FitScope   string  `mapstructure:"fit_scope" json:"fit_scope,omitempty"`
	TrainRatio float64 `mapstructure:"train_ratio" json:"train_ratio,omitempty"`
}

// DefaultOptions returns daily bins, a 3-step history and a one-step
// classification horizon with min-max scaling.
func DefaultOptions() Options {
	return Options{
		BinWidth:         24 * time.Hour,
		HistoryWindow:    3,
		Horizon:          1,
		Task:             models.TaskClassification,
		Normalize:        true,
		ScalerType:       models.ScalerMinMax,
		OutputFormat:     models.Layout4D,
		DownsampleFactor: 1,
		TargetFeature:    FeatureEventCount,
		FitScope:         FitScopeSeries,
	}
}

// DynamicFeatureNames returns the dynamic channels in tensor order.
func (o *Options) DynamicFeatureNames() []string {
	names := []string{FeatureEventCount}
	for _, a := range o.DynamicAttributes {
		names = append(names, "sum_"+a)
	}
	return names
}

func (o *Options) applyDefaults() {
	if o.ScalerType == "" {
		o.ScalerType = models.ScalerMinMax
	}
	if o.OutputFormat == "" {
		o.OutputFormat = models.Layout4D
	}
	if o.DownsampleFactor == 0 {
		o.DownsampleFactor = 1
	}
	if o.TargetFeature == "" {
		o.TargetFeature = FeatureEventCount
	}
	if o.FitScope == "" {
		o.FitScope = FitScopeSeries
	}
}

// validate rejects unrecognized or out-of-domain options. Nothing is
// coerced.
func (o *Options) validate() error {
	if o.BinWidth <= 0 {
		return apperrors.Config("bin width must be positive, got %s", o.BinWidth)
	}
	if o.HistoryWindow < 1 {
		return apperrors.Config("history window must be at least 1, got %d", o.HistoryWindow)
	}
	if o.Horizon < 1 {
		return apperrors.Config("horizon must be at least 1, got %d", o.Horizon)
	}
	switch o.Task {
	case models.TaskClassification, models.TaskRegression:
	default:
		return apperrors.Config("unknown task type %q", o.Task)
	}
	switch o.ScalerType {
	case models.ScalerMinMax, models.ScalerStandard:
	default:
		return apperrors.Config("unknown scaler type %q", o.ScalerType)
	}
	switch o.OutputFormat {
	case models.Layout4D, models.Layout3D:
	default:
		return apperrors.Config("unknown output format %q", o.OutputFormat)
	}
	if o.DownsampleFactor < 1 {
		return apperrors.Config("downsample factor must be at least 1, got %d", o.DownsampleFactor)
	}
	switch o.FitScope {
	case FitScopeSeries:
	case FitScopeTrain:
		if !(o.TrainRatio > 0 && o.TrainRatio < 1) || math.IsNaN(o.TrainRatio) {
			return apperrors.Config("train ratio must be in (0, 1), got %g", o.TrainRatio)
		}
	default:
		return apperrors.Config("unknown fit scope %q", o.FitScope)
	}
	if channelIndex(o.DynamicFeatureNames(), o.TargetFeature) < 0 {
		return apperrors.Config("target feature %q is not a dynamic feature", o.TargetFeature)
	}
	seen := make(map[string]bool)
	for _, a := range o.DynamicAttributes {
		if a == "" || seen[a] {
			return apperrors.Config("dynamic attributes must be unique and non-empty")
		}
		seen[a] = true
	}
	return nil
}

func channelIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	o.applyDefaults()
	return o.validate()
}
