package temporal

import (
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/metrics"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/tensor"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// Assembler bins graph events in time and frames them as sliding windows.
type Assembler struct {
	logger logging.Logger
}

// NewAssembler creates a new temporal assembler
func NewAssembler(logger logging.Logger) *Assembler {
	return &Assembler{logger: logging.OrNop(logger).Named("TemporalAssembler")}
}

// Windows validates the input, bins events, fits the scaler once and returns
// a lazy iterator over the windows together with the metadata describing
// them.
func (a *Assembler) Windows(in Input, opts Options) (*WindowIterator, *models.Metadata, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	s, err := binEvents(&in, &opts)
	if err != nil {
		return nil, nil, err
	}
	if opts.HistoryWindow+opts.Horizon > s.numBins {
		return nil, nil, apperrors.Range("history window %d plus horizon %d exceeds the %d observed time bins",
			opts.HistoryWindow, opts.Horizon, s.numBins)
	}

	fitEnd := s.numBins
	prefix := opts.FitScope == FitScopeTrain
	if prefix {
		fitEnd = int(opts.TrainRatio * float64(s.numBins))
		if fitEnd < 1 {
			return nil, nil, apperrors.Range("train ratio %g leaves no bins of %d to fit on", opts.TrainRatio, s.numBins)
		}
	}

	dynamic := s.raw
	var state *models.NormalizationState
	if opts.Normalize {
		sc, err := NewScaler(opts.ScalerType)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.CodeConfig, "invalid scaler")
		}
		if err := sc.Fit(s.columns(0, fitEnd), 0, fitEnd); err != nil {
			return nil, nil, err
		}
		dynamic = s.scaled(sc)
		state = sc.State()
	}

	starts, inFit := windowStarts(s.numBins, opts.HistoryWindow, opts.Horizon, opts.DownsampleFactor, fitEnd, prefix)

	var static [][]float64
	staticNames := []string{}
	if in.staticWidth() > 0 {
		static = in.StaticFeatures
		staticNames = append(staticNames, in.StaticFeatureNames...)
	}

	it := &WindowIterator{
		static:   static,
		dynamic:  dynamic,
		raw:      s.raw,
		history:  opts.HistoryWindow,
		horizon:  opts.Horizon,
		target:   channelIndex(s.channels, opts.TargetFeature),
		classify: opts.Task == models.TaskClassification,
		starts:   starts,
	}

	meta := &models.Metadata{
		BinWidth:            opts.BinWidth,
		Origin:              s.origin,
		NumBins:             s.numBins,
		HistoryWindow:       opts.HistoryWindow,
		Horizon:             opts.Horizon,
		Task:                opts.Task,
		Layout:              opts.OutputFormat,
		DownsampleFactor:    opts.DownsampleFactor,
		NodeIDs:             in.NodeIDs,
		StaticFeatureNames:  staticNames,
		DynamicFeatureNames: s.channels,
		TargetFeature:       opts.TargetFeature,
		Normalization:       state,
		NumWindows:          len(starts),
		UnassignedEvents:    s.unassigned,
	}
	if prefix {
		meta.TrainWindows = inFit
	}
	return it, meta, nil
}

// CreateTemporalDataset materializes every window in the requested layout.
func (a *Assembler) CreateTemporalDataset(in Input, opts Options) (*models.Dataset, *models.Metadata, error) {
	it, meta, err := a.Windows(in, opts)
	if err != nil {
		return nil, nil, err
	}

	ds := &models.Dataset{
		Layout:      models.Layout4D,
		EdgeIndex:   in.EdgeIndex,
		EdgeWeights: in.EdgeWeights,
		Windows:     make([]models.Window, 0, it.Len()),
	}
	for w, ok := it.Next(); ok; w, ok = it.Next() {
		ds.Windows = append(ds.Windows, *w)
	}

	if meta.Layout == models.Layout3D {
		flat, err := tensor.Convert4DTo3D(ds, len(meta.StaticFeatureNames))
		if err != nil {
			return nil, nil, err
		}
		ds = &models.Dataset{
			Layout:      models.Layout3D,
			EdgeIndex:   in.EdgeIndex,
			EdgeWeights: in.EdgeWeights,
			Flat:        flat,
		}
	}

	metrics.WindowsEmitted.WithLabelValues(meta.Task).Add(float64(meta.NumWindows))
	a.logger.Info("temporal dataset assembled",
		logging.Int("bins", meta.NumBins),
		logging.Int("nodes", len(meta.NodeIDs)),
		logging.Int("windows", meta.NumWindows),
		logging.String("task", meta.Task),
		logging.String("layout", meta.Layout),
		logging.Int("unassigned_events", meta.UnassignedEvents),
	)
	return ds, meta, nil
}
