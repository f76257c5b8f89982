package temporal

import (
	"errors"
	"fmt"

	"github.com/jengzang/eventgraph-go/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrScalerFitted is returned when Fit is called on a fitted scaler.
var ErrScalerFitted = errors.New("scaler already fitted")

// Scaler is a per-channel normalization transform. It is fitted once and
// read many times.
type Scaler struct {
	kind  string
	state *models.NormalizationState
}

// NewScaler creates an unfitted scaler of the given type.
func NewScaler(kind string) (*Scaler, error) {
	switch kind {
	case models.ScalerMinMax, models.ScalerStandard:
	default:
		return nil, fmt.Errorf("unknown scaler type %q", kind)
	}
	return &Scaler{kind: kind}, nil
}

// ScalerFromState rebuilds a fitted scaler from stored metadata, e.g. to
// invert predictions.
func ScalerFromState(state *models.NormalizationState) (*Scaler, error) {
	if state == nil {
		return nil, errors.New("normalization state is nil")
	}
	if len(state.Offset) != len(state.Scale) {
		return nil, fmt.Errorf("normalization state has %d offsets and %d scales", len(state.Offset), len(state.Scale))
	}
	s, err := NewScaler(state.Type)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

// Fit computes per-channel parameters from columns[channel] = observed
// values. Constant channels get scale 1.
func (s *Scaler) Fit(columns [][]float64, fitStart, fitEnd int) error {
	if s.state != nil {
		return ErrScalerFitted
	}
	state := &models.NormalizationState{
		Type:     s.kind,
		Offset:   make([]float64, len(columns)),
		Scale:    make([]float64, len(columns)),
		FitStart: fitStart,
		FitEnd:   fitEnd,
	}
	for c, values := range columns {
		offset, scale := 0.0, 1.0
		if len(values) > 0 {
			switch s.kind {
			case models.ScalerMinMax:
				lo, hi := floats.Min(values), floats.Max(values)
				offset, scale = lo, hi-lo
			case models.ScalerStandard:
				offset, scale = stat.PopMeanStdDev(values, nil)
			}
		}
		if scale == 0 {
			scale = 1
		}
		state.Offset[c], state.Scale[c] = offset, scale
	}
	s.state = state
	return nil
}

// Fitted reports whether parameters are available.
func (s *Scaler) Fitted() bool {
	return s.state != nil
}

// State returns the fitted parameters, or nil.
func (s *Scaler) State() *models.NormalizationState {
	return s.state
}

// Transform scales a raw value of the given channel.
func (s *Scaler) Transform(channel int, v float64) float64 {
	return (v - s.state.Offset[channel]) / s.state.Scale[channel]
}

// Inverse recovers the raw value of a scaled one.
func (s *Scaler) Inverse(channel int, v float64) float64 {
	return v*s.state.Scale[channel] + s.state.Offset[channel]
}
