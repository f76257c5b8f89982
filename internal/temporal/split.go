package temporal

import (
	"math"

	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/tensor"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// Split frames a dataset as contiguous train, validation and test ranges of
// windows, preserving window order. The test range takes what remains after
// the train and validation shares. Results are always in the 4d layout.
func Split(ds *models.Dataset, trainRatio, valRatio float64) (train, val, test *models.Dataset, err error) {
	if trainRatio < 0 || valRatio < 0 || trainRatio+valRatio > 1 || math.IsNaN(trainRatio+valRatio) {
		return nil, nil, nil, apperrors.Config("invalid split ratios train=%g val=%g", trainRatio, valRatio)
	}
	if ds.Flat != nil {
		ds, err = tensor.Convert3DTo4D(ds.Flat)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	n := len(ds.Windows)
	nTrain := int(math.Floor(trainRatio * float64(n)))
	nVal := int(math.Floor(valRatio * float64(n)))

	part := func(from, to int) *models.Dataset {
		return &models.Dataset{
			Layout:      models.Layout4D,
			EdgeIndex:   ds.EdgeIndex,
			EdgeWeights: ds.EdgeWeights,
			Windows:     ds.Windows[from:to:to],
		}
	}
	return part(0, nTrain), part(nTrain, nTrain+nVal), part(nTrain+nVal, n), nil
}
