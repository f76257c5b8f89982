package ingest

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// ReadStaticFeaturesCSV parses a static feature table. keyColumn holds the
// integer join key; every other column is a feature. An empty keyColumn
// selects the first column.
func ReadStaticFeaturesCSV(r io.Reader, keyColumn string) (*models.StaticFeatureTable, error) {
	t, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return parseStatic(t, keyColumn)
}

// LoadStaticFeatures reads a static feature file, choosing the format by
// extension.
func LoadStaticFeatures(path, keyColumn, sheet string) (*models.StaticFeatureTable, error) {
	t, err := openTable(path, sheet)
	if err != nil {
		return nil, err
	}
	return parseStatic(t, keyColumn)
}

// parseStatic reads features row by row. Blank or non-numeric feature
// cells read as 0, the same fill the graph builder applies to missing rows.
func parseStatic(t *table, keyColumn string) (*models.StaticFeatureTable, error) {
	keyIdx := 0
	if keyColumn != "" {
		keyIdx = t.column(keyColumn)
		if keyIdx < 0 {
			return nil, apperrors.Newf(apperrors.CodeBadRequest, "missing key column %q", keyColumn)
		}
	}
	if len(t.header) == 0 {
		return nil, apperrors.New(apperrors.CodeBadRequest, "static feature table has no columns")
	}

	out := &models.StaticFeatureTable{
		Key:  strings.TrimSpace(t.header[keyIdx]),
		Rows: make(map[int64][]float64, len(t.rows)),
	}
	var featIdx []int
	for i, h := range t.header {
		if i == keyIdx {
			continue
		}
		featIdx = append(featIdx, i)
		out.Names = append(out.Names, strings.TrimSpace(h))
	}

	for n, row := range t.rows {
		key, err := strconv.ParseInt(cell(row, keyIdx), 10, 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.CodeBadRequest, "row %d: invalid key %q", n+2, cell(row, keyIdx))
		}
		if _, dup := out.Rows[key]; dup {
			return nil, apperrors.Newf(apperrors.CodeBadRequest, "row %d: duplicate key %d", n+2, key)
		}
		vals := make([]float64, len(featIdx))
		for j, i := range featIdx {
			if v, err := strconv.ParseFloat(cell(row, i), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals[j] = v
			}
		}
		out.Rows[key] = vals
	}
	return out, nil
}
