package ingest

import (
	"io"
	"math"
	"strconv"

	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// ReadMatrixCSV parses a dense numeric matrix, one row per line. A first
// line that is not entirely numeric is taken as a header and skipped.
// Blank cells read as 0.
func ReadMatrixCSV(r io.Reader) ([][]float64, error) {
	t, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return parseMatrix(t)
}

// LoadMatrix reads a matrix file, choosing the format by extension.
func LoadMatrix(path, sheet string) ([][]float64, error) {
	t, err := openTable(path, sheet)
	if err != nil {
		return nil, err
	}
	return parseMatrix(t)
}

func parseMatrix(t *table) ([][]float64, error) {
	records := t.rows
	if _, err := numericRow(t.header); err == nil {
		records = append([][]string{t.header}, t.rows...)
	}
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.CodeBadRequest, "matrix has no rows")
	}

	out := make([][]float64, 0, len(records))
	for n, row := range records {
		vals, err := numericRow(row)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "matrix row "+strconv.Itoa(n+1))
		}
		out = append(out, vals)
	}
	return out, nil
}

func numericRow(row []string) ([]float64, error) {
	vals := make([]float64, len(row))
	for i := range row {
		c := cell(row, i)
		if c == "" {
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, apperrors.Newf(apperrors.CodeBadRequest, "non-finite value %q in column %d", c, i+1)
		}
		vals[i] = v
	}
	return vals, nil
}
