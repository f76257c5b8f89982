// Package ingest reads event and static feature tables from CSV and XLSX
// files into the pipeline's input types.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// table is a header row plus data rows, all as raw strings.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) column(name string) int {
	for i, h := range t.header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readCSV(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "failed to parse CSV")
	}
	return newTable(records)
}

// readXLSX reads one sheet of a workbook; an empty sheet name selects the
// first sheet.
func readXLSX(r io.Reader, sheet string) (*table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, "failed to open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.New(apperrors.CodeBadRequest, "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBadRequest, fmt.Sprintf("failed to read sheet %q", sheet))
	}
	return newTable(rows)
}

func newTable(records [][]string) (*table, error) {
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.CodeBadRequest, "table has no header row")
	}
	t := &table{header: records[0]}
	for _, r := range records[1:] {
		if isBlank(r) {
			continue
		}
		t.rows = append(t.rows, r)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// openTable picks the reader from the file extension.
func openTable(path, sheet string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(f, sheet)
	default:
		return readCSV(f)
	}
}
