package ingest

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// EventColumns names the columns of an event table. Matching is case
// insensitive.
type EventColumns struct {
	ID   string `mapstructure:"id" json:"id"`
	Lat  string `mapstructure:"lat" json:"lat"`
	Lon  string `mapstructure:"lon" json:"lon"`
	Time string `mapstructure:"time" json:"time"`
	// TimeLayout parses the time column; numeric values are always read as
	// unix seconds.
	TimeLayout string `mapstructure:"time_layout" json:"time_layout"`
	// Attributes lists numeric columns to carry on each event. When empty,
	// every other column is carried and non-numeric cells are skipped.
	Attributes []string `mapstructure:"attributes" json:"attributes"`
	Sheet      string   `mapstructure:"sheet" json:"sheet"`
}

// DefaultEventColumns returns the conventional column names
func DefaultEventColumns() EventColumns {
	return EventColumns{
		ID:         "id",
		Lat:        "lat",
		Lon:        "lon",
		Time:       "time",
		TimeLayout: time.RFC3339,
	}
}

func (c *EventColumns) applyDefaults() {
	d := DefaultEventColumns()
	if c.ID == "" {
		c.ID = d.ID
	}
	if c.Lat == "" {
		c.Lat = d.Lat
	}
	if c.Lon == "" {
		c.Lon = d.Lon
	}
	if c.Time == "" {
		c.Time = d.Time
	}
	if c.TimeLayout == "" {
		c.TimeLayout = d.TimeLayout
	}
}

// ReadEventsCSV parses events from CSV.
func ReadEventsCSV(r io.Reader, cols EventColumns) ([]models.PointEvent, error) {
	t, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return parseEvents(t, cols)
}

// ReadEventsXLSX parses events from one sheet of a workbook.
func ReadEventsXLSX(r io.Reader, cols EventColumns) ([]models.PointEvent, error) {
	t, err := readXLSX(r, cols.Sheet)
	if err != nil {
		return nil, err
	}
	return parseEvents(t, cols)
}

// LoadEvents reads an event file, choosing the format by extension.
func LoadEvents(path string, cols EventColumns) ([]models.PointEvent, error) {
	t, err := openTable(path, cols.Sheet)
	if err != nil {
		return nil, err
	}
	return parseEvents(t, cols)
}

// parseEvents converts rows to events. Unparseable coordinates become NaN
// so the partitioner reports them as unassigned; an unparseable time is an
// error.
func parseEvents(t *table, cols EventColumns) ([]models.PointEvent, error) {
	cols.applyDefaults()

	latIdx, lonIdx, timeIdx := t.column(cols.Lat), t.column(cols.Lon), t.column(cols.Time)
	required := []struct {
		name string
		idx  int
	}{{cols.Lat, latIdx}, {cols.Lon, lonIdx}, {cols.Time, timeIdx}}
	for _, c := range required {
		if c.idx < 0 {
			return nil, apperrors.Newf(apperrors.CodeBadRequest, "missing column %q", c.name)
		}
	}
	idIdx := t.column(cols.ID)

	type attrCol struct {
		name string
		idx  int
	}
	var attrs []attrCol
	if len(cols.Attributes) > 0 {
		for _, a := range cols.Attributes {
			idx := t.column(a)
			if idx < 0 {
				return nil, apperrors.Newf(apperrors.CodeBadRequest, "missing attribute column %q", a)
			}
			attrs = append(attrs, attrCol{a, idx})
		}
	} else {
		for i, h := range t.header {
			if i == latIdx || i == lonIdx || i == timeIdx || i == idIdx {
				continue
			}
			attrs = append(attrs, attrCol{strings.TrimSpace(h), i})
		}
	}

	events := make([]models.PointEvent, 0, len(t.rows))
	for n, row := range t.rows {
		ts, err := parseTime(cell(row, timeIdx), cols.TimeLayout)
		if err != nil {
			return nil, apperrors.Newf(apperrors.CodeBadRequest, "row %d: invalid time %q", n+2, cell(row, timeIdx))
		}
		e := models.PointEvent{
			ID:   cell(row, idIdx),
			Lat:  parseFloat(cell(row, latIdx)),
			Lon:  parseFloat(cell(row, lonIdx)),
			Time: ts,
		}
		for _, a := range attrs {
			v, err := strconv.ParseFloat(cell(row, a.idx), 64)
			if err != nil {
				continue
			}
			if e.Attributes == nil {
				e.Attributes = make(map[string]float64, len(attrs))
			}
			e.Attributes[a.name] = v
		}
		events = append(events, e)
	}
	return events, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseTime(s, layout string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Parse(layout, s)
}
