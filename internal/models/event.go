package models

import (
	"math"
	"time"
)

// Unassigned is the partition id given to events that fall outside every
// partition or carry unusable coordinates.
const Unassigned int64 = -1

// PointEvent is a geo-tagged event record (e.g. a traffic crash)
type PointEvent struct {
	ID         string             `json:"id,omitempty"`
	Lat        float64            `json:"lat"`
	Lon        float64            `json:"lon"`
	Time       time.Time          `json:"time"`
	Attributes map[string]float64 `json:"attributes,omitempty"` // e.g. injuries, vehicles
}

// ValidCoordinates reports whether the event has finite, in-range lat/lon.
func (e PointEvent) ValidCoordinates() bool {
	if math.IsNaN(e.Lat) || math.IsNaN(e.Lon) || math.IsInf(e.Lat, 0) || math.IsInf(e.Lon, 0) {
		return false
	}
	return e.Lat >= -90 && e.Lat <= 90 && e.Lon >= -180 && e.Lon <= 180
}

// Attribute returns a numeric attribute, treating missing and NaN as zero.
func (e PointEvent) Attribute(name string) float64 {
	v, ok := e.Attributes[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// AugmentedEvent is an event annotated with its partition and final node id.
// NodeID is -1 when the event is unassigned or its partition was dropped.
type AugmentedEvent struct {
	PointEvent
	PartitionID int64 `json:"partition_id"`
	NodeID      int   `json:"node_id"`
}
