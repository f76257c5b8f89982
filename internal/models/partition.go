package models

import (
	"sort"

	"github.com/ctessum/geom"
)

// Partition is one region of a decomposition. Geometry is expressed in the
// owning table's CRS.
type Partition struct {
	ID       int64        `json:"id"`
	Label    string       `json:"label,omitempty"` // e.g. geohash or admin code
	Geometry geom.Polygon `json:"geometry"`
	Centroid geom.Point   `json:"centroid"`
}

// Bounds returns the partition's bounding box.
func (p *Partition) Bounds() *geom.Bounds {
	return p.Geometry.Bounds()
}

// PartitionTable holds one partitioning, sorted by ascending ID.
type PartitionTable struct {
	// CRS is the proj4 definition the geometries are expressed in.
	CRS      string `json:"crs"`
	IDColumn string `json:"id_column"`
	// Geographic is true when CRS is a lon/lat system; distances are then
	// computed on the sphere.
	Geographic bool        `json:"geographic"`
	Partitions []Partition `json:"partitions"`
	// Keys holds alternate join-key columns, one value per partition in
	// Partitions order. The ID column is always joinable.
	Keys map[string][]int64 `json:"keys,omitempty"`
}

// DefaultIDColumn names the partition identifier column when none is given.
const DefaultIDColumn = "partition_id"

// NewPartitionTable sorts partitions by ID and fills in centroids that are
// unset.
func NewPartitionTable(crs string, geographic bool, partitions []Partition) *PartitionTable {
	sort.Slice(partitions, func(i, j int) bool { return partitions[i].ID < partitions[j].ID })
	for i := range partitions {
		p := &partitions[i]
		if p.Centroid == (geom.Point{}) && len(p.Geometry) > 0 {
			p.Centroid = p.Geometry.Centroid()
		}
	}
	return &PartitionTable{
		CRS:        crs,
		IDColumn:   DefaultIDColumn,
		Geographic: geographic,
		Partitions: partitions,
		Keys:       map[string][]int64{},
	}
}

// Len returns the partition count.
func (t *PartitionTable) Len() int {
	return len(t.Partitions)
}

// IndexByID maps partition ids to their position in Partitions.
func (t *PartitionTable) IndexByID() map[int64]int {
	idx := make(map[int64]int, len(t.Partitions))
	for i, p := range t.Partitions {
		idx[p.ID] = i
	}
	return idx
}

// KeyColumn returns the join-key values for the named column, or false if
// the table has no such column.
func (t *PartitionTable) KeyColumn(name string) ([]int64, bool) {
	if name == "" || name == t.IDColumn {
		ids := make([]int64, len(t.Partitions))
		for i, p := range t.Partitions {
			ids[i] = p.ID
		}
		return ids, true
	}
	keys, ok := t.Keys[name]
	return keys, ok
}

// StaticFeatureTable holds externally supplied per-partition features keyed
// by a join column of the partition table (e.g. urban features per cell).
type StaticFeatureTable struct {
	Key   string              `json:"key"`
	Names []string            `json:"names"`
	Rows  map[int64][]float64 `json:"rows"`
}
