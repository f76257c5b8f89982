package models

import "time"

// Run statuses
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// DatasetRun is one persisted pipeline execution. Metadata and Dataset are
// only populated when a single run is fetched.
type DatasetRun struct {
	ID               string    `json:"id"`
	Strategy         string    `json:"strategy"`
	Status           string    `json:"status"`
	NumEvents        int       `json:"num_events"`
	UnassignedEvents int       `json:"unassigned_events"`
	NumNodes         int       `json:"num_nodes"`
	NumEdges         int       `json:"num_edges"`
	NumWindows       int       `json:"num_windows"`
	DurationMS       int64     `json:"duration_ms"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	OptionsJSON      string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`

	Metadata *Metadata `json:"metadata,omitempty"`
	Dataset  *Dataset  `json:"dataset,omitempty"`
}

// RunFilter restricts run listings
type RunFilter struct {
	Status   string `form:"status"`
	Strategy string `form:"strategy"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
