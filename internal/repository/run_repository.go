package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// RunRepository handles database operations for dataset runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run, assigning a new ID when run.ID is empty.
func (r *RunRepository) Create(ctx context.Context, run *models.DatasetRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	var metaJSON, dsJSON sql.NullString
	if run.Metadata != nil {
		b, err := json.Marshal(run.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metaJSON = sql.NullString{String: string(b), Valid: true}
	}
	if run.Dataset != nil {
		b, err := json.Marshal(run.Dataset)
		if err != nil {
			return fmt.Errorf("failed to encode dataset: %w", err)
		}
		dsJSON = sql.NullString{String: string(b), Valid: true}
	}
	options := run.OptionsJSON
	if options == "" {
		options = "{}"
	}

	query := `INSERT INTO dataset_runs (
		id, strategy, status, num_events, unassigned_events,
		num_nodes, num_edges, num_windows, duration_ms, error_message,
		options_json, metadata_json, dataset_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Strategy, run.Status, run.NumEvents, run.UnassignedEvents,
		run.NumNodes, run.NumEdges, run.NumWindows, run.DurationMS, run.ErrorMessage,
		options, metaJSON, dsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return r.db.QueryRowContext(ctx, "SELECT created_at FROM dataset_runs WHERE id = ?", run.ID).Scan(&run.CreatedAt)
}

// GetByID retrieves a run including its metadata and dataset
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.DatasetRun, error) {
	query := `SELECT id, strategy, status, num_events, unassigned_events,
		num_nodes, num_edges, num_windows, duration_ms, error_message,
		options_json, metadata_json, dataset_json, created_at
		FROM dataset_runs WHERE id = ?`

	var run models.DatasetRun
	var metaJSON, dsJSON sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Strategy, &run.Status, &run.NumEvents, &run.UnassignedEvents,
		&run.NumNodes, &run.NumEdges, &run.NumWindows, &run.DurationMS, &run.ErrorMessage,
		&run.OptionsJSON, &metaJSON, &dsJSON, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if metaJSON.Valid {
		run.Metadata = &models.Metadata{}
		if err := json.Unmarshal([]byte(metaJSON.String), run.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if dsJSON.Valid {
		run.Dataset = &models.Dataset{}
		if err := json.Unmarshal([]byte(dsJSON.String), run.Dataset); err != nil {
			return nil, fmt.Errorf("failed to decode dataset: %w", err)
		}
	}
	return &run, nil
}

// List retrieves run summaries with filtering and pagination, newest first.
func (r *RunRepository) List(ctx context.Context, filter models.RunFilter) ([]models.DatasetRun, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Strategy != "" {
		conditions = append(conditions, "strategy = ?")
		args = append(args, filter.Strategy)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dataset_runs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	// Add pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	if filter.PageSize > 500 {
		filter.PageSize = 500
	}

	query := `SELECT id, strategy, status, num_events, unassigned_events,
		num_nodes, num_edges, num_windows, duration_ms, error_message, created_at
		FROM dataset_runs` + where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.DatasetRun{}
	for rows.Next() {
		var run models.DatasetRun
		err := rows.Scan(
			&run.ID, &run.Strategy, &run.Status, &run.NumEvents, &run.UnassignedEvents,
			&run.NumNodes, &run.NumEdges, &run.NumWindows, &run.DurationMS, &run.ErrorMessage, &run.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, total, rows.Err()
}

// Delete removes a run
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM dataset_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("run %s not found", id)
	}
	return nil
}
