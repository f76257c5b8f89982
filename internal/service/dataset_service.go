package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jengzang/eventgraph-go/internal/cache"
	"github.com/jengzang/eventgraph-go/internal/graph"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/partition"
	"github.com/jengzang/eventgraph-go/internal/pipeline"
	"github.com/jengzang/eventgraph-go/internal/stats"
	"github.com/jengzang/eventgraph-go/internal/temporal"
	"github.com/jengzang/eventgraph-go/internal/tensor"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
)

// RunStore persists dataset runs.
type RunStore interface {
	Create(ctx context.Context, run *models.DatasetRun) error
	GetByID(ctx context.Context, id string) (*models.DatasetRun, error)
	List(ctx context.Context, filter models.RunFilter) ([]models.DatasetRun, int64, error)
	Delete(ctx context.Context, id string) error
}

// Defaults are the per-section options a request starts from.
type Defaults struct {
	Partition partition.Config
	Graph     graph.Options
	Temporal  temporal.Options
	// MaxEvents caps one request; 0 means unlimited.
	MaxEvents int
}

// CreateDatasetRequest describes one dataset build. Sections left out of
// the JSON body keep their configured defaults.
type CreateDatasetRequest struct {
	Events    []models.PointEvent `json:"events"`
	Partition partition.Config    `json:"partition"`
	Graph     graph.Options       `json:"graph"`
	Temporal  temporal.Options    `json:"temporal"`
	// StaticFeatureKey names a cached static feature table to join.
	StaticFeatureKey string `json:"static_feature_key,omitempty"`
	// Adjacency, when set, replaces inferred adjacency. It is indexed by
	// partition position before empty partitions are dropped.
	Adjacency [][]float64 `json:"adjacency,omitempty"`
}

// DatasetService runs the pipeline and manages stored runs
type DatasetService struct {
	pipeline *pipeline.Pipeline
	runs     RunStore
	features cache.FeatureCache
	defaults Defaults
	logger   logging.Logger
}

// NewDatasetService creates a new dataset service
func NewDatasetService(runs RunStore, features cache.FeatureCache, defaults Defaults, logger logging.Logger) *DatasetService {
	logger = logging.OrNop(logger)
	return &DatasetService{
		pipeline: pipeline.New(logger),
		runs:     runs,
		features: features,
		defaults: defaults,
		logger:   logger.Named("DatasetService"),
	}
}

// NewRequest returns a request pre-filled with the configured defaults.
func (s *DatasetService) NewRequest() CreateDatasetRequest {
	return CreateDatasetRequest{
		Partition: s.defaults.Partition,
		Graph:     s.defaults.Graph,
		Temporal:  s.defaults.Temporal,
	}
}

// CreateDataset builds a dataset and stores the run. Pipeline failures are
// stored as failed runs and returned unchanged.
func (s *DatasetService) CreateDataset(ctx context.Context, req CreateDatasetRequest) (*models.DatasetRun, error) {
	if len(req.Events) == 0 {
		return nil, apperrors.New(apperrors.CodeBadRequest, "no events supplied")
	}
	if s.defaults.MaxEvents > 0 && len(req.Events) > s.defaults.MaxEvents {
		return nil, apperrors.Newf(apperrors.CodeBadRequest, "too many events: %d > %d", len(req.Events), s.defaults.MaxEvents)
	}

	if req.StaticFeatureKey != "" {
		table, err := s.GetStaticFeatures(ctx, req.StaticFeatureKey)
		if err != nil {
			return nil, err
		}
		req.Graph.StaticFeatures = table
	}
	if len(req.Adjacency) > 0 {
		override, err := graph.OverrideFromRows(req.Adjacency)
		if err != nil {
			return nil, err
		}
		req.Graph.AdjacencyOverride = override
	}

	options, err := json.Marshal(struct {
		Partition        partition.Config `json:"partition"`
		Graph            graph.Options    `json:"graph"`
		Temporal         temporal.Options `json:"temporal"`
		StaticFeatureKey string           `json:"static_feature_key,omitempty"`
		Adjacency        [][]float64      `json:"adjacency,omitempty"`
	}{req.Partition, req.Graph, req.Temporal, req.StaticFeatureKey, req.Adjacency})
	if err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}

	start := time.Now()
	res, runErr := s.pipeline.Run(ctx, pipeline.Request{
		Events:    req.Events,
		Partition: req.Partition,
		Graph:     req.Graph,
		Temporal:  req.Temporal,
	})

	run := &models.DatasetRun{
		Strategy:    req.Partition.Strategy,
		NumEvents:   len(req.Events),
		DurationMS:  time.Since(start).Milliseconds(),
		OptionsJSON: string(options),
	}
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = runErr.Error()
		if err := s.runs.Create(ctx, run); err != nil {
			s.logger.Error("failed to record failed run", logging.Err(err))
		}
		return nil, runErr
	}

	run.Status = models.RunStatusCompleted
	run.UnassignedEvents = res.Metadata.UnassignedEvents
	run.NumNodes = res.Graph.NumNodes()
	run.NumEdges = res.Graph.NumEdges()
	run.NumWindows = res.Metadata.NumWindows
	run.Metadata = res.Metadata
	run.Dataset = res.Dataset
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}

	s.logger.Info("dataset created",
		logging.String("run_id", run.ID),
		logging.String("strategy", run.Strategy),
		logging.Int("nodes", run.NumNodes),
		logging.Int("windows", run.NumWindows),
	)
	return run, nil
}

// GetRun retrieves a run with its dataset
func (s *DatasetService) GetRun(ctx context.Context, id string) (*models.DatasetRun, error) {
	return s.runs.GetByID(ctx, id)
}

// ListRuns retrieves run summaries
func (s *DatasetService) ListRuns(ctx context.Context, filter models.RunFilter) ([]models.DatasetRun, int64, error) {
	return s.runs.List(ctx, filter)
}

// DeleteRun removes a run
func (s *DatasetService) DeleteRun(ctx context.Context, id string) error {
	return s.runs.Delete(ctx, id)
}

// FlatView returns a stored dataset in the 3d per-step layout.
func (s *DatasetService) FlatView(ctx context.Context, id string) (*models.FlatDataset, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Dataset == nil || run.Metadata == nil {
		return nil, apperrors.NotFound("run %s has no dataset", id)
	}
	if run.Dataset.Flat != nil {
		return run.Dataset.Flat, nil
	}
	return tensor.Convert4DTo3D(run.Dataset, len(run.Metadata.StaticFeatureNames))
}

// Summary describes a stored dataset.
func (s *DatasetService) Summary(ctx context.Context, id string) (*stats.Summary, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Dataset == nil || run.Metadata == nil {
		return nil, apperrors.NotFound("run %s has no dataset", id)
	}
	return stats.Summarize(run.Metadata, run.Dataset)
}

// PutStaticFeatures validates and caches a static feature table.
func (s *DatasetService) PutStaticFeatures(ctx context.Context, key string, table *models.StaticFeatureTable) error {
	if key == "" {
		return apperrors.New(apperrors.CodeBadRequest, "static feature key is required")
	}
	if table == nil || table.Key == "" {
		return apperrors.New(apperrors.CodeBadRequest, "static feature table needs a join key column")
	}
	for id, row := range table.Rows {
		if len(row) != len(table.Names) {
			return apperrors.Shape("static feature row %d has %d values, want %d", id, len(row), len(table.Names))
		}
	}
	if err := s.features.Set(ctx, key, table); err != nil {
		return fmt.Errorf("failed to cache static features: %w", err)
	}
	s.logger.Info("static features stored", logging.String("key", key), logging.Int("rows", len(table.Rows)))
	return nil
}

// GetStaticFeatures returns a cached table or a not-found error.
func (s *DatasetService) GetStaticFeatures(ctx context.Context, key string) (*models.StaticFeatureTable, error) {
	table, found, err := s.features.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read static features: %w", err)
	}
	if !found {
		return nil, apperrors.NotFound("static feature table %q not found", key)
	}
	return table, nil
}

// DeleteStaticFeatures evicts a cached table
func (s *DatasetService) DeleteStaticFeatures(ctx context.Context, key string) error {
	return s.features.Delete(ctx, key)
}
