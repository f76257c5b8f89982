package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/eventgraph-go/internal/cache"
	"github.com/jengzang/eventgraph-go/internal/database"
	"github.com/jengzang/eventgraph-go/internal/graph"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/partition"
	"github.com/jengzang/eventgraph-go/internal/repository"
	"github.com/jengzang/eventgraph-go/internal/temporal"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)

func crash(lon, lat float64, day int) models.PointEvent {
	return models.PointEvent{Lon: lon, Lat: lat, Time: day0.AddDate(0, 0, day)}
}

func crashes() []models.PointEvent {
	return []models.PointEvent{
		crash(0.5, 0.5, 0), crash(0.2, 0.3, 1), crash(0.7, 0.1, 3),
		crash(1.5, 0.5, 0), crash(1.2, 0.4, 0), crash(1.8, 0.9, 2),
		crash(1.5, 1.5, 1), crash(1.9, 1.2, 2), crash(1.3, 1.7, 3),
	}
}

func newTestService(t *testing.T) *DatasetService {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "svc.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tmp := temporal.DefaultOptions()
	tmp.HistoryWindow = 2
	tmp.Horizon = 1
	return NewDatasetService(repository.NewRunRepository(db), cache.NewMemoryCache(), Defaults{
		Partition: partition.Config{Strategy: partition.StrategyGrid, CellSize: 1, TargetCRS: "+proj=longlat"},
		Graph:     graph.DefaultOptions(),
		Temporal:  tmp,
		MaxEvents: 100,
	}, nil)
}

func TestCreateDataset_StoresRun(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := svc.NewRequest()
	req.Events = crashes()
	run, err := svc.CreateDataset(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.NumNodes)
	assert.Equal(t, 6, run.NumEdges)
	assert.Equal(t, 2, run.NumWindows)

	got, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Metadata.NodeIDs, got.Metadata.NodeIDs)
	assert.Equal(t, 2, got.Dataset.NumWindows())
	assert.Contains(t, got.OptionsJSON, `"strategy":"grid"`)
}

func TestCreateDataset_FailedRunIsRecorded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := svc.NewRequest()
	req.Events = crashes()
	req.Temporal.HistoryWindow = 4
	_, err := svc.CreateDataset(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRange))

	runs, total, err := svc.ListRuns(ctx, models.RunFilter{Status: models.RunStatusFailed})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.NotEmpty(t, runs[0].ErrorMessage)
}

func TestCreateDataset_AdjacencyOverride(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// grid cells: 0 SW, 1 SE, 2 NW (empty), 3 NE
	req := svc.NewRequest()
	req.Events = crashes()
	req.Adjacency = [][]float64{
		{0, 2.5, 0, 0},
		{2.5, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	run, err := svc.CreateDataset(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, run.NumNodes)
	assert.Equal(t, 2, run.NumEdges)
	assert.Equal(t, []float64{2.5, 2.5}, run.Dataset.EdgeWeights)
	assert.Contains(t, run.OptionsJSON, `"adjacency"`)

	req.Adjacency = [][]float64{{0, 1}, {1, 0}}
	_, err = svc.CreateDataset(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeShape))

	req.Adjacency = [][]float64{{0, 1}, {1}}
	_, err = svc.CreateDataset(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeShape))
}

func TestCreateDataset_RejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDataset(ctx, svc.NewRequest())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))

	req := svc.NewRequest()
	req.Events = make([]models.PointEvent, 101)
	_, err = svc.CreateDataset(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))

	req = svc.NewRequest()
	req.Events = crashes()
	req.StaticFeatureKey = "missing"
	_, err = svc.CreateDataset(ctx, req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCreateDataset_JoinsCachedStaticFeatures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	table := &models.StaticFeatureTable{
		Key:   models.DefaultIDColumn,
		Names: []string{"population"},
		Rows:  map[int64][]float64{0: {10}, 1: {20}, 3: {30}},
	}
	require.NoError(t, svc.PutStaticFeatures(ctx, "urban", table))

	req := svc.NewRequest()
	req.Events = crashes()
	req.StaticFeatureKey = "urban"
	run, err := svc.CreateDataset(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, run.Metadata.StaticFeatureNames, "population")
}

func TestPutStaticFeatures_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.PutStaticFeatures(ctx, "", &models.StaticFeatureTable{Key: "k"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))

	err = svc.PutStaticFeatures(ctx, "x", &models.StaticFeatureTable{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))

	err = svc.PutStaticFeatures(ctx, "x", &models.StaticFeatureTable{
		Key: "partition_id", Names: []string{"a", "b"}, Rows: map[int64][]float64{1: {1}},
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeShape))

	require.NoError(t, svc.DeleteStaticFeatures(ctx, "x"))
	_, err = svc.GetStaticFeatures(ctx, "x")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestFlatView(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := svc.NewRequest()
	req.Events = crashes()
	run, err := svc.CreateDataset(ctx, req)
	require.NoError(t, err)

	flat, err := svc.FlatView(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, flat.WindowStarts)
	assert.Len(t, flat.Steps, 3)
	assert.Len(t, flat.Static, 3)

	summary, err := svc.Summary(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Nodes)
	assert.Equal(t, 3, summary.Steps)

	_, err = svc.FlatView(ctx, "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
