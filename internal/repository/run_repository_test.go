package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/eventgraph-go/internal/database"
	"github.com/jengzang/eventgraph-go/internal/models"
	apperrors "github.com/jengzang/eventgraph-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *RunRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "runs.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(db)
}

func sampleRun(strategy, status string) *models.DatasetRun {
	return &models.DatasetRun{
		Strategy:   strategy,
		Status:     status,
		NumEvents:  10,
		NumNodes:   3,
		NumEdges:   6,
		NumWindows: 2,
		Metadata: &models.Metadata{
			BinWidth:      24 * time.Hour,
			NumBins:       4,
			HistoryWindow: 2,
			Horizon:       1,
			NodeIDs:       []int64{0, 1, 3},
			NumWindows:    2,
		},
		Dataset: &models.Dataset{
			Layout:      models.Layout4D,
			EdgeIndex:   [2][]int{{0, 1}, {1, 0}},
			EdgeWeights: []float64{1, 1},
			Windows: []models.Window{{
				Index:    0,
				Start:    0,
				Features: [][][]float64{{{1, 0}}, {{0, 2}}},
				Target:   []float64{1, 0},
			}},
		},
	}
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := sampleRun("grid", models.RunStatusCompleted)
	require.NoError(t, repo.Create(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "grid", got.Strategy)
	assert.Equal(t, 3, got.NumNodes)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, []int64{0, 1, 3}, got.Metadata.NodeIDs)
	assert.Equal(t, 24*time.Hour, got.Metadata.BinWidth)
	require.NotNil(t, got.Dataset)
	assert.Equal(t, run.Dataset.Windows, got.Dataset.Windows)
	assert.Equal(t, "{}", got.OptionsJSON)
}

func TestRunRepository_FailedRunHasNoPayload(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := &models.DatasetRun{Strategy: "polygon", Status: models.RunStatusFailed, ErrorMessage: "overlap"}
	require.NoError(t, repo.Create(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Metadata)
	assert.Nil(t, got.Dataset)
	assert.Equal(t, "overlap", got.ErrorMessage)
}

func TestRunRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), "nope")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}

func TestRunRepository_ListFiltersAndPages(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var ids []string
	for _, s := range []string{"grid", "grid", "geohash"} {
		run := sampleRun(s, models.RunStatusCompleted)
		require.NoError(t, repo.Create(ctx, run))
		ids = append(ids, run.ID)
	}
	require.NoError(t, repo.Create(ctx, sampleRun("grid", models.RunStatusFailed)))

	runs, total, err := repo.List(ctx, models.RunFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, runs, 4)
	assert.Nil(t, runs[0].Dataset)

	runs, total, err = repo.List(ctx, models.RunFilter{Strategy: "grid", Status: models.RunStatusCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.ElementsMatch(t, ids[:2], []string{runs[0].ID, runs[1].ID})

	runs, total, err = repo.List(ctx, models.RunFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, runs, 1)
	assert.Equal(t, ids[0], runs[0].ID)
}

func TestRunRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := sampleRun("grid", models.RunStatusCompleted)
	require.NoError(t, repo.Create(ctx, run))
	require.NoError(t, repo.Delete(ctx, run.ID))

	err := repo.Delete(ctx, run.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
