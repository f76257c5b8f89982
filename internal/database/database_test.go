package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM dataset_runs").Scan(&n))
	assert.Equal(t, 0, n)

	applied, err := NewMigrationManager(db, nil).GetAppliedMigrations()
	require.NoError(t, err)
	assert.True(t, applied[1])
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationManager(db, nil).RunMigrations())

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO dataset_runs (id, strategy, status) VALUES ('a', 'grid', 'completed')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM dataset_runs").Scan(&n))
	assert.Equal(t, 0, n)
}
