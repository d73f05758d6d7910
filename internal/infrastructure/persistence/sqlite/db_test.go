package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/reviewflow/pkg/database"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	raw, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "tx.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = raw.Exec(`CREATE TABLE marks (name TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return NewDB(raw.DB, zap.NewNop())
}

func countMarks(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM marks`).Scan(&n))
	return n
}

func TestWithTransaction_Commit(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		_, err := db.Executor(ctx).ExecContext(ctx, `INSERT INTO marks (name) VALUES ('a')`)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countMarks(t, db))
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := db.Executor(ctx).ExecContext(ctx, `INSERT INTO marks (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countMarks(t, db))
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := db.WithTransaction(context.Background(), func(outer context.Context) error {
		inner := db.WithTransaction(outer, func(ctx context.Context) error {
			assert.Same(t, extractTx(outer), extractTx(ctx))
			_, err := db.Executor(ctx).ExecContext(ctx, `INSERT INTO marks (name) VALUES ('a')`)
			return err
		})
		require.NoError(t, inner)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countMarks(t, db), "inner work rolls back with the outer transaction")
}

func TestExecutor_WithoutTransaction(t *testing.T) {
	db := openTestDB(t)

	_, isDB := db.Executor(context.Background()).(interface{ Begin() (*sql.Tx, error) })
	assert.True(t, isDB)
}
