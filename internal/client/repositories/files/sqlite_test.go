package files

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE staged_files (
  id            TEXT PRIMARY KEY,
  session_id    TEXT NOT NULL,
  position      INTEGER NOT NULL,
  name          TEXT NOT NULL,
  size          INTEGER NOT NULL,
  type          TEXT NOT NULL,
  document_type TEXT NOT NULL DEFAULT '',
  status        TEXT NOT NULL,
  content       TEXT NOT NULL,
  created_at    INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func rec(id, session string, pos int) *models.StagedRecord {
	return &models.StagedRecord{
		ID:           id,
		SessionID:    session,
		Position:     pos,
		Name:         id + ".pdf",
		Size:         3,
		Type:         "application/pdf",
		DocumentType: "net-worth-certificate",
		Status:       models.FileStatusStaged,
		Content:      "data:application/pdf;base64,AAEC",
		CreatedAt:    time.UnixMilli(1718000000000),
	}
}

func TestInsertAndListBySession_OrderedByPosition(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, rec("b", "s1", 1)))
	require.NoError(t, r.Insert(ctx, rec("a", "s1", 0)))
	require.NoError(t, r.Insert(ctx, rec("z", "s2", 0)))

	got, err := r.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, *rec("a", "s1", 0), *got[0])

	none, err := r.ListBySession(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsert_DuplicateIDFails(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, rec("a", "s1", 0)))
	err := r.Insert(ctx, rec("a", "s1", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert staged file a")
}

func TestDeleteByID_ReportsExistence(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, rec("a", "s1", 0)))

	ok, err := r.DeleteByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.DeleteByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteAllAndCount(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, rec("a", "s1", 0)))
	require.NoError(t, r.Insert(ctx, rec("b", "s1", 1)))

	n, err := r.CountBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, r.DeleteAll(ctx))

	n, err = r.CountBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRepository_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.ListBySession(ctx, "s1")
	require.ErrorContains(t, err, "error selecting staged files")

	_, err = r.DeleteByID(ctx, "a")
	require.ErrorContains(t, err, "failed to delete staged file a")

	require.ErrorContains(t, r.DeleteAll(ctx), "failed to clear staged files")

	_, err = r.CountBySession(ctx, "s1")
	require.ErrorContains(t, err, "failed to count staged files")
}
