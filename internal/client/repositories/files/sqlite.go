package files

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.StagedRecord) error {
	query := `INSERT INTO staged_files (id, session_id, position, name, size, type, document_type, status, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, rec.ID, rec.SessionID, rec.Position, rec.Name, rec.Size, rec.Type,
		rec.DocumentType, string(rec.Status), rec.Content, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert staged file %s: %w", rec.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.StagedRecord, error) {
	query := `SELECT id, session_id, position, name, size, type, document_type, status, content, created_at
			FROM staged_files WHERE session_id = ? ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error selecting staged files: %w", err)
	}
	defer rows.Close()

	var result []*models.StagedRecord
	for rows.Next() {
		var (
			rec       models.StagedRecord
			status    string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Position, &rec.Name, &rec.Size, &rec.Type,
			&rec.DocumentType, &status, &rec.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning staged file: %w", err)
		}
		rec.Status = models.FileStatus(status)
		rec.CreatedAt = time.UnixMilli(createdAt)
		result = append(result, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged files: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM staged_files WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete staged file %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM staged_files`); err != nil {
		return fmt.Errorf("failed to clear staged files: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staged_files WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count staged files: %w", err)
	}
	return n, nil
}
