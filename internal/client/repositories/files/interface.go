package files

import (
	"context"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
)

type Repository interface {
	Insert(ctx context.Context, rec *models.StagedRecord) error

	// ListBySession returns the session's records ordered by position.
	ListBySession(ctx context.Context, sessionID string) ([]*models.StagedRecord, error)

	// DeleteByID removes one record. It reports whether a row existed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	DeleteAll(ctx context.Context) error

	CountBySession(ctx context.Context, sessionID string) (int, error)
}
