package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/repositories/files"
	"github.com/dmitrijs2005/udinflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/udinflow/internal/dbx"
	"github.com/dmitrijs2005/udinflow/internal/filex"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/dmitrijs2005/udinflow/internal/observability/metrics"
	"github.com/google/uuid"
)

// StageService is the durable file stage.
//
// Contract:
//   - Save: replace everything staged with files under a new session, atomically.
//   - Load: files of the current session; corrupt records are skipped.
//   - RemoveOne: delete one file by id; unknown ids are a no-op.
//   - ClearAll: delete every file and the session pointer.
//   - HasStaged: answered from the pointer slot without reading content.
type StageService interface {
	Save(ctx context.Context, files []*models.StagedFile) error
	Load(ctx context.Context) ([]*models.StagedFile, error)
	RemoveOne(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	HasStaged(ctx context.Context) bool
	Session(ctx context.Context) (*models.Session, error)
}

type StageOption func(*stageService)

// WithStageClock overrides the clock used for session ids and timestamps.
func WithStageClock(now func() time.Time) StageOption {
	return func(s *stageService) { s.now = now }
}

func WithStageMetrics(m *metrics.UploadMetrics) StageOption {
	return func(s *stageService) { s.metrics = m }
}

type stageService struct {
	db      *sql.DB
	log     logging.Logger
	metrics *metrics.UploadMetrics
	now     func() time.Time

	// mu serializes every stage access; the CLI and the online watcher
	// run on different goroutines.
	mu sync.Mutex
}

func NewStageService(db *sql.DB, log logging.Logger, opts ...StageOption) StageService {
	if log == nil {
		log = logging.Nop()
	}
	s := &stageService{db: db, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save normalizes and encodes every file before touching the database, so a
// file that cannot be read leaves the previous stage in place. Files without
// an id get one; each file's Source is replaced by its canonical form.
func (s *stageService) Save(ctx context.Context, staged []*models.StagedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sessionID := strconv.FormatInt(now.UnixMilli(), 10)

	records := make([]*models.StagedRecord, 0, len(staged))
	for i, f := range staged {
		canonical, err := filex.Normalize(f.Source)
		if err != nil {
			return &NormalizationError{FileName: f.Name, Err: err}
		}
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.Name == "" {
			f.Name = canonical.Name
		}
		if f.Type == "" {
			f.Type = canonical.Type
		}
		if f.Status == "" {
			f.Status = models.FileStatusStaged
		}
		if f.AddedAt.IsZero() {
			f.AddedAt = now
		}
		f.Size = canonical.Size()
		f.Source = canonical

		records = append(records, &models.StagedRecord{
			ID:           f.ID,
			SessionID:    sessionID,
			Position:     i,
			Name:         f.Name,
			Size:         f.Size,
			Type:         f.Type,
			DocumentType: f.DocumentType,
			Status:       f.Status,
			Content:      filex.EncodeDataURL(canonical),
			CreatedAt:    f.AddedAt,
		})
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		filesRepo := files.NewSQLiteRepository(tx)
		metaRepo := metadata.NewSQLiteRepository(tx)

		if err := filesRepo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, rec := range records {
			if err := filesRepo.Insert(ctx, rec); err != nil {
				return err
			}
		}

		if err := metadata.SetString(ctx, metaRepo, metadata.KeySessionID, sessionID); err != nil {
			return err
		}
		if len(records) == 0 {
			return metaRepo.Delete(ctx, metadata.KeyFilesSaved)
		}
		return metadata.SetString(ctx, metaRepo, metadata.KeyFilesSaved, "true")
	})
	if err != nil {
		return &StagingError{Op: "save", Err: err}
	}

	s.setStaged(len(records))
	s.log.Debug(ctx, "stage saved", "session_id", sessionID, "files", len(records))
	return nil
}

func (s *stageService) Load(ctx context.Context) ([]*models.StagedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaRepo := metadata.NewSQLiteRepository(s.db)
	sessionID, err := metadata.GetString(ctx, metaRepo, metadata.KeySessionID)
	if err != nil {
		return nil, &StagingError{Op: "load", Err: err}
	}
	saved, err := metadata.GetString(ctx, metaRepo, metadata.KeyFilesSaved)
	if err != nil {
		return nil, &StagingError{Op: "load", Err: err}
	}
	if sessionID == "" || saved == "" {
		return nil, nil
	}

	records, err := files.NewSQLiteRepository(s.db).ListBySession(ctx, sessionID)
	if err != nil {
		return nil, &StagingError{Op: "load", Err: err}
	}

	result := make([]*models.StagedFile, 0, len(records))
	for _, rec := range records {
		mime, content, err := filex.DecodeDataURL(rec.Content)
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable staged file", "id", rec.ID, "name", rec.Name, "error", err)
			continue
		}
		typ := rec.Type
		if typ == "" {
			typ = mime
		}
		result = append(result, &models.StagedFile{
			ID:           rec.ID,
			Name:         rec.Name,
			Size:         rec.Size,
			Type:         typ,
			DocumentType: rec.DocumentType,
			Status:       rec.Status,
			AddedAt:      rec.CreatedAt,
			Source:       &filex.File{Name: rec.Name, Type: typ, Content: content},
		})
	}

	s.setStaged(len(result))
	return result, nil
}

func (s *stageService) RemoveOne(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := -1
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		filesRepo := files.NewSQLiteRepository(tx)
		metaRepo := metadata.NewSQLiteRepository(tx)

		if _, err := filesRepo.DeleteByID(ctx, id); err != nil {
			return err
		}

		sessionID, err := metadata.GetString(ctx, metaRepo, metadata.KeySessionID)
		if err != nil || sessionID == "" {
			return err
		}
		n, err := filesRepo.CountBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		remaining = n
		if n == 0 {
			return metaRepo.Delete(ctx, metadata.KeySessionID, metadata.KeyFilesSaved)
		}
		return nil
	})
	if err != nil {
		return &StagingError{Op: "remove", Err: err}
	}

	if remaining >= 0 {
		s.setStaged(remaining)
	}
	return nil
}

func (s *stageService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := files.NewSQLiteRepository(tx).DeleteAll(ctx); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).Delete(ctx, metadata.KeySessionID, metadata.KeyFilesSaved)
	})
	if err != nil {
		return &StagingError{Op: "clear", Err: err}
	}

	s.setStaged(0)
	return nil
}

// HasStaged reads only the pointer slot. Storage errors count as nothing staged.
func (s *stageService) HasStaged(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaRepo := metadata.NewSQLiteRepository(s.db)
	sessionID, err := metadata.GetString(ctx, metaRepo, metadata.KeySessionID)
	if err != nil {
		s.log.Warn(ctx, "stage pointer unreadable", "error", err)
		return false
	}
	saved, err := metadata.GetString(ctx, metaRepo, metadata.KeyFilesSaved)
	if err != nil {
		s.log.Warn(ctx, "stage pointer unreadable", "error", err)
		return false
	}
	return sessionID != "" && saved == "true"
}

// Session describes the current session, or returns nil when there is none.
func (s *stageService) Session(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID, err := metadata.GetString(ctx, metadata.NewSQLiteRepository(s.db), metadata.KeySessionID)
	if err != nil {
		return nil, &StagingError{Op: "session", Err: err}
	}
	if sessionID == "" {
		return nil, nil
	}

	n, err := files.NewSQLiteRepository(s.db).CountBySession(ctx, sessionID)
	if err != nil {
		return nil, &StagingError{Op: "session", Err: err}
	}

	ms, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return nil, &StagingError{Op: "session", Err: fmt.Errorf("malformed session id %q", sessionID)}
	}
	return &models.Session{ID: sessionID, CreatedAt: time.UnixMilli(ms), Files: n}, nil
}

func (s *stageService) setStaged(n int) {
	if s.metrics != nil {
		s.metrics.SetStaged(n)
	}
}
