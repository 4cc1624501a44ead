package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/pricing"
	"github.com/dmitrijs2005/udinflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/udinflow/internal/filex"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/dmitrijs2005/udinflow/internal/netx"
	"github.com/dmitrijs2005/udinflow/internal/observability/metrics"
)

// UploadRequest describes one drain.
type UploadRequest struct {
	// TransactionID is the business id of a paid transaction. Required.
	TransactionID string
	// Files to upload in order. Nil means load them from the stage; a non-nil
	// empty slice is an empty batch.
	Files []*models.StagedFile

	// OnState is called on every state change.
	OnState func(models.RunState)
	// OnProgress may be called from the transport goroutine.
	OnProgress func(models.Progress)
	// OnComplete is called once: on success, or when there was nothing to upload.
	OnComplete func(models.UploadResult)
}

// UploadService drains staged files to the backend, one at a time, once the
// transaction is confirmed paid.
type UploadService interface {
	Run(ctx context.Context, req UploadRequest) models.UploadResult
}

type UploadOption func(*uploadService)

func WithUploadMetrics(m *metrics.UploadMetrics) UploadOption {
	return func(s *uploadService) { s.metrics = m }
}

func WithUploadClock(now func() time.Time) UploadOption {
	return func(s *uploadService) { s.now = now }
}

type uploadService struct {
	client  client.Client
	stage   StageService
	meta    metadata.Repository
	log     logging.Logger
	metrics *metrics.UploadMetrics
	now     func() time.Time

	mu      sync.Mutex
	running map[string]struct{}
}

func NewUploadService(c client.Client, stage StageService, meta metadata.Repository, log logging.Logger, opts ...UploadOption) UploadService {
	if log == nil {
		log = logging.Nop()
	}
	s := &uploadService{
		client:  c,
		stage:   stage,
		meta:    meta,
		log:     log,
		now:     time.Now,
		running: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// drain is the state of one Run.
type drain struct {
	req UploadRequest
	log logging.Logger

	mu  sync.Mutex
	run models.UploadRun
}

func (d *drain) setState(st models.RunState) {
	d.mu.Lock()
	d.run.State = st
	d.mu.Unlock()
	if d.req.OnState != nil {
		d.req.OnState(st)
	}
}

// progress drops late transport reports: ones for an earlier file, and ones
// below 100 for a file already reported complete.
func (d *drain) progress(idx int, pct float64, name string) {
	d.mu.Lock()
	if idx < d.run.CurrentIndex || (idx < d.run.Completed && pct < 100) {
		d.mu.Unlock()
		return
	}
	d.run.Track(idx, pct)
	p := models.Progress{Index: idx, Percent: pct, FileName: name, Overall: d.run.Overall()}
	d.mu.Unlock()
	if d.req.OnProgress != nil {
		d.req.OnProgress(p)
	}
}

// Run executes preparing, validating, uploading, processing and ends in
// completed or failed. It never returns before reaching a terminal state.
// ctx is checked between files; a file in flight is never interrupted.
func (s *uploadService) Run(ctx context.Context, req UploadRequest) models.UploadResult {
	d := &drain{req: req, log: s.log.With("transaction_id", req.TransactionID)}
	d.run.StartedAt = s.now()

	d.setState(models.RunStatePreparing)

	files := req.Files
	if files == nil {
		loaded, err := s.stage.Load(ctx)
		if err != nil {
			d.log.Warn(ctx, "stage unavailable, nothing restored", "error", err)
		}
		files = loaded
	}
	if len(files) == 0 {
		res := s.fail(ctx, d, ErrNoFiles)
		if req.OnComplete != nil {
			req.OnComplete(res)
		}
		return res
	}

	d.setState(models.RunStateValidating)

	if !s.acquire(req.TransactionID) {
		return s.fail(ctx, d, &ValidationError{TransactionID: req.TransactionID, Err: ErrRunInProgress})
	}
	defer s.release(req.TransactionID)

	tx, err := s.validate(ctx, req.TransactionID, files)
	if err != nil {
		return s.fail(ctx, d, err)
	}

	d.setState(models.RunStateUploading)
	d.mu.Lock()
	d.run.Reset(len(files))
	d.mu.Unlock()

	docs := make([]*models.Document, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			d.log.Info(ctx, "upload cancelled between files", "uploaded", i, "total", len(files))
			return s.fail(ctx, d, fmt.Errorf("upload cancelled after %d of %d files: %w", i, len(files), err))
		}

		doc, err := s.uploadOne(ctx, d, i, f, tx)
		if err != nil {
			return s.fail(ctx, d, err)
		}
		f.Status = models.FileStatusTransmitted
		docs = append(docs, doc)
	}

	d.setState(models.RunStateProcessing)

	// The drain has already succeeded; cleanup must not be cut short.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.client.FinalizeTransaction(cleanupCtx, req.TransactionID); err != nil {
		ferr := &FinalizationError{TransactionID: req.TransactionID, Err: err}
		d.log.Warn(ctx, "finalization failed, continuing", "error", ferr)
	}

	if err := s.stage.ClearAll(cleanupCtx); err != nil {
		d.log.Warn(ctx, "could not clear stage after upload", "error", err)
	}
	if s.meta != nil {
		if err := s.meta.Delete(cleanupCtx, metadata.CheckoutKeys...); err != nil {
			d.log.Warn(ctx, "could not clear checkout keys", "error", err)
		}
	}

	completedAt := s.now()
	res := models.UploadResult{
		State: models.RunStateCompleted,
		Summary: &models.UploadSummary{
			UploadID:      "UPLOAD_" + strconv.FormatInt(completedAt.UnixMilli(), 10),
			TransactionID: req.TransactionID,
			Documents:     docs,
			TotalFiles:    len(files),
			CompletedAt:   completedAt,
		},
	}

	d.setState(models.RunStateCompleted)
	s.finishRun(d, models.RunStateCompleted)
	d.log.Info(ctx, "upload run completed", "files", len(files), "upload_id", res.Summary.UploadID)

	if req.OnComplete != nil {
		req.OnComplete(res)
	}
	return res
}

func (s *uploadService) validate(ctx context.Context, txID string, files []*models.StagedFile) (*models.Transaction, error) {
	if txID == "" {
		return nil, &ValidationError{Err: ErrNoTransaction}
	}
	for _, f := range files {
		if !f.Classified() {
			return nil, &ValidationError{TransactionID: txID, Err: pricing.ErrUnclassified}
		}
	}

	tx, err := s.client.GetTransaction(ctx, txID)
	if err != nil {
		return nil, &ValidationError{TransactionID: txID, Err: err}
	}
	if !tx.IsPaid() {
		return nil, &ValidationError{TransactionID: txID, Err: ErrNotPaid}
	}
	if tx.UserID == "" {
		return nil, &ValidationError{TransactionID: txID, Err: errors.New("transaction has no user")}
	}
	return tx, nil
}

func (s *uploadService) uploadOne(ctx context.Context, d *drain, idx int, f *models.StagedFile, tx *models.Transaction) (*models.Document, error) {
	canonical, err := filex.Normalize(f.Source)
	if err != nil {
		return nil, &NormalizationError{FileName: f.Name, Err: err}
	}
	name := f.Name
	if name == "" {
		name = canonical.Name
	}
	typ := f.Type
	if typ == "" {
		typ = canonical.Type
	}

	d.progress(idx, 0, name)

	up := &models.DocumentUpload{
		UserID:        tx.UserID,
		TransactionID: d.req.TransactionID,
		DocumentType:  f.DocumentType,
		FileName:      name,
		ContentType:   typ,
		Content:       canonical.Content,
	}

	started := s.now()
	doc, err := s.client.UploadDocument(context.WithoutCancel(ctx), up, func(sent, total int64) {
		d.progress(idx, netx.Percent(sent, total, 99), name)
	})
	elapsed := s.now().Sub(started)
	if err != nil {
		if s.metrics != nil {
			s.metrics.FileFailed(elapsed)
		}
		d.log.Warn(ctx, "file upload failed", "index", idx, "file", name, "error", err)
		return nil, &TransmissionError{Index: idx, FileName: name, Err: err}
	}

	if s.metrics != nil {
		s.metrics.FileUploaded(canonical.Size(), elapsed)
	}
	d.progress(idx, 100, name)
	return doc, nil
}

func (s *uploadService) fail(ctx context.Context, d *drain, err error) models.UploadResult {
	d.setState(models.RunStateFailed)
	s.finishRun(d, models.RunStateFailed)
	d.log.Info(ctx, "upload run failed", "error", err)
	return models.UploadResult{State: models.RunStateFailed, Err: err}
}

func (s *uploadService) finishRun(d *drain, st models.RunState) {
	if s.metrics != nil {
		s.metrics.FinishRun(string(st), s.now().Sub(d.run.StartedAt))
	}
}

func (s *uploadService) acquire(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[txID]; busy {
		return false
	}
	s.running[txID] = struct{}{}
	return true
}

func (s *uploadService) release(txID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, txID)
}
