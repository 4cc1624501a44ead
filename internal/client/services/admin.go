package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/filex"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/dmitrijs2005/udinflow/internal/netx"
)

// AdminService is the staff view over every user's work. The backend enforces
// the role; the client only forwards the token.
type AdminService interface {
	Users(ctx context.Context) ([]*models.User, error)
	UserDocuments(ctx context.Context, userID string) ([]*models.Document, error)
	UserTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)
	TransactionDocuments(ctx context.Context, txID string) ([]*models.Document, error)
	SetDocumentStatus(ctx context.Context, documentID, status string) (*models.Document, error)
	// UploadSigned attaches the signed counterpart of documentID, read from path.
	UploadSigned(ctx context.Context, documentID, path string, progress netx.ProgressFunc) (*models.Document, error)
}

type adminService struct {
	client client.Client
	limits filex.Limits
	log    logging.Logger
}

func NewAdminService(c client.Client, limits filex.Limits, log logging.Logger) AdminService {
	if log == nil {
		log = logging.Nop()
	}
	return &adminService{client: c, limits: limits, log: log}
}

func (s *adminService) Users(ctx context.Context) ([]*models.User, error) {
	return s.client.ListUsers(ctx)
}

func (s *adminService) UserDocuments(ctx context.Context, userID string) ([]*models.Document, error) {
	return s.client.DocumentsByUser(ctx, userID)
}

func (s *adminService) UserTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.client.TransactionsByUser(ctx, userID)
}

// TransactionDocuments accepts the business id and resolves the backend id
// the documents are filed under.
func (s *adminService) TransactionDocuments(ctx context.Context, txID string) ([]*models.Document, error) {
	tx, err := s.client.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	return s.client.DocumentsByTransaction(ctx, tx.ID)
}

func (s *adminService) SetDocumentStatus(ctx context.Context, documentID, status string) (*models.Document, error) {
	st, ok := models.ParseDocumentStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown document status %q", status)
	}
	doc, err := s.client.UpdateDocumentStatus(ctx, documentID, st)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "document status changed", "document_id", documentID, "status", st)
	return doc, nil
}

func (s *adminService) UploadSigned(ctx context.Context, documentID, path string, progress netx.ProgressFunc) (*models.Document, error) {
	f, err := filex.Normalize(filex.NativeHandle{Path: path})
	if err != nil {
		return nil, &NormalizationError{FileName: path, Err: err}
	}
	if err := filex.Validate(f, s.limits); err != nil {
		return nil, err
	}
	doc, err := s.client.UploadSignedDocument(ctx, documentID, f, progress)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "signed document uploaded", "document_id", documentID, "file", f.Name)
	return doc, nil
}
