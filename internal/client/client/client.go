package client

import (
	"context"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/filex"
	"github.com/dmitrijs2005/udinflow/internal/netx"
)

// Client is the backend contract consumed by the services.
type Client interface {
	Ping(ctx context.Context) error

	SetTokens(access, refresh string)
	AccessToken() string

	SendEmailOTP(ctx context.Context, email string) (*models.OTPChallenge, error)
	VerifyEmailOTP(ctx context.Context, verificationID, otp string) error
	Register(ctx context.Context, info models.UserInfo) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) (*models.OTPChallenge, error)
	VerifyForgotPassword(ctx context.Context, verificationID, otp string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	CreateTransaction(ctx context.Context, req *models.CreateTransactionRequest) (*models.Transaction, error)
	// GetTransaction accepts the business id or the backend id.
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, upd *models.TransactionUpdate) (*models.Transaction, error)
	FinalizeTransaction(ctx context.Context, id string) error
	TransactionsByUser(ctx context.Context, userID string) ([]*models.Transaction, error)

	UploadDocument(ctx context.Context, up *models.DocumentUpload, progress netx.ProgressFunc) (*models.Document, error)
	DocumentsByUser(ctx context.Context, userID string) ([]*models.Document, error)
	DocumentsByTransaction(ctx context.Context, txDBID string) ([]*models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) (*models.Document, error)
	UploadSignedDocument(ctx context.Context, id string, file *filex.File, progress netx.ProgressFunc) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}
