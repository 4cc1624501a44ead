package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/buildinfo"
	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/payment"
	"github.com/dmitrijs2005/udinflow/internal/client/pricing"
	"github.com/dmitrijs2005/udinflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/dmitrijs2005/udinflow/internal/logging"
)

const (
	merchantName            = "UDIN Professional Services"
	defaultDocumentCategory = "general"
	noSignature             = "direct_payment_no_signature"
	checkoutPlatform        = "cli"
)

// CheckoutResult is a transaction that has been paid and recorded.
type CheckoutResult struct {
	TransactionID string
	PaymentID     string
	Breakdown     *pricing.Breakdown
	Transaction   *models.Transaction
}

// CheckoutService prices the staged files, creates the backend transaction and
// takes the payment. The upload step runs separately against the returned
// transaction id.
type CheckoutService interface {
	Quote(files []*models.StagedFile) (*pricing.Breakdown, error)
	Checkout(ctx context.Context, user *models.User, files []*models.StagedFile) (*CheckoutResult, error)
	// CurrentTransaction returns the id remembered by the last checkout, or "".
	CurrentTransaction(ctx context.Context) (string, error)
}

type CheckoutOption func(*checkoutService)

func WithCheckoutClock(now func() time.Time) CheckoutOption {
	return func(s *checkoutService) { s.now = now }
}

// WithPaymentKey sets the merchant key the widget is opened with.
func WithPaymentKey(keyID string) CheckoutOption {
	return func(s *checkoutService) { s.keyID = keyID }
}

type checkoutService struct {
	client  client.Client
	catalog *pricing.Catalog
	widget  payment.Widget
	meta    metadata.Repository
	log     logging.Logger
	keyID   string
	now     func() time.Time
}

func NewCheckoutService(c client.Client, catalog *pricing.Catalog, widget payment.Widget, meta metadata.Repository, log logging.Logger, opts ...CheckoutOption) CheckoutService {
	if log == nil {
		log = logging.Nop()
	}
	s := &checkoutService{
		client:  c,
		catalog: catalog,
		widget:  widget,
		meta:    meta,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *checkoutService) Quote(files []*models.StagedFile) (*pricing.Breakdown, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	types := make([]string, len(files))
	for i, f := range files {
		types[i] = f.DocumentType
	}
	return s.catalog.Calculate(types)
}

func (s *checkoutService) Checkout(ctx context.Context, user *models.User, files []*models.StagedFile) (*CheckoutResult, error) {
	if user == nil || user.ID == "" {
		return nil, ErrNotLoggedIn
	}
	breakdown, err := s.Quote(files)
	if err != nil {
		return nil, err
	}

	txID := common.NewBusinessID("TXN", s.now())
	log := s.log.With("transaction_id", txID)

	req := &models.CreateTransactionRequest{
		TransactionID: txID,
		UserID:        user.ID,
		UserInfo:      user.ToTransactionUser(),
		Documents:     s.documents(files, breakdown),
		Pricing: models.TransactionPricing{
			Subtotal:      breakdown.Subtotal,
			GSTAmount:     breakdown.GST,
			GSTPercentage: breakdown.GSTPercentage,
			TotalAmount:   breakdown.Total,
			Currency:      breakdown.Currency,
		},
		Status: models.TransactionStatusPending,
		Metadata: map[string]any{
			"total_documents": len(files),
			"platform":        checkoutPlatform,
			"version":         buildinfo.Version,
		},
	}

	tx, err := s.client.CreateTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("could not create transaction: %w", err)
	}
	if tx.TransactionID != "" {
		txID = tx.TransactionID
	}
	if err := metadata.SetString(ctx, s.meta, metadata.KeyCurrentTransaction, txID); err != nil {
		log.Warn(ctx, "could not remember current transaction", "error", err)
	}
	log.Info(ctx, "transaction created", "total", breakdown.Total, "documents", len(files))

	res := &CheckoutResult{TransactionID: txID, Breakdown: breakdown, Transaction: tx}

	order := payment.Order{
		KeyID:         s.keyID,
		Amount:        breakdown.AmountMinor(),
		Currency:      breakdown.Currency,
		Name:          merchantName,
		Description:   "Document processing payment - " + txID,
		TransactionID: txID,
		Prefill: payment.Prefill{
			Name:    strings.TrimSpace(user.FirstName + " " + user.LastName),
			Email:   user.Email,
			Contact: user.PhoneNumber,
		},
		Notes: map[string]string{"transaction_id": txID},
	}

	err = s.widget.Open(ctx, order, payment.Handlers{
		OnSuccess: func(ctx context.Context, p payment.Success) error {
			return s.recordPayment(ctx, res, breakdown, p)
		},
		OnFailure: func(ctx context.Context, f *payment.Failure) {
			log.Warn(ctx, "payment failed", "code", f.Code, "reason", f.Reason)
		},
	})
	if err != nil {
		var recErr *PaymentRecordError
		if errors.As(err, &recErr) {
			return nil, recErr
		}
		return nil, &PaymentError{TransactionID: txID, Err: err}
	}
	if res.PaymentID == "" {
		return nil, &PaymentError{TransactionID: txID, Err: payment.ErrDismissed}
	}

	log.Info(ctx, "payment recorded", "payment_id", res.PaymentID)
	return res, nil
}

// recordPayment runs inside the widget's success handler.
func (s *checkoutService) recordPayment(ctx context.Context, res *CheckoutResult, b *pricing.Breakdown, p payment.Success) error {
	signature := p.Signature
	if signature == "" {
		signature = noSignature
	}
	upd := &models.TransactionUpdate{
		Status:        models.TransactionStatusCompleted,
		PaymentStatus: models.TransactionStatusCompleted,
		Payment: &models.PaymentDetails{
			PaymentID: p.PaymentID,
			OrderID:   res.TransactionID,
			Signature: signature,
			Method:    p.Method,
			Currency:  b.Currency,
			Amount:    b.AmountMinor(),
			PaidAt:    s.now().UTC(),
		},
	}

	tx, err := s.client.UpdateTransaction(ctx, res.TransactionID, upd)
	if err != nil {
		s.log.Error(ctx, "payment post-update failed", "transaction_id", res.TransactionID, "payment_id", p.PaymentID, "error", err)
		return &PaymentRecordError{TransactionID: res.TransactionID, PaymentID: p.PaymentID, Err: err}
	}
	if tx != nil {
		res.Transaction = tx
	}
	res.PaymentID = p.PaymentID

	if err := metadata.SetString(ctx, s.meta, metadata.KeyPaymentCompleted, "true"); err != nil {
		s.log.Warn(ctx, "could not remember payment", "error", err)
	}
	if err := metadata.SetString(ctx, s.meta, metadata.KeyPaymentID, p.PaymentID); err != nil {
		s.log.Warn(ctx, "could not remember payment", "error", err)
	}
	return nil
}

// documents lists files as the transaction records them. The category is the
// priced line item's name.
func (s *checkoutService) documents(files []*models.StagedFile, b *pricing.Breakdown) []models.TransactionFile {
	out := make([]models.TransactionFile, len(files))
	for i, f := range files {
		docType := f.DocumentType
		if docType == "" {
			docType = common.DefaultDocumentType
		}
		category := defaultDocumentCategory
		if i < len(b.Items) && b.Items[i].Known {
			category = b.Items[i].Name
		}
		out[i] = models.TransactionFile{
			Name:             f.Name,
			Size:             f.Size,
			Type:             f.Type,
			DocumentType:     docType,
			DocumentCategory: category,
		}
	}
	return out
}

func (s *checkoutService) CurrentTransaction(ctx context.Context) (string, error) {
	return metadata.GetString(ctx, s.meta, metadata.KeyCurrentTransaction)
}
