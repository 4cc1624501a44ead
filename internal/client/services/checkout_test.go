package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/payment"
	"github.com/dmitrijs2005/udinflow/internal/client/pricing"
	"github.com/dmitrijs2005/udinflow/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutBackend struct {
	client.Client

	created   *models.CreateTransactionRequest
	createErr error
	updatedID string
	update    *models.TransactionUpdate
	updateErr error
}

func (b *checkoutBackend) CreateTransaction(ctx context.Context, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.created = req
	return &models.Transaction{ID: "db1", TransactionID: req.TransactionID, Status: req.Status}, nil
}

func (b *checkoutBackend) UpdateTransaction(ctx context.Context, id string, upd *models.TransactionUpdate) (*models.Transaction, error) {
	if b.updateErr != nil {
		return nil, b.updateErr
	}
	b.updatedID = id
	b.update = upd
	return &models.Transaction{ID: "db1", TransactionID: id, Status: upd.Status}, nil
}

// scriptedWidget resolves each Open the way the test tells it to.
type scriptedWidget struct {
	outcome string // "pay", "fail" or "close"
	opened  *payment.Order
}

func (w *scriptedWidget) Open(ctx context.Context, order payment.Order, h payment.Handlers) error {
	w.opened = &order
	switch w.outcome {
	case "pay":
		return h.OnSuccess(ctx, payment.Success{PaymentID: "pay_1", OrderID: order.TransactionID, Method: "card"})
	case "fail":
		f := &payment.Failure{Code: "BAD_REQUEST_ERROR", Description: "Card declined"}
		h.OnFailure(ctx, f)
		return f
	}
	return payment.ErrDismissed
}

type checkoutFixture struct {
	backend *checkoutBackend
	widget  *scriptedWidget
	meta    metadata.Repository
	svc     CheckoutService
}

func newCheckoutFixture(t *testing.T, outcome string) *checkoutFixture {
	t.Helper()
	catalog, err := pricing.Default()
	require.NoError(t, err)

	f := &checkoutFixture{
		backend: &checkoutBackend{},
		widget:  &scriptedWidget{outcome: outcome},
		meta:    metadata.NewSQLiteRepository(setupStageDB(t)),
	}
	f.svc = NewCheckoutService(f.backend, catalog, f.widget, f.meta, nil,
		WithPaymentKey("rzp_test"),
		WithCheckoutClock(func() time.Time { return time.UnixMilli(1718000000000) }))
	return f
}

func customer() *models.User {
	return &models.User{
		ID: "u1",
		UserInfo: models.UserInfo{
			FirstName:   "Asha",
			LastName:    "Rao",
			Email:       "asha@example.com",
			PhoneNumber: "9000000000",
		},
	}
}

func twoCertificates() []*models.StagedFile {
	return []*models.StagedFile{
		pdf("a.pdf", "net-worth-certificate", "A"),
		pdf("b.pdf", "turnover-certificate", "B"),
	}
}

func TestCheckout_PaysAndRecords(t *testing.T) {
	f := newCheckoutFixture(t, "pay")
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, customer(), twoCertificates())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^TXN_1718000000000_[0-9a-z]{9}$`), res.TransactionID)
	assert.Equal(t, "pay_1", res.PaymentID)
	assert.Equal(t, int64(3540), res.Breakdown.Total)

	req := f.backend.created
	require.NotNil(t, req)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, models.TransactionStatusPending, req.Status)
	assert.Equal(t, int64(3000), req.Pricing.Subtotal)
	assert.Equal(t, int64(540), req.Pricing.GSTAmount)
	assert.Equal(t, "INR", req.Pricing.Currency)
	require.Len(t, req.Documents, 2)
	assert.Equal(t, "net-worth-certificate", req.Documents[0].DocumentType)
	assert.Equal(t, "Net Worth Certificate", req.Documents[0].DocumentCategory)
	assert.Equal(t, 2, req.Metadata["total_documents"])
	assert.Equal(t, "cli", req.Metadata["platform"])

	order := f.widget.opened
	require.NotNil(t, order)
	assert.Equal(t, int64(354000), order.Amount)
	assert.Equal(t, "rzp_test", order.KeyID)
	assert.Equal(t, "UDIN Professional Services", order.Name)
	assert.Equal(t, "Document processing payment - "+res.TransactionID, order.Description)
	assert.Equal(t, payment.Prefill{Name: "Asha Rao", Email: "asha@example.com", Contact: "9000000000"}, order.Prefill)

	assert.Equal(t, res.TransactionID, f.backend.updatedID)
	upd := f.backend.update
	assert.Equal(t, models.TransactionStatusCompleted, upd.Status)
	assert.Equal(t, "pay_1", upd.Payment.PaymentID)
	assert.Equal(t, res.TransactionID, upd.Payment.OrderID)
	assert.Equal(t, "direct_payment_no_signature", upd.Payment.Signature)

	cur, err := f.svc.CurrentTransaction(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.TransactionID, cur)
	paid, _ := metadata.GetString(ctx, f.meta, metadata.KeyPaymentCompleted)
	assert.Equal(t, "true", paid)
	pid, _ := metadata.GetString(ctx, f.meta, metadata.KeyPaymentID)
	assert.Equal(t, "pay_1", pid)
}

func TestCheckout_RecordFailureAfterPayment(t *testing.T) {
	f := newCheckoutFixture(t, "pay")
	f.backend.updateErr = errors.New("backend down")

	_, err := f.svc.Checkout(context.Background(), customer(), twoCertificates())

	var recErr *PaymentRecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "pay_1", recErr.PaymentID)
	assert.Contains(t, err.Error(), "Please contact support with Transaction ID: "+recErr.TransactionID)

	cur, _ := f.svc.CurrentTransaction(context.Background())
	assert.Equal(t, recErr.TransactionID, cur, "the transaction id must survive for support")
	paid, _ := metadata.GetString(context.Background(), f.meta, metadata.KeyPaymentCompleted)
	assert.Empty(t, paid)
}

func TestCheckout_WidgetFailure(t *testing.T) {
	f := newCheckoutFixture(t, "fail")

	_, err := f.svc.Checkout(context.Background(), customer(), twoCertificates())

	var payErr *PaymentError
	require.ErrorAs(t, err, &payErr)
	var failure *payment.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "BAD_REQUEST_ERROR", failure.Code)
	assert.Contains(t, err.Error(), "Payment failed: Card declined")
	assert.Contains(t, err.Error(), "Reason: Unknown")
	assert.Contains(t, err.Error(), "Transaction ID: "+payErr.TransactionID)
	assert.Nil(t, f.backend.update)
}

func TestCheckout_Dismissed(t *testing.T) {
	f := newCheckoutFixture(t, "close")

	_, err := f.svc.Checkout(context.Background(), customer(), twoCertificates())
	require.ErrorIs(t, err, payment.ErrDismissed)
	assert.Nil(t, f.backend.update)
}

func TestCheckout_Preconditions(t *testing.T) {
	f := newCheckoutFixture(t, "pay")
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, nil, twoCertificates())
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = f.svc.Checkout(ctx, customer(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = f.svc.Checkout(ctx, customer(), []*models.StagedFile{pdf("x.pdf", "", "X")})
	assert.ErrorIs(t, err, pricing.ErrUnclassified)

	assert.Nil(t, f.backend.created, "no transaction may be created before pricing succeeds")
	assert.Nil(t, f.widget.opened)
}

func TestCheckout_CreateFailureOpensNoWidget(t *testing.T) {
	f := newCheckoutFixture(t, "pay")
	f.backend.createErr = client.ErrUnavailable

	_, err := f.svc.Checkout(context.Background(), customer(), twoCertificates())
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Nil(t, f.widget.opened)

	cur, _ := f.svc.CurrentTransaction(context.Background())
	assert.Empty(t, cur)
}

func TestQuote_UnknownTypeIsFree(t *testing.T) {
	f := newCheckoutFixture(t, "pay")

	b, err := f.svc.Quote([]*models.StagedFile{pdf("a.pdf", "net-worth-certificate", "A"), pdf("b.pdf", "mystery", "B")})
	require.NoError(t, err)
	require.Len(t, b.Items, 2)
	assert.False(t, b.Items[1].Known)
	assert.Equal(t, pricing.UnknownDocumentName, b.Items[1].Name)
	assert.Equal(t, int64(1500), b.Subtotal)
	assert.Equal(t, int64(270), b.GST)
}
