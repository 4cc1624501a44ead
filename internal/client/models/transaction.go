package models

import (
	"strings"
	"time"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusPaid      = "paid"
)

// Transaction is the backend record tying a user, the priced documents and
// the payment state together.
type Transaction struct {
	// ID is the backend database id.
	ID string `json:"_id"`
	// TransactionID is the business identifier, e.g. TXN_1718000000000_k3j9x0a1b.
	TransactionID string              `json:"transaction_id"`
	UserID        string              `json:"user_id"`
	UserInfo      *TransactionUser    `json:"user_info,omitempty"`
	Documents     []TransactionFile   `json:"documents,omitempty"`
	Pricing       *TransactionPricing `json:"pricing,omitempty"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus,omitempty"`
	Payment       *PaymentDetails     `json:"payment,omitempty"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// IsPaid reports whether uploads may proceed against t.
func (t *Transaction) IsPaid() bool {
	switch strings.ToLower(t.Status) {
	case TransactionStatusCompleted, TransactionStatusPaid:
		return true
	}
	return strings.EqualFold(t.PaymentStatus, TransactionStatusCompleted)
}

type TransactionUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	State     string `json:"state"`
	PinCode   string `json:"pin_code"`
}

type TransactionFile struct {
	Name             string `json:"name"`
	Size             int64  `json:"size"`
	Type             string `json:"type"`
	DocumentType     string `json:"document_type"`
	DocumentCategory string `json:"document_category"`
}

type TransactionPricing struct {
	Subtotal      int64  `json:"subtotal"`
	GSTAmount     int64  `json:"gst_amount"`
	GSTPercentage int    `json:"gst_percentage"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
}

type PaymentDetails struct {
	PaymentID string    `json:"payment_id,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	Signature string    `json:"signature,omitempty"`
	Method    string    `json:"method,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
}

// CreateTransactionRequest is the body of POST /api/transactions.
type CreateTransactionRequest struct {
	TransactionID string             `json:"transaction_id"`
	UserID        string             `json:"user_id"`
	UserInfo      TransactionUser    `json:"user_info"`
	Documents     []TransactionFile  `json:"documents"`
	Pricing       TransactionPricing `json:"pricing"`
	Status        string             `json:"status"`
	Metadata      map[string]any     `json:"metadata"`
}

// TransactionUpdate is the body of PATCH /api/transactions/:id.
type TransactionUpdate struct {
	Status        string          `json:"status,omitempty"`
	PaymentStatus string          `json:"paymentStatus,omitempty"`
	Payment       *PaymentDetails `json:"payment,omitempty"`
}
