package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/udinflow/internal/client/payment"
	"github.com/dmitrijs2005/udinflow/internal/client/pricing"
)

var (
	ErrNoFiles       = errors.New("no files to upload")
	ErrNoTransaction = errors.New("no transaction id available")
	ErrNotPaid       = errors.New("transaction is not paid")
	ErrOTPThrottled  = errors.New("please wait before requesting another code")
	ErrRunInProgress = errors.New("an upload for this transaction is already running")
)

// StagingError is a failure of the durable stage. Callers degrade to
// memory-only staging rather than stopping the flow.
type StagingError struct {
	Op  string
	Err error
}

func (e *StagingError) Error() string { return fmt.Sprintf("stage %s: %v", e.Op, e.Err) }
func (e *StagingError) Unwrap() error { return e.Err }

// NormalizationError means a file has no recognizable representation.
type NormalizationError struct {
	FileName string
	Err      error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("file %q: %v", e.FileName, e.Err)
}
func (e *NormalizationError) Unwrap() error { return e.Err }

// ValidationError stops a run before any upload: the transaction could not be
// resolved or is not paid.
type ValidationError struct {
	TransactionID string
	Err           error
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNoTransaction):
		return "No transaction found. Please complete the payment first."
	case errors.Is(e.Err, ErrNotPaid):
		return fmt.Sprintf("Payment for transaction %s is not completed. Please complete the payment or contact support.", e.TransactionID)
	case errors.Is(e.Err, pricing.ErrUnclassified):
		return "Every file needs a document type before it can be uploaded."
	}
	return fmt.Sprintf("could not verify transaction %s: %v", e.TransactionID, e.Err)
}
func (e *ValidationError) Unwrap() error { return e.Err }

// TransmissionError is a single file's upload failing. Files before Index
// were accepted by the backend.
type TransmissionError struct {
	Index    int
	FileName string
	Err      error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("upload of %q (file %d) failed: %v", e.FileName, e.Index+1, e.Err)
}
func (e *TransmissionError) Unwrap() error { return e.Err }

// FinalizationError is logged and never returned from a run.
type FinalizationError struct {
	TransactionID string
	Err           error
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("finalize transaction %s: %v", e.TransactionID, e.Err)
}
func (e *FinalizationError) Unwrap() error { return e.Err }

// ErrNotLoggedIn is returned by operations that need an authenticated user.
var ErrNotLoggedIn = errors.New("please log in first")

// PaymentError is a payment the widget reported as failed or that the user
// abandoned. No money moved; the transaction stays pending.
type PaymentError struct {
	TransactionID string
	Err           error
}

func (e *PaymentError) Error() string {
	var f *payment.Failure
	if errors.As(e.Err, &f) {
		reason := f.Reason
		if reason == "" {
			reason = "Unknown"
		}
		return fmt.Sprintf("Payment failed: %s\nError Code: %s\nReason: %s\nTransaction ID: %s",
			f.Description, f.Code, reason, e.TransactionID)
	}
	if errors.Is(e.Err, payment.ErrDismissed) {
		return fmt.Sprintf("Payment cancelled. Transaction ID: %s", e.TransactionID)
	}
	return fmt.Sprintf("Payment error occurred: %v", e.Err)
}
func (e *PaymentError) Unwrap() error { return e.Err }

// PaymentRecordError means the payment went through but the backend could
// not be told. The user must contact support with the transaction id.
type PaymentRecordError struct {
	TransactionID string
	PaymentID     string
	Err           error
}

func (e *PaymentRecordError) Error() string {
	return fmt.Sprintf("Payment succeeded but updating records failed. Please contact support with Transaction ID: %s", e.TransactionID)
}
func (e *PaymentRecordError) Unwrap() error { return e.Err }
