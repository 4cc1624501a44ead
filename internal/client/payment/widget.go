// Package payment is the port to the third-party checkout widget.
package payment

import (
	"context"
	"errors"
	"fmt"
)

// ErrDismissed is returned by Open when the user closes the widget without
// paying or failing.
var ErrDismissed = errors.New("payment window closed")

type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// Order is what the widget is opened with. Amount is in minor units.
type Order struct {
	KeyID         string
	Amount        int64
	Currency      string
	Name          string
	Description   string
	TransactionID string
	Prefill       Prefill
	Notes         map[string]string
}

type Success struct {
	PaymentID string
	OrderID   string
	Signature string
	Method    string
}

// Failure is reported by the widget's failure handler.
type Failure struct {
	Code        string
	Description string
	Reason      string
}

func (f *Failure) Error() string {
	msg := f.Description
	if msg == "" {
		msg = "payment failed"
	}
	if f.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, f.Reason)
	}
	if f.Code != "" {
		msg = f.Code + ": " + msg
	}
	return msg
}

// Handlers receive the widget outcome. Exactly one of them runs per Open,
// unless the widget is dismissed.
type Handlers struct {
	OnSuccess func(ctx context.Context, s Success) error
	OnFailure func(ctx context.Context, f *Failure)
}

// Widget opens a checkout for order and blocks until it resolves. Open returns
// the OnSuccess error, the Failure, or ErrDismissed.
type Widget interface {
	Open(ctx context.Context, order Order, h Handlers) error
}
