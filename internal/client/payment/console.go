package payment

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/udinflow/internal/common"
)

// ConsoleWidget simulates the hosted checkout on a terminal. It is meant for
// local runs against the development backend.
type ConsoleWidget struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsoleWidget(in io.Reader, out io.Writer) *ConsoleWidget {
	return &ConsoleWidget{in: bufio.NewReader(in), out: out}
}

func (w *ConsoleWidget) Open(ctx context.Context, order Order, h Handlers) error {
	fmt.Fprintf(w.out, "\n--- %s ---\n", order.Name)
	if order.Description != "" {
		fmt.Fprintln(w.out, order.Description)
	}
	fmt.Fprintf(w.out, "Amount: %s %d.%02d\n", order.Currency, order.Amount/100, order.Amount%100)
	if order.Prefill.Email != "" {
		fmt.Fprintf(w.out, "Payer: %s <%s>\n", order.Prefill.Name, order.Prefill.Email)
	}
	fmt.Fprint(w.out, "Pay now? [y = pay, f = decline, anything else = close]: ")

	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := w.in.ReadString('\n')
	if err != nil && line == "" {
		return ErrDismissed
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "pay":
		s := Success{
			PaymentID: "pay_" + common.RandBase36(14),
			OrderID:   order.TransactionID,
			Method:    "console",
		}
		s.Signature = Sign(order.KeyID, s.OrderID, s.PaymentID)
		if h.OnSuccess == nil {
			return nil
		}
		return h.OnSuccess(ctx, s)
	case "f", "fail", "decline":
		f := &Failure{Code: "BAD_REQUEST_ERROR", Description: "Payment declined by user", Reason: "payment_failed"}
		if h.OnFailure != nil {
			h.OnFailure(ctx, f)
		}
		return f
	default:
		return ErrDismissed
	}
}

// Sign computes the checkout signature hex(HMAC-SHA256(orderID|paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
