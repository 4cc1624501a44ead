package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/services"
	"github.com/schollz/progressbar/v3"
)

// Pay prices the staged files, creates the transaction and opens the payment
// widget. Uploading is a separate step.
func (a *App) Pay(ctx context.Context, args []string) error {
	user := a.currentUser()
	if user == nil {
		return services.ErrNotLoggedIn
	}
	files := a.snapshot()
	if len(files) == 0 {
		return errNoStaged
	}

	b, err := a.deps.Checkout.Quote(files)
	if err != nil {
		return err
	}
	a.printBreakdown(b)

	res, err := a.deps.Checkout.Checkout(ctx, user, files)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Payment successful (%s). Transaction ID: %s\n", res.PaymentID, res.TransactionID)
	fmt.Fprintln(a.out, "Type 'upload' to send your documents.")
	return nil
}

// Upload drains the stage for the given transaction, or for the one the last
// checkout remembered.
func (a *App) Upload(ctx context.Context, args []string) error {
	txID := ""
	if len(args) > 0 {
		txID = args[0]
	} else {
		cur, err := a.deps.Checkout.CurrentTransaction(ctx)
		if err != nil {
			a.log.Warn(ctx, "could not read current transaction", "error", err)
		}
		txID = cur
	}

	files := a.snapshot()
	if len(files) == 0 {
		return errNoStaged
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(a.out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Preparing"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	res := a.deps.Uploads.Run(ctx, services.UploadRequest{
		TransactionID: txID,
		Files:         files,
		OnState: func(st models.RunState) {
			switch st {
			case models.RunStateValidating:
				bar.Describe("Verifying payment")
			case models.RunStateProcessing:
				bar.Describe("Processing")
			}
		},
		OnProgress: func(p models.Progress) {
			bar.Describe(fmt.Sprintf("[%d/%d] %s", p.Index+1, len(files), p.FileName))
			_ = bar.Set(int(p.Overall))
		},
	})

	if !res.Succeeded() {
		_ = bar.Exit()
		fmt.Fprintln(a.out)
		var terr *services.TransmissionError
		if errors.As(res.Err, &terr) && terr.Index > 0 {
			fmt.Fprintf(a.out, "%d file(s) reached the server before the failure; your files are still staged.\n", terr.Index)
		}
		return res.Err
	}
	_ = bar.Finish()
	fmt.Fprintln(a.out)

	a.mu.Lock()
	a.files = nil
	a.mu.Unlock()

	s := res.Summary
	fmt.Fprintf(a.out, "Uploaded %d document(s) for transaction %s (upload %s).\n", s.TotalFiles, s.TransactionID, s.UploadID)
	return nil
}

func (a *App) Docs(ctx context.Context, args []string) error {
	user := a.currentUser()
	if user == nil {
		return services.ErrNotLoggedIn
	}
	docs, err := a.deps.Admin.UserDocuments(ctx, user.ID)
	if err != nil {
		return err
	}
	a.printDocuments(docs)
	return nil
}

func (a *App) Transactions(ctx context.Context, args []string) error {
	user := a.currentUser()
	if user == nil {
		return services.ErrNotLoggedIn
	}
	txs, err := a.deps.Admin.UserTransactions(ctx, user.ID)
	if err != nil {
		return err
	}
	a.printTransactions(txs)
	return nil
}

func (a *App) Status(ctx context.Context, args []string) error {
	a.mu.Lock()
	mode, n, durable := a.mode, len(a.files), a.durable
	a.mu.Unlock()

	if mode == "" {
		mode = "unknown"
	}
	fmt.Fprintf(a.out, "Connection:  %s\n", mode)
	if u := a.currentUser(); u != nil {
		fmt.Fprintf(a.out, "User:        %s (%s)\n", u.Email, u.Role)
	} else {
		fmt.Fprintln(a.out, "User:        not logged in")
	}
	storage := "saved locally"
	if !durable {
		storage = "memory only"
	}
	fmt.Fprintf(a.out, "Staged:      %d file(s), %s\n", n, storage)
	if sess, err := a.deps.Stage.Session(ctx); err == nil && sess != nil {
		fmt.Fprintf(a.out, "Session:     %s (since %s)\n", sess.ID, sess.CreatedAt.Format("2006-01-02 15:04"))
	}
	if tx, err := a.deps.Checkout.CurrentTransaction(ctx); err == nil && tx != "" {
		fmt.Fprintf(a.out, "Transaction: %s\n", tx)
	}
	return nil
}

func (a *App) printDocuments(docs []*models.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(a.out, "No documents.")
		return
	}
	for _, d := range docs {
		line := fmt.Sprintf("%-26s %-40s %-30s %s", d.ID, d.FileName, d.DocumentType, d.Status)
		if d.SignedFileName != "" {
			line += "  signed: " + d.SignedFileName
		}
		fmt.Fprintln(a.out, line)
	}
}

func (a *App) printTransactions(txs []*models.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(a.out, "No transactions.")
		return
	}
	for _, t := range txs {
		total := int64(0)
		currency := ""
		if t.Pricing != nil {
			total, currency = t.Pricing.TotalAmount, t.Pricing.Currency
		}
		fmt.Fprintf(a.out, "%-32s %-10s %s %8d  %d document(s)  %s\n",
			t.TransactionID, t.Status, currency, total, len(t.Documents), t.CreatedAt.Format("2006-01-02"))
	}
}
