package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
)

var errNotAdmin = errors.New("staff commands need an admin account")

// Admin dispatches the staff subcommands.
func (a *App) Admin(ctx context.Context, args []string) error {
	if !a.isAdmin() {
		return errNotAdmin
	}
	if len(args) == 0 {
		fmt.Fprintln(a.out, adminHelpText)
		return nil
	}

	sub, rest := args[0], args[1:]
	need := func(n int, usage string) error {
		if len(rest) != n {
			return fmt.Errorf("usage: admin %s", usage)
		}
		return nil
	}

	switch sub {
	case "users":
		users, err := a.deps.Admin.Users(ctx)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Fprintln(a.out, "No users.")
		}
		for _, u := range users {
			fmt.Fprintf(a.out, "%-26s %-35s %-25s %s\n", u.ID, u.Email, u.FirstName+" "+u.LastName, u.Role)
		}
		return nil

	case "docs":
		if err := need(1, "docs <user-id>"); err != nil {
			return err
		}
		docs, err := a.deps.Admin.UserDocuments(ctx, rest[0])
		if err != nil {
			return err
		}
		a.printDocuments(docs)
		return nil

	case "txs":
		if err := need(1, "txs <user-id>"); err != nil {
			return err
		}
		txs, err := a.deps.Admin.UserTransactions(ctx, rest[0])
		if err != nil {
			return err
		}
		a.printTransactions(txs)
		return nil

	case "txdocs":
		if err := need(1, "txdocs <transaction-id>"); err != nil {
			return err
		}
		docs, err := a.deps.Admin.TransactionDocuments(ctx, rest[0])
		if err != nil {
			return err
		}
		a.printDocuments(docs)
		return nil

	case "status":
		if err := need(2, "status <document-id> <status>"); err != nil {
			return err
		}
		d, err := a.deps.Admin.SetDocumentStatus(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s is now %s.\n", d.FileName, d.Status)
		return nil

	case "sign":
		if err := need(2, "sign <document-id> <path>"); err != nil {
			return err
		}
		bar := progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(a.out),
			progressbar.OptionSetDescription("Uploading signed copy"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
		)
		d, err := a.deps.Admin.UploadSigned(ctx, rest[0], rest[1], func(sent, total int64) {
			bar.ChangeMax64(total)
			_ = bar.Set64(sent)
		})
		if err != nil {
			_ = bar.Exit()
			fmt.Fprintln(a.out)
			return err
		}
		_ = bar.Finish()
		fmt.Fprintln(a.out)
		fmt.Fprintf(a.out, "Signed copy %s attached to %s.\n", d.SignedFileName, d.FileName)
		return nil
	}
	return fmt.Errorf("unknown admin command %q", sub)
}
