package cli

import (
	"context"
	"fmt"
)

const helpText = `Documents:
  add <path>...            stage files (PDF, Word, Excel, JPEG, PNG; 1 KiB to 50 MiB)
  list                     show staged files
  categories               show document types and prices
  classify <n> <type>      set the document type of file n
  remove <n>               unstage file n
  reset                    unstage everything and start fresh
  price                    show the cost breakdown
Account:
  register | login | logout | forgot
Checkout:
  pay                      create the transaction and pay
  upload [transaction-id]  send the staged files for a paid transaction
  docs | transactions      your uploaded documents and transactions
  status                   connection, user, stage and transaction
Other:
  help | exit`

const adminHelpText = `Staff:
  admin users
  admin docs <user-id>
  admin txs <user-id>
  admin txdocs <transaction-id>
  admin status <document-id> <pending|processing|signed|completed|rejected|failed>
  admin sign <document-id> <path>`

// Exec runs one command. It returns errQuit for exit/quit.
func (a *App) Exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText)
		if a.isAdmin() {
			fmt.Fprintln(a.out, adminHelpText)
		}
		return nil

	case "add":
		return a.Add(ctx, args)
	case "l", "list":
		return a.List(ctx, args)
	case "categories":
		return a.Categories(ctx, args)
	case "classify":
		return a.Classify(ctx, args)
	case "remove", "rm":
		return a.Remove(ctx, args)
	case "reset":
		return a.Reset(ctx, args)
	case "price":
		return a.Price(ctx, args)

	case "register":
		return a.Register(ctx, args)
	case "login":
		return a.Login(ctx, args)
	case "logout":
		return a.Logout(ctx, args)
	case "forgot":
		return a.Forgot(ctx, args)

	case "pay":
		return a.Pay(ctx, args)
	case "upload":
		return a.Upload(ctx, args)
	case "docs":
		return a.Docs(ctx, args)
	case "transactions", "txs":
		return a.Transactions(ctx, args)
	case "status":
		return a.Status(ctx, args)

	case "admin":
		return a.Admin(ctx, args)

	case "exit", "quit":
		return errQuit
	}
	return fmt.Errorf("unknown command %q, type 'help'", cmd)
}
