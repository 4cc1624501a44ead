// Package cli implements the interactive udin client: a line-oriented REPL
// that stages documents, classifies and prices them, takes the payment and
// uploads the files, plus account and staff commands.
//
// The same command handlers back the non-interactive cobra subcommands in
// cmd/client.
package cli
