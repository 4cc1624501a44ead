// Package client contains client-side building blocks for talking to the
// document-processing backend.
//
// # Overview
//
// The package provides:
//  1. The backend contract (see the Client interface): authentication with
//     email OTP, transactions, document uploads and the admin reads.
//  2. A REST implementation (see HTTPClient) that unwraps the
//     {success, data, message, error} envelope, injects the bearer token,
//     retries idempotent reads through a resilience.Executor and maps HTTP
//     status codes to sentinel errors. Uploads and other state-changing
//     requests are sent exactly once.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring the
//     SQLite stage database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotFound. Every non-2xx
// response is an *APIError carrying the server's message.
package client
