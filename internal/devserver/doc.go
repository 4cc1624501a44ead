// Package devserver is an in-memory implementation of the UDIN REST backend
// for local runs and integration tests.
//
// Records live only as long as the process. One-time codes and the initial
// password of registered users are written to the log instead of being
// emailed. Tokens are HS256 JWTs signed with Config.JWTSecret.
package devserver
