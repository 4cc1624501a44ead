// Package common contains shared constants, sentinel errors and small helpers
// used across the udin client and the development backend.
package common

// AuthorizationHeader carries the bearer access token on outbound requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the access token inside AuthorizationHeader.
const BearerPrefix = "Bearer "

// DefaultDocumentType is sent for files that reach the upload step without a
// classification tag.
const DefaultDocumentType = "other"

// DefaultCurrency is the ISO 4217 code used for pricing and payment.
const DefaultCurrency = "INR"
