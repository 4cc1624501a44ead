package client

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1718000000, 0)
	tok := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp), Subject: "u1"})

	got, err := TokenExpiry(tok)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	assert.True(t, TokenExpired(tok, exp))
	assert.False(t, TokenExpired(tok, exp.Add(-time.Minute)))
}

func TestTokenExpiry_NoExpClaim(t *testing.T) {
	tok := signed(t, jwt.RegisteredClaims{Subject: "u1"})

	got, err := TokenExpiry(tok)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.False(t, TokenExpired(tok, time.Now()))
}

func TestTokenExpiry_Garbage(t *testing.T) {
	_, err := TokenExpiry("not-a-token")
	require.Error(t, err)
	assert.True(t, TokenExpired("not-a-token", time.Now()))
}
