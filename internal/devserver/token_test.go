package devserver

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/common"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	now := time.Unix(1718000000, 0)

	tok, err := GenerateToken("user-123", roleAdmin, secret, now, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := ParseToken(tok, secret, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.UserID != "user-123" || claims.Role != roleAdmin {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	// The client reads the same exp claim.
	exp, err := client.TokenExpiry(tok)
	if err != nil {
		t.Fatalf("TokenExpiry error: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v, want %v", exp, now.Add(time.Hour))
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("s")
	now := time.Unix(1718000000, 0)
	tok, err := GenerateToken("u", roleUser, secret, now, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(tok, secret, now.Add(time.Hour)); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	now := time.Unix(1718000000, 0)
	tok, err := GenerateToken("u", roleUser, []byte("a"), now, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(tok, []byte("b"), now); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseToken("garbage", []byte("b"), now); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
