package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("secret", "alice", []string{ScopeReadLogs}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Operator != "alice" || claims.Subject != "alice" {
		t.Errorf("unexpected operator %q / subject %q", claims.Operator, claims.Subject)
	}
	if !claims.HasScope(ScopeReadLogs) {
		t.Errorf("expected scope %q, got %v", ScopeReadLogs, claims.Scopes)
	}
	if claims.HasScope("logs:write") {
		t.Error("unexpected write scope")
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, _ := GenerateJWT("secret", "alice", []string{ScopeReadLogs}, time.Hour)
	if _, err := ParseJWT("other", token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseJWTExpired(t *testing.T) {
	claims := Claims{
		Operator: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT("secret", token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestParseJWTWrongIssuer(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if _, err := ParseJWT("secret", token); err == nil {
		t.Fatal("expected error for foreign issuer")
	}
}

func TestGenerateJWTEmptySecret(t *testing.T) {
	if _, err := GenerateJWT("", "alice", nil, time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
