package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewJWTStrategy_DefaultTTL(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{})
	if strategy.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}

	strategy = NewJWTStrategy("secret", Options{TTL: 2 * time.Hour})
	if strategy.ttl != 2*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
}

func TestJWTStrategy_IssueAndParse(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{TTL: time.Minute, Issuer: "boxoffice"})
	token, err := strategy.IssueToken(42)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact JWT, got %q", token)
	}
	userID, err := strategy.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != 42 {
		t.Fatalf("unexpected user id: %d", userID)
	}

	if _, err := strategy.IssueToken(0); err == nil {
		t.Fatal("expected error for non-positive user id")
	}
}

func TestJWTStrategy_ParseRejects(t *testing.T) {
	strategy := NewJWTStrategy("secret", Options{TTL: time.Minute, Issuer: "boxoffice"})
	valid, _ := strategy.IssueToken(7)

	expired := NewJWTStrategy("secret", Options{TTL: time.Minute, Issuer: "boxoffice"})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, _ := expired.IssueToken(7)

	otherSecret, _ := NewJWTStrategy("other", Options{Issuer: "boxoffice"}).IssueToken(7)
	otherIssuer, _ := NewJWTStrategy("secret", Options{Issuer: "elsewhere"}).IssueToken(7)

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7", Issuer: "boxoffice"}).SignedString([]byte("secret"))
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "boxoffice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "7",
		Issuer:    "boxoffice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))

	cases := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     valid + "x",
		"expired":      expiredToken,
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"no expiry":    noExpiry,
		"bad subject":  badSubject,
		"wrong alg":    hs512,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
