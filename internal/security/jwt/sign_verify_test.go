package jwtutil_test

import (
	"errors"
	"testing"
	"time"

	jwtutil "github.com/5w1tchy/lending-api/internal/security/jwt"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestSignAndParse(t *testing.T) {
	c := jwtutil.New(jwtutil.Config{Secret: []byte(secret), ClockSkew: time.Second})

	tok, jti, err := c.SignAccess("u1", "member", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := c.ParseAccess(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != "member" || claims.ID != jti {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParse_Rejects(t *testing.T) {
	c := jwtutil.New(jwtutil.Config{Secret: []byte(secret)})
	other := jwtutil.New(jwtutil.Config{Secret: []byte("ffffffffffffffffffffffffffffffff")})

	expired, _, err := c.SignAccess("u1", "admin", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	foreign, _, err := other.SignAccess("u1", "admin", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, tok := range map[string]string{
		"expired":   expired,
		"wrong key": foreign,
		"garbage":   "not.a.token",
	} {
		if _, err := c.ParseAccess(tok); !errors.Is(err, jwtutil.ErrInvalidToken) {
			t.Errorf("%s: want ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestParse_Issuer(t *testing.T) {
	issuing := jwtutil.New(jwtutil.Config{Secret: []byte(secret), Issuer: "auth.example"})
	strict := jwtutil.New(jwtutil.Config{Secret: []byte(secret), Issuer: "other"})

	tok, _, err := issuing.SignAccess("u1", "member", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuing.ParseAccess(tok); err != nil {
		t.Fatalf("same issuer must pass: %v", err)
	}
	if _, err := strict.ParseAccess(tok); err == nil {
		t.Fatal("issuer mismatch must fail")
	}
}
