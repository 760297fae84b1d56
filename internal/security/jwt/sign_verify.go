package jwtutil

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Codec verifies access tokens issued by the auth service. SignAccess mints
// tokens with the same key for local tooling and tests.
type Codec struct {
	cfg Config
}

func New(cfg Config) *Codec {
	return &Codec{cfg: cfg}
}

// SignAccess returns (tokenString, jti).
func (c *Codec) SignAccess(userID, role string, ttl time.Duration) (string, string, error) {
	jti, err := randJTI()
	if err != nil {
		return "", "", err
	}
	claims := NewAccessClaims(userID, role, jti, ttl)
	claims.Issuer = c.cfg.Issuer
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	return s, jti, err
}

// ParseAccess verifies HS256 signature, expiry with leeway and the issuer
// when configured.
func (c *Codec) ParseAccess(tokenStr string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(c.cfg.ClockSkew),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func randJTI() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
