package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is how long an admin token stays valid after login.
const TokenLifetime = 7 * 24 * time.Hour

// AdminClaims are the claims carried by an admin token. Subject holds the
// admin id in decimal; Super mirrors is_super_admin at issue time and is
// informational only, authority is always re-read from the store.
type AdminClaims struct {
	Super bool `json:"super"`
	jwt.RegisteredClaims
}

// AccessToken is a signed admin token with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// ErrInvalidToken covers every way a token can fail verification.
var ErrInvalidToken = errors.New("invalid token")

// IssueAdminToken signs an HS256 token for the admin, valid for TokenLifetime.
func IssueAdminToken(secret string, adminID uint64, super bool) (AccessToken, error) {
	return issueAt(secret, adminID, super, time.Now().UTC())
}

func issueAt(secret string, adminID uint64, super bool, now time.Time) (AccessToken, error) {
	exp := now.Add(TokenLifetime)
	claims := AdminClaims{
		Super: super,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(adminID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAdminToken verifies signature, algorithm and expiry and returns the
// admin id the token was issued for.
func ParseAdminToken(secret, raw string) (uint64, error) {
	claims := &AdminClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
