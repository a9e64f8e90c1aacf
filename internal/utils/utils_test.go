package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	tok, err := IssueAdminToken("s3cret", 42, true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenLifetime), tok.Exp, time.Minute)

	id, err := ParseAdminToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestParseAdminTokenRejects(t *testing.T) {
	good, err := IssueAdminToken("s3cret", 7, false)
	require.NoError(t, err)

	expired, err := issueAt("s3cret", 7, false, time.Now().Add(-TokenLifetime-time.Hour))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "7"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"s3cret", expired.Token},
		"malformed":    {"s3cret", "not.a.token"},
		"empty":        {"s3cret", ""},
		"alg none":     {"s3cret", none},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAdminToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes), 4)
	assert.NoError(t, err)
	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}
