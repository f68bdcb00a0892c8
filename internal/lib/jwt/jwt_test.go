package jwt_test

import (
	"testing"
	"time"

	libjwt "mysalah/internal/lib/jwt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": int64(42),
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return signed
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	got, err := libjwt.ExpiresAt(signedToken(t, exp))
	require.NoError(t, err)
	assert.Equal(t, exp.Unix(), got.Unix())
}

func TestExpiresAtGarbage(t *testing.T) {
	_, err := libjwt.ExpiresAt("not-a-token")
	require.Error(t, err)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, libjwt.Expired(signedToken(t, now.Add(time.Hour)), now))
	assert.True(t, libjwt.Expired(signedToken(t, now.Add(-time.Hour)), now))
	assert.True(t, libjwt.Expired("garbage", now))
}
