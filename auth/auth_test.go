package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTokenRoundTrip(t *testing.T) {
	token, err := CreateToken("s3cret", "local|ana", "ana", "ana@example.com", time.Hour)
	require.NoError(t, err)

	p, err := LocalValidator{Secret: "s3cret"}.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "local|ana", p.Subject)
	assert.Equal(t, "ana", p.Nickname)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, token, p.Token)
}

func TestVerifyTokenRejects(t *testing.T) {
	token, err := CreateToken("s3cret", "local|ana", "", "", time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken("other", token)
	assert.Error(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "local|ana",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = VerifyToken("s3cret", expired)
	assert.Error(t, err)

	_, err = VerifyToken("s3cret", "not-a-token")
	assert.Error(t, err)

	noSubject, err := CreateToken("s3cret", "", "", "", time.Hour)
	require.NoError(t, err)
	_, err = VerifyToken("s3cret", noSubject)
	assert.Error(t, err)

	_, err = CreateToken("", "x", "", "", time.Hour)
	assert.Error(t, err)
}

func TestPrincipalFrom(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	_, ok = PrincipalFrom(WithPrincipal(context.Background(), &Principal{}))
	assert.False(t, ok)

	p, ok := PrincipalFrom(WithPrincipal(context.Background(), &Principal{Subject: "s"}))
	require.True(t, ok)
	assert.Equal(t, "s", p.Subject)
}
