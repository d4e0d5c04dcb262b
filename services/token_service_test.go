package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcart-service/repository/memstore"
	"shopcart-service/services"
)

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := services.NewTokenService("secret", time.Hour, memstore.NewSessions())

	token, issued, err := tokens.Issue("identity-1", true)
	require.NoError(t, err)

	claims, err := tokens.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "identity-1", claims.IdentityID())
	assert.True(t, claims.Guest)
	assert.Equal(t, issued.ID, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.Remaining(time.Now()).Seconds(), 5)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	ours := services.NewTokenService("secret", time.Hour, nil)
	theirs := services.NewTokenService("other-secret", time.Hour, nil)

	token, _, err := theirs.Issue("identity-1", false)
	require.NoError(t, err)

	_, err = ours.Verify(context.Background(), token)
	assert.ErrorIs(t, err, services.ErrInvalidSession)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	tokens := services.NewTokenService("secret", -time.Minute, nil)

	token, _, err := tokens.Issue("identity-1", false)
	require.NoError(t, err)

	_, err = tokens.Verify(context.Background(), token)
	assert.ErrorIs(t, err, services.ErrInvalidSession)
}

func TestTokenService_RejectsOtherTokenTypes(t *testing.T) {
	tokens := services.NewTokenService("secret", time.Hour, nil)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "identity-1",
		"jti": "abc",
		"typ": "refresh",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = tokens.Verify(context.Background(), token)
	assert.ErrorIs(t, err, services.ErrInvalidSession)
}

func TestTokenService_Revoke(t *testing.T) {
	tokens := services.NewTokenService("secret", time.Hour, memstore.NewSessions())
	ctx := context.Background()

	token, claims, err := tokens.Issue("identity-1", false)
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(ctx, claims))

	_, err = tokens.Verify(ctx, token)
	assert.ErrorIs(t, err, services.ErrInvalidSession)
}
