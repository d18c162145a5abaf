package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

func TestTokenService_IssueAndParse(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "accounts"})

	pair, err := svc.Issue("acc-1")
	require.NoError(t, err)

	access, err := svc.Parse(pair.Access, domain.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", access.AccountID)
	assert.NotEmpty(t, access.TokenID)
	assert.WithinDuration(t, time.Now().Add(defaultAccessTTL), access.ExpiresAt, 5*time.Second)

	refresh, err := svc.Parse(pair.Refresh, domain.TokenTypeRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, access.TokenID, refresh.TokenID)
	assert.WithinDuration(t, time.Now().Add(defaultRefreshTTL), refresh.ExpiresAt, 5*time.Second)
}

func TestTokenService_WrongType(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	pair, err := svc.Issue("acc-1")
	require.NoError(t, err)

	_, err = svc.Parse(pair.Access, domain.TokenTypeRefresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = svc.Parse(pair.Refresh, domain.TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", AccessTTL: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	pair, err := svc.Issue("acc-1")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Parse(pair.Access, domain.TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenService_BadSignatureAndIssuer(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "secret", Issuer: "a"})
	pair, err := issuer.Issue("acc-1")
	require.NoError(t, err)

	otherKey := NewTokenService(TokenConfig{Secret: "other", Issuer: "a"})
	_, err = otherKey.Parse(pair.Access, domain.TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	otherIssuer := NewTokenService(TokenConfig{Secret: "secret", Issuer: "b"})
	_, err = otherIssuer.Parse(pair.Access, domain.TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = issuer.Parse("not-a-token", domain.TokenTypeAccess)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenType: domain.TokenTypeAccess,
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Parse(raw, domain.TokenTypeAccess)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}
