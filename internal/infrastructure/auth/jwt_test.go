package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepflow/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "prepflow-test",
		AccessTokenExpiration: time.Minute,
	})
}

func TestJWTServiceRoundTrip(t *testing.T) {
	svc := newTestJWTService()
	tenantID := uuid.New()
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{
		TenantID: tenantID,
		UserID:   userID,
		Username: "warehouse-ops",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "warehouse-ops", claims.Username)

	gotTenant, err := claims.GetTenantUUID()
	require.NoError(t, err)
	assert.Equal(t, tenantID, gotTenant)
}

func TestJWTServiceDefaultExpiration(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "s", Issuer: "i"})
	assert.Equal(t, time.Hour, svc.GetAccessTokenExpiration())
}

func TestJWTServiceRejectsWrongSecret(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateToken(GenerateTokenInput{TenantID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret: "a-completely-different-secret-value",
		Issuer: "prepflow-test",
	})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTServiceRejectsWrongIssuer(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateToken(GenerateTokenInput{TenantID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "someone-else",
	})
	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWTServiceRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "prepflow-test",
		AccessTokenExpiration: -time.Minute,
	})
	token, _, err := svc.GenerateToken(GenerateTokenInput{TenantID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTServiceRejectsGarbage(t *testing.T) {
	svc := newTestJWTService()
	_, err := svc.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsRemainingTTL(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateToken(GenerateTokenInput{TenantID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	ttl := claims.GetRemainingTTL()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
