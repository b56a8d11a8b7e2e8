package crypto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: expiry,
		Issuer:       "agentforge-test",
	})
}

func TestJWTRoundTrip(t *testing.T) {
	manager := newTestManager(time.Minute)
	userID := uuid.New()
	tenantID := uuid.New()

	token, expiresAt, err := manager.GenerateToken(userID, tenantID, RoleWriter)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, RoleWriter, claims.Role)
}

func TestJWTExpiredToken(t *testing.T) {
	manager := newTestManager(-time.Minute)

	token, _, err := manager.GenerateToken(uuid.New(), uuid.New(), RoleViewer)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTWrongSecret(t *testing.T) {
	token, _, err := newTestManager(time.Minute).GenerateToken(uuid.New(), uuid.New(), RoleAdmin)
	require.NoError(t, err)

	other := NewJWTManager(JWTConfig{Secret: "other-secret", AccessExpiry: time.Minute, Issuer: "agentforge-test"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTGarbageToken(t *testing.T) {
	_, err := newTestManager(time.Minute).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsCanWrite(t *testing.T) {
	assert.False(t, (&Claims{Role: RoleViewer}).CanWrite())
	assert.True(t, (&Claims{Role: RoleWriter}).CanWrite())
	assert.True(t, (&Claims{Role: RoleAdmin}).CanWrite())
}
