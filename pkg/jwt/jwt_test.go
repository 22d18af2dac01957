package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken(Identity{UserID: "u1", Username: "dona", Role: "tenant_admin", TenantID: "t1"})
	require.NoError(t, err)

	claims, err := manager.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "dona", claims.Username)
	assert.Equal(t, "tenant_admin", claims.Role)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Empty(t, claims.ImpersonatedTenantID)
	assert.Equal(t, "sportshub", claims.Issuer)
}

func TestImpersonationSurvivesRefresh(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken(Identity{UserID: "root", Username: "root", Role: "platform_admin"})
	require.NoError(t, err)
	claims, err := manager.VerifyToken(token)
	require.NoError(t, err)

	impersonated, err := manager.GenerateImpersonationToken(claims, "t2")
	require.NoError(t, err)
	refreshed, err := manager.RefreshToken(impersonated)
	require.NoError(t, err)

	refreshedClaims, err := manager.VerifyToken(refreshed)
	require.NoError(t, err)
	assert.Equal(t, "t2", refreshedClaims.ImpersonatedTenantID)
	assert.Equal(t, claims.Identity(), refreshedClaims.Identity())
}

func TestVerifyTokenRejects(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)
	expired := NewJWTManager("test-secret", -time.Minute)

	foreign, err := other.GenerateToken(Identity{UserID: "u1"})
	require.NoError(t, err)
	stale, err := expired.GenerateToken(Identity{UserID: "u1"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.VerifyToken(tt.token)
			assert.Error(t, err)
		})
	}

	_, err = manager.RefreshToken(stale)
	assert.Error(t, err)
}
