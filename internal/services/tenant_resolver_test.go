package services

import (
	"testing"

	"sportshub/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestResolveActiveTenant(t *testing.T) {
	tests := []struct {
		name       string
		session    Session
		override   string
		wantTenant string
		wantOK     bool
	}{
		{
			name:       "platform admin impersonating",
			session:    Session{UserID: "u1", Role: models.RolePlatformAdmin},
			override:   "t2",
			wantTenant: "t2",
			wantOK:     true,
		},
		{
			name:    "platform admin global view",
			session: Session{UserID: "u1", Role: models.RolePlatformAdmin},
			wantOK:  false,
		},
		{
			name:       "tenant admin uses bound tenant",
			session:    Session{UserID: "u2", Role: models.RoleTenantAdmin, TenantID: "t1"},
			wantTenant: "t1",
			wantOK:     true,
		},
		{
			name:       "tenant admin cannot impersonate",
			session:    Session{UserID: "u2", Role: models.RoleTenantAdmin, TenantID: "t1"},
			override:   "t2",
			wantTenant: "t1",
			wantOK:     true,
		},
		{
			name:    "tenant admin without tenant",
			session: Session{UserID: "u3", Role: models.RoleTenantAdmin},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenantID, ok := ResolveActiveTenant(tt.session, tt.override)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTenant, tenantID)
		})
	}
}

func TestSessionActiveTenantUsesImpersonation(t *testing.T) {
	session := Session{UserID: "u1", Role: models.RolePlatformAdmin, ImpersonatedTenantID: "t9"}

	tenantID, ok := session.ActiveTenant()
	assert.True(t, ok)
	assert.Equal(t, "t9", tenantID)
}

func TestSystemSession(t *testing.T) {
	session := SystemSession("t1")

	assert.True(t, session.IsPlatformAdmin())
	tenantID, ok := session.ActiveTenant()
	assert.True(t, ok)
	assert.Equal(t, "t1", tenantID)
	assert.NotEqual(t, SystemSession("t2").Key(), session.Key())
}
