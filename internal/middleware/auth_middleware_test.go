package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sportshub/internal/models"
	"sportshub/internal/services"
	"sportshub/internal/store"
	"sportshub/pkg/jwt"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*gin.Engine, *jwt.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	st.Seed(store.KindUsers,
		store.Record{"id": "u1", "username": "dona", "role": models.RoleTenantAdmin, "tenant_id": "t1", "status": models.UserStatusActive},
		store.Record{"id": "u2", "username": "root", "role": models.RolePlatformAdmin, "status": models.UserStatusActive},
		store.Record{"id": "u3", "username": "antiga", "role": models.RoleTenantAdmin, "tenant_id": "t1", "status": models.UserStatusInactive},
	)
	manager := jwt.NewJWTManager("middleware-secret", time.Hour)
	auth := NewAuthMiddleware(services.NewUserService(st, manager), manager)

	engine := gin.New()
	echo := func(c *gin.Context) {
		session, _ := GetSession(c)
		tenant, _ := session.ActiveTenant()
		response.Success(c, gin.H{"user_id": session.UserID, "tenant": tenant})
	}
	engine.GET("/me", auth.RequireLogin(), echo)
	engine.GET("/admin", auth.RequireLogin(), auth.RequirePlatformAdmin(), echo)
	engine.GET("/scoped", auth.RequireLogin(), auth.RequireActiveTenant(), echo)
	return engine, manager
}

func token(t *testing.T, manager *jwt.JWTManager, userID, role, tenantID string) string {
	t.Helper()
	tok, err := manager.GenerateToken(jwt.Identity{UserID: userID, Username: userID, Role: role, TenantID: tenantID})
	require.NoError(t, err)
	return tok
}

func call(t *testing.T, engine *gin.Engine, path, header string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code, body.Data
}

func TestRequireLogin(t *testing.T) {
	engine, manager := newTestEngine(t)
	valid := token(t, manager, "u1", models.RoleTenantAdmin, "t1")

	tests := []struct {
		name   string
		path   string
		header string
		code   int
	}{
		{name: "bearer header", path: "/me", header: "Bearer " + valid, code: 200},
		{name: "query token", path: "/me?token=" + valid, code: 200},
		{name: "missing token", path: "/me", code: 401},
		{name: "malformed header", path: "/me", header: "Token " + valid, code: 401},
		{name: "garbage token", path: "/me", header: "Bearer abc.def", code: 401},
		{name: "unknown user", path: "/me", header: "Bearer " + token(t, manager, "u9", models.RoleTenantAdmin, "t1"), code: 401},
		{name: "inactive user", path: "/me", header: "Bearer " + token(t, manager, "u3", models.RoleTenantAdmin, "t1"), code: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := call(t, engine, tt.path, tt.header)
			assert.Equal(t, tt.code, code)
			if tt.code == 200 {
				assert.Equal(t, "u1", data["user_id"])
				assert.Equal(t, "t1", data["tenant"])
			}
		})
	}
}

func TestRequirePlatformAdminAndActiveTenant(t *testing.T) {
	engine, manager := newTestEngine(t)
	tenantAdmin := "Bearer " + token(t, manager, "u1", models.RoleTenantAdmin, "t1")
	platformAdmin := "Bearer " + token(t, manager, "u2", models.RolePlatformAdmin, "")

	code, _ := call(t, engine, "/admin", tenantAdmin)
	assert.Equal(t, 403, code)

	code, _ = call(t, engine, "/admin", platformAdmin)
	assert.Equal(t, 200, code)

	code, _ = call(t, engine, "/scoped", tenantAdmin)
	assert.Equal(t, 200, code)

	// 平台管理员未代入租户
	code, _ = call(t, engine, "/scoped", platformAdmin)
	assert.Equal(t, 400, code)

	claims, err := manager.VerifyToken(platformAdmin[len("Bearer "):])
	require.NoError(t, err)
	impersonating, err := manager.GenerateImpersonationToken(claims, "t2")
	require.NoError(t, err)

	code, data := call(t, engine, "/scoped", "Bearer "+impersonating)
	assert.Equal(t, 200, code)
	assert.Equal(t, "t2", data["tenant"])
}
