package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

// ConfigHandler 租户配置、消息模板、功能开关
type ConfigHandler struct {
	service *services.ConfigService
}

func NewConfigHandler(service *services.ConfigService) *ConfigHandler {
	return &ConfigHandler{service: service}
}

// UpdateConfig 保存类别、队伍、校区和月费套餐
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.TenantConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.UpdateTenantConfig(c.Request.Context(), session, req)
	respondSnapshot(c, snap, err)
}

// UpsertTemplate 保存消息模板
func (h *ConfigHandler) UpsertTemplate(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.UpsertTemplate(c.Request.Context(), session, req)
	respondSnapshot(c, snap, err)
}

// UpdateProfile 租户管理员修改本租户资料
func (h *ConfigHandler) UpdateProfile(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.TenantProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.UpdateTenantProfile(c.Request.Context(), session, req)
	respondSnapshot(c, snap, err)
}

// SetFeatureFlag 平台管理员开关功能模块
func (h *ConfigHandler) SetFeatureFlag(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.FeatureFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.SetFeatureFlag(c.Request.Context(), session, c.Param("key"), req)
	respondSnapshot(c, snap, err)
}
