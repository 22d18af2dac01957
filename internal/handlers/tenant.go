package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/pagination"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

// AssignPlanRequest 调整套餐请求
type AssignPlanRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{
		service: service,
	}
}

// Create 创建租户
func (h *TenantHandler) Create(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	snap, err := h.service.Create(c.Request.Context(), session, req)
	respondSnapshot(c, snap, err)
}

// GetAll 租户列表，支持按状态筛选、关键词搜索和分页
func (h *TenantHandler) GetAll(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	pageParams := pagination.ParsePageParams(c)

	tenants, pageInfo, err := h.service.ListTenants(c.Request.Context(), session, c.Query("status"), c.Query("keyword"), pageParams)
	if err != nil {
		response.FromError(c, err, nil)
		return
	}
	response.SuccessWithPage(c, tenants, pageInfo)
}

// GetStats 租户统计
func (h *TenantHandler) GetStats(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	stats, err := h.service.GetStats(c.Request.Context(), session)
	if err != nil {
		response.FromError(c, err, nil)
		return
	}
	response.Success(c, stats)
}

// ListPlans 套餐目录
func (h *TenantHandler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		response.FromError(c, err, nil)
		return
	}
	response.Success(c, plans)
}

// Update 更新租户
func (h *TenantHandler) Update(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	snap, err := h.service.Update(c.Request.Context(), session, c.Param("id"), req)
	respondSnapshot(c, snap, err)
}

// AssignPlan 调整租户套餐
func (h *TenantHandler) AssignPlan(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	snap, err := h.service.AssignPlan(c.Request.Context(), session, c.Param("id"), req.PlanID)
	respondSnapshot(c, snap, err)
}

// Activate 激活租户
func (h *TenantHandler) Activate(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	snap, err := h.service.Activate(c.Request.Context(), session, c.Param("id"))
	respondSnapshot(c, snap, err)
}

// Deactivate 停用租户
func (h *TenantHandler) Deactivate(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	snap, err := h.service.Deactivate(c.Request.Context(), session, c.Param("id"))
	respondSnapshot(c, snap, err)
}

// Delete 删除租户
func (h *TenantHandler) Delete(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	snap, err := h.service.Delete(c.Request.Context(), session, c.Param("id"))
	respondSnapshot(c, snap, err)
}
