package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	service *services.LeadService
}

func NewLeadHandler(service *services.LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// Create 新增线索
func (h *LeadHandler) Create(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.AddLead(c.Request.Context(), session, req)
	respondSnapshot(c, snap, err)
}

// Update 修改线索
func (h *LeadHandler) Update(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.UpdateLead(c.Request.Context(), session, c.Param("id"), req)
	respondSnapshot(c, snap, err)
}

// Advance 漏斗推进
func (h *LeadHandler) Advance(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.AdvanceLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.AdvanceLead(c.Request.Context(), session, c.Param("id"), req)
	respondSnapshot(c, snap, err)
}

// Delete 删除线索
func (h *LeadHandler) Delete(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	snap, err := h.service.DeleteLead(c.Request.Context(), session, c.Param("id"))
	respondSnapshot(c, snap, err)
}
