package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

type MemberHandler struct {
	service *services.MemberService
}

func NewMemberHandler(service *services.MemberService) *MemberHandler {
	return &MemberHandler{service: service}
}

// Create 新增会员
func (h *MemberHandler) Create(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.AddMember(c.Request.Context(), session, req)
	respondSnapshot(c, snap, err)
}

// Update 修改会员
func (h *MemberHandler) Update(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.UpdateMember(c.Request.Context(), session, c.Param("id"), req)
	respondSnapshot(c, snap, err)
}

// Delete 删除会员
func (h *MemberHandler) Delete(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	snap, err := h.service.DeleteMember(c.Request.Context(), session, c.Param("id"))
	respondSnapshot(c, snap, err)
}
