package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Create 创建账号
func (h *UserHandler) Create(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.service.Create(c.Request.Context(), session, req)
	if err != nil {
		response.FromError(c, err, nil)
		return
	}
	response.Success(c, user)
}

// GetAll 账号列表，可按 tenant_id 过滤
func (h *UserHandler) GetAll(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	users, err := h.service.List(c.Request.Context(), session, c.Query("tenant_id"))
	if err != nil {
		response.FromError(c, err, nil)
		return
	}
	response.Success(c, users)
}

// GetByID 获取账号
func (h *UserHandler) GetByID(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	if !session.IsPlatformAdmin() && session.UserID != c.Param("id") {
		response.Forbidden(c, "无权限查看该账号")
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, nil)
		return
	}
	if user == nil {
		response.NotFound(c, "用户不存在")
		return
	}
	response.Success(c, user)
}
