package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service *services.NotificationIntentService
}

func NewNotificationHandler(service *services.NotificationIntentService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Dispatch 手动发送一类通知
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.service.Dispatch(c.Request.Context(), session, req)
	if err != nil {
		response.FromError(c, err, result.Snapshot)
		return
	}

	// 只有批量发送才给出汇总提示
	if result.Report.ShouldNotify() {
		response.SuccessWithNotice(c, result.Notice, result)
		return
	}
	response.Success(c, result)
}
