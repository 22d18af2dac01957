package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	service *services.BillingService
}

func NewBillingHandler(service *services.BillingService) *BillingHandler {
	return &BillingHandler{service: service}
}

// Generate 为当前租户生成一个账期的月费账单
func (h *BillingHandler) Generate(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.GenerateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.service.GenerateCycle(c.Request.Context(), session, req)
	if err != nil {
		response.FromError(c, err, result.Snapshot)
		return
	}
	response.SuccessWithMessage(c, "账单生成成功", result)
}
