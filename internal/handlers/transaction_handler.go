package handlers

import (
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	service *services.TransactionService
}

func NewTransactionHandler(service *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// Create 新增账单
func (h *TransactionHandler) Create(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.AddTransaction(c.Request.Context(), session, req)
	respondSnapshot(c, snap, err)
}

// Update 修改账单
func (h *TransactionHandler) Update(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	snap, err := h.service.UpdateTransaction(c.Request.Context(), session, c.Param("id"), req)
	respondSnapshot(c, snap, err)
}

// Pay 标记已缴，请求体可以为空
func (h *TransactionHandler) Pay(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.PayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "请求参数错误: "+err.Error())
			return
		}
	}

	snap, err := h.service.MarkPaid(c.Request.Context(), session, c.Param("id"), req)
	respondSnapshot(c, snap, err)
}

// Delete 删除账单
func (h *TransactionHandler) Delete(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	snap, err := h.service.DeleteTransaction(c.Request.Context(), session, c.Param("id"))
	respondSnapshot(c, snap, err)
}
