// Package http 提供托管账本服务的 HTTP 接口。
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/auctionmarket/internal/custody/application"
	"github.com/wyfcoding/auctionmarket/internal/custody/domain"
	"github.com/wyfcoding/auctionmarket/pkg/response"
)

// CustodyHandler 托管账本 HTTP 处理器
type CustodyHandler struct {
	service *application.CustodyService
}

// NewCustodyHandler 创建托管账本处理器
func NewCustodyHandler(service *application.CustodyService) *CustodyHandler {
	return &CustodyHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *CustodyHandler) RegisterRoutes(router *gin.RouterGroup) {
	accounts := router.Group("/accounts")
	{
		accounts.POST("/deposit", h.Deposit)
		accounts.GET("/:owner/balance", h.GetBalance)
		accounts.GET("/:owner/entries", h.ListEntries)
	}
}

// DepositRequest 入金请求
type DepositRequest struct {
	OwnerID string          `json:"owner_id" binding:"required"`
	Asset   string          `json:"asset" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

// Deposit 向账户入金
// POST /api/v1/accounts/deposit
func (h *CustodyHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.service.Deposit(c.Request.Context(), req.OwnerID, req.Asset, req.Amount); err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{
		"owner_id": req.OwnerID,
		"asset":    req.Asset,
		"amount":   req.Amount,
	})
}

// GetBalance 查询账户余额
// GET /api/v1/accounts/:owner/balance?asset=USD
func (h *CustodyHandler) GetBalance(c *gin.Context) {
	owner := c.Param("owner")
	asset := c.Query("asset")
	if asset == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "asset is required", "")
		return
	}

	balance, err := h.service.GetBalance(c.Request.Context(), owner, asset)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{
		"owner_id": owner,
		"asset":    asset,
		"balance":  balance,
	})
}

// ListEntries 分页查询账户流水
// GET /api/v1/accounts/:owner/entries?limit=50&offset=0
func (h *CustodyHandler) ListEntries(c *gin.Context) {
	owner := c.Param("owner")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, total, err := h.service.ListEntries(c.Request.Context(), owner, limit, offset)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{
		"items": entries,
		"total": total,
	})
}

// renderError 将领域错误映射为 HTTP 状态码
func (h *CustodyHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrSameAccount):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid transfer parameters", err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "account not found", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, "insufficient balance", err.Error())
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
