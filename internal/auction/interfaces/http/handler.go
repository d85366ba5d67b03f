// Package http 提供拍卖服务的 HTTP 接口。
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/auctionmarket/internal/auction/application"
	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	"github.com/wyfcoding/auctionmarket/pkg/response"
)

// AuctionHandler 拍卖 HTTP 处理器
type AuctionHandler struct {
	service *application.AuctionService
}

// NewAuctionHandler 创建拍卖处理器
func NewAuctionHandler(service *application.AuctionService) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *AuctionHandler) RegisterRoutes(router *gin.RouterGroup) {
	auctions := router.Group("/auctions")
	{
		auctions.POST("", h.CreateAuction)
		auctions.GET("", h.ListAuctions)
		auctions.GET("/:id", h.GetAuction)
		auctions.GET("/:id/price", h.GetCurrentPrice)
		auctions.POST("/:id/buy", h.Buy)
		auctions.POST("/:id/cancel", h.CancelAuction)
	}
}

// CreateAuction 创建拍卖
// POST /api/v1/auctions
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	var cmd application.CreateAuctionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	dto, err := h.service.CreateAuction(c.Request.Context(), &cmd)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, dto)
}

// GetAuction 查询拍卖详情
// GET /api/v1/auctions/:id
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	id, ok := h.parseAuctionID(c)
	if !ok {
		return
	}
	dto, err := h.service.GetAuction(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, dto)
}

// GetCurrentPrice 查询即时价格
// GET /api/v1/auctions/:id/price
func (h *AuctionHandler) GetCurrentPrice(c *gin.Context) {
	id, ok := h.parseAuctionID(c)
	if !ok {
		return
	}
	dto, err := h.service.GetCurrentPrice(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, dto)
}

// Buy 以当前价格买断拍卖
// POST /api/v1/auctions/:id/buy
func (h *AuctionHandler) Buy(c *gin.Context) {
	id, ok := h.parseAuctionID(c)
	if !ok {
		return
	}
	var cmd application.BuyCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	cmd.AuctionID = id

	dto, err := h.service.Buy(c.Request.Context(), &cmd)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, dto)
}

// CancelAuction 卖方取消拍卖
// POST /api/v1/auctions/:id/cancel
func (h *AuctionHandler) CancelAuction(c *gin.Context) {
	id, ok := h.parseAuctionID(c)
	if !ok {
		return
	}
	var cmd application.CancelAuctionCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	cmd.AuctionID = id

	dto, err := h.service.CancelAuction(c.Request.Context(), &cmd)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, dto)
}

// ListAuctions 分页查询拍卖列表
// GET /api/v1/auctions?status=ACTIVE&limit=20&offset=0
func (h *AuctionHandler) ListAuctions(c *gin.Context) {
	status, ok := parseStatus(c.Query("status"))
	if !ok {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid status", c.Query("status"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	dtos, total, err := h.service.ListAuctions(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{
		"items": dtos,
		"total": total,
	})
}

func (h *AuctionHandler) parseAuctionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid auction id", c.Param("id"))
		return 0, false
	}
	return id, true
}

func parseStatus(s string) (domain.AuctionStatus, bool) {
	switch s {
	case "":
		return 0, true
	case "ACTIVE":
		return domain.StatusActive, true
	case "SOLD":
		return domain.StatusSold, true
	case "CANCELLED":
		return domain.StatusCancelled, true
	default:
		return 0, false
	}
}

// renderError 将领域错误映射为 HTTP 状态码
func (h *AuctionHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "auction not found", err.Error())
	case errors.Is(err, domain.ErrNotActive):
		response.ErrorWithStatus(c, http.StatusConflict, "auction is not active", err.Error())
	case errors.Is(err, domain.ErrAuctionExpired):
		response.ErrorWithStatus(c, http.StatusGone, "auction has expired", err.Error())
	case errors.Is(err, domain.ErrInsufficientPayment):
		response.ErrorWithStatus(c, http.StatusPaymentRequired, "payment below current price", err.Error())
	case errors.Is(err, domain.ErrNotSeller):
		response.ErrorWithStatus(c, http.StatusForbidden, "only the seller may cancel", err.Error())
	case errors.Is(err, domain.ErrTransferRejected):
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, "escrow transfer rejected", err.Error())
	case errors.Is(err, domain.ErrClockBeforeStart):
		response.ErrorWithStatus(c, http.StatusConflict, "auction has not started", err.Error())
	case errors.Is(err, domain.ErrInvalidInitialPrice),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrInvalidDecayRate),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrPriceWouldReachZero):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid auction parameters", err.Error())
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
