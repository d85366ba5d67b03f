// Package application 实现拍卖服务的应用层，编排领域对象、托管账本与事件发布。
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
)

// CreateAuctionCommand 创建拍卖命令
type CreateAuctionCommand struct {
	Seller       string          `json:"seller" binding:"required"`
	Asset        string          `json:"asset" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	InitialPrice decimal.Decimal `json:"initial_price" binding:"required"`
	DecayRate    decimal.Decimal `json:"decay_rate" binding:"required"`
	Duration     int64           `json:"duration" binding:"required"`
}

// BuyCommand 买断拍卖命令
type BuyCommand struct {
	AuctionID uint64          `json:"auction_id"`
	Buyer     string          `json:"buyer" binding:"required"`
	Payment   decimal.Decimal `json:"payment" binding:"required"`
}

// CancelAuctionCommand 取消拍卖命令
type CancelAuctionCommand struct {
	AuctionID uint64 `json:"auction_id"`
	Caller    string `json:"caller" binding:"required"`
}

// AuctionDTO 拍卖传输对象
type AuctionDTO struct {
	AuctionID    uint64          `json:"auction_id"`
	Seller       string          `json:"seller"`
	Asset        string          `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	InitialPrice decimal.Decimal `json:"initial_price"`
	DecayRate    decimal.Decimal `json:"decay_rate"`
	StartTime    time.Time       `json:"start_time"`
	Duration     int64           `json:"duration"`
	Status       string          `json:"status"`
	Buyer        string          `json:"buyer,omitempty"`
	FinalPrice   decimal.Decimal `json:"final_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PriceDTO 即时价格传输对象
type PriceDTO struct {
	AuctionID uint64          `json:"auction_id"`
	Price     decimal.Decimal `json:"price"`
	Elapsed   int64           `json:"elapsed"`
	AsOf      time.Time       `json:"as_of"`
}

// SettlementDTO 成交结果传输对象
type SettlementDTO struct {
	AuctionID  uint64          `json:"auction_id"`
	Buyer      string          `json:"buyer"`
	Seller     string          `json:"seller"`
	Asset      string          `json:"asset"`
	Amount     decimal.Decimal `json:"amount"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Refund     decimal.Decimal `json:"refund"`
	SoldAt     time.Time       `json:"sold_at"`
}

// toAuctionDTO 将领域对象转换为传输对象
func toAuctionDTO(a *domain.Auction) *AuctionDTO {
	return &AuctionDTO{
		AuctionID:    a.AuctionID,
		Seller:       a.Seller,
		Asset:        a.Asset,
		Amount:       a.Amount,
		InitialPrice: a.InitialPrice,
		DecayRate:    a.DecayRate,
		StartTime:    a.StartTime,
		Duration:     a.Duration,
		Status:       a.Status.String(),
		Buyer:        a.Buyer,
		FinalPrice:   a.FinalPrice,
		CreatedAt:    a.CreatedAt,
	}
}
