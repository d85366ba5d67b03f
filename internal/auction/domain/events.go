package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 领域事件类型
const (
	EventTypeAuctionCreated   = "auction.created"
	EventTypeAuctionFinalized = "auction.finalized"
	EventTypeAuctionCancelled = "auction.cancelled"
)

// AuctionCreatedEvent 拍卖创建事件
type AuctionCreatedEvent struct {
	AuctionID    uint64          `json:"auction_id"`
	Seller       string          `json:"seller"`
	Asset        string          `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	InitialPrice decimal.Decimal `json:"initial_price"`
	DecayRate    decimal.Decimal `json:"decay_rate"`
	StartTime    time.Time       `json:"start_time"`
	Duration     int64           `json:"duration"`
}

// AuctionFinalizedEvent 拍卖成交事件
type AuctionFinalizedEvent struct {
	AuctionID  uint64          `json:"auction_id"`
	Seller     string          `json:"seller"`
	Buyer      string          `json:"buyer"`
	Asset      string          `json:"asset"`
	Amount     decimal.Decimal `json:"amount"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Refund     decimal.Decimal `json:"refund"`
	SoldAt     time.Time       `json:"sold_at"`
}

// AuctionCancelledEvent 拍卖取消事件
type AuctionCancelledEvent struct {
	AuctionID   uint64          `json:"auction_id"`
	Seller      string          `json:"seller"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	CancelledAt time.Time       `json:"cancelled_at"`
}

// EventPublisher 领域事件发布接口。
// 实现应保证事件发布与调用方事务的原子性（如 outbox 模式）。
type EventPublisher interface {
	// Publish 发布一个领域事件，key 用于分区路由
	Publish(ctx context.Context, eventType, key string, payload any) error
}
