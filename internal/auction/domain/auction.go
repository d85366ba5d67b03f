// Package domain 定义了荷兰式拍卖的核心领域模型。
// 卖方托管一笔资产并设定起始价格，价格随时间线性下降，
// 买方以当前价格买断全部资产，或由卖方在成交前取消。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuctionStatus 拍卖状态
type AuctionStatus int8

const (
	// StatusActive 进行中：可成交、可取消
	StatusActive AuctionStatus = 1
	// StatusSold 已成交：终态
	StatusSold AuctionStatus = 2
	// StatusCancelled 已取消：终态
	StatusCancelled AuctionStatus = 3
)

// String 返回状态的字符串表示
func (s AuctionStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusSold:
		return "SOLD"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Auction 拍卖聚合根。
// 价格按 InitialPrice - DecayRate * elapsedSeconds 线性衰减，下限为零。
type Auction struct {
	gorm.Model
	AuctionID    uint64          `gorm:"uniqueIndex;not null;comment:拍卖编号，单调递增不复用" json:"auction_id"`
	Seller       string          `gorm:"type:varchar(64);index;not null;comment:卖方账户" json:"seller"`
	Asset        string          `gorm:"type:varchar(32);not null;comment:拍卖资产代码" json:"asset"`
	Amount       decimal.Decimal `gorm:"type:decimal(32,18);not null;comment:托管的资产数量" json:"amount"`
	InitialPrice decimal.Decimal `gorm:"type:decimal(32,18);not null;comment:起始价格" json:"initial_price"`
	DecayRate    decimal.Decimal `gorm:"type:decimal(32,18);not null;comment:每秒衰减额" json:"decay_rate"`
	StartTime    time.Time       `gorm:"not null;comment:开始时间" json:"start_time"`
	Duration     int64           `gorm:"not null;comment:持续时间（秒）" json:"duration"`
	Status       AuctionStatus   `gorm:"type:tinyint;index;not null;comment:状态 1:进行中 2:已成交 3:已取消" json:"status"`
	Buyer        string          `gorm:"type:varchar(64);comment:买方账户，成交后填写" json:"buyer,omitempty"`
	FinalPrice   decimal.Decimal `gorm:"type:decimal(32,18);comment:成交价格" json:"final_price"`
	SoldAt       *time.Time      `gorm:"comment:成交时间" json:"sold_at,omitempty"`
	CancelledAt  *time.Time      `gorm:"comment:取消时间" json:"cancelled_at,omitempty"`
}

// TableName 指定表名
func (Auction) TableName() string {
	return "auctions"
}

// NewAuction 校验参数并构造一个进行中的拍卖。
// 校验顺序：起始价格、持续时间、衰减速率、数量，最后检查价格不会在
// 持续时间结束前衰减到零（要求 InitialPrice > Duration * DecayRate）。
func NewAuction(seller, asset string, amount, initialPrice, decayRate decimal.Decimal, startTime time.Time, duration int64) (*Auction, error) {
	if !initialPrice.IsPositive() {
		return nil, ErrInvalidInitialPrice
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if !decayRate.IsPositive() {
		return nil, ErrInvalidDecayRate
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	totalDecay := decayRate.Mul(decimal.NewFromInt(duration))
	if initialPrice.LessThanOrEqual(totalDecay) {
		return nil, ErrPriceWouldReachZero
	}
	return &Auction{
		Seller:       seller,
		Asset:        asset,
		Amount:       amount,
		InitialPrice: initialPrice,
		DecayRate:    decayRate,
		StartTime:    startTime,
		Duration:     duration,
		Status:       StatusActive,
	}, nil
}

// IsActive 是否处于进行中状态
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// EndTime 返回拍卖的结束时间
func (a *Auction) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.Duration) * time.Second)
}

// MarkSold 将拍卖标记为已成交。只允许从进行中状态迁移。
func (a *Auction) MarkSold(buyer string, price decimal.Decimal, at time.Time) error {
	if !a.IsActive() {
		return ErrNotActive
	}
	a.Status = StatusSold
	a.Buyer = buyer
	a.FinalPrice = price
	a.SoldAt = &at
	return nil
}

// MarkCancelled 将拍卖标记为已取消。只允许从进行中状态迁移。
func (a *Auction) MarkCancelled(at time.Time) error {
	if !a.IsActive() {
		return ErrNotActive
	}
	a.Status = StatusCancelled
	a.CancelledAt = &at
	return nil
}
