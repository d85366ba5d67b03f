package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionRepository 拍卖仓储接口，由基础设施层实现。
type AuctionRepository interface {
	// WithTx 在事务中执行函数；事务通过 context 传递，
	// 嵌套调用加入同一事务。
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Insert 持久化新拍卖并从序列分配 AuctionID（从 0 开始单调递增，永不复用）。
	// 序列耗尽时返回 ErrIDSpaceExhausted。
	Insert(ctx context.Context, auction *Auction) error
	// Get 按拍卖编号查询，不存在时返回 nil
	Get(ctx context.Context, auctionID uint64) (*Auction, error)
	// MarkSold 仅当拍卖处于进行中状态时将其置为已成交。
	// 不存在返回 ErrNotFound，状态不符返回 ErrNotActive。
	MarkSold(ctx context.Context, auctionID uint64, buyer string, price decimal.Decimal, at time.Time) error
	// MarkCancelled 仅当拍卖处于进行中状态时将其置为已取消。
	// 不存在返回 ErrNotFound，状态不符返回 ErrNotActive。
	MarkCancelled(ctx context.Context, auctionID uint64, at time.Time) error
	// List 按状态分页查询，status 为 0 时查询全部
	List(ctx context.Context, status AuctionStatus, limit, offset int) ([]*Auction, int64, error)
	// CountActive 统计进行中的拍卖数量
	CountActive(ctx context.Context) (int64, error)
}

// EscrowManager 托管资金划转接口。
// 所有划转在调用方事务内执行，失败时整个操作回滚。
type EscrowManager interface {
	// PullIn 将 owner 的资金划入托管账户
	PullIn(ctx context.Context, owner, asset string, amount decimal.Decimal, reference string) error
	// Payout 将托管账户的资金划出给 owner
	Payout(ctx context.Context, owner, asset string, amount decimal.Decimal, reference string) error
	// RefundExcess 将多付的报价资产从托管账户退回给 owner；amount 为零时不执行
	RefundExcess(ctx context.Context, owner, asset string, amount decimal.Decimal, reference string) error
}
