// Package adapter 提供拍卖上下文对外部上下文的适配器。
package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	custodyapp "github.com/wyfcoding/auctionmarket/internal/custody/application"
)

// EscrowAdapter 实现 domain.EscrowManager，将托管划转委托给托管账本服务。
// 底层 Transfer 通过 context 加入调用方事务，账本拒绝时包装为 ErrTransferRejected。
type EscrowAdapter struct {
	custody       *custodyapp.CustodyService
	escrowAccount string
	logger        *slog.Logger
}

// NewEscrowAdapter 创建托管适配器
func NewEscrowAdapter(custody *custodyapp.CustodyService, escrowAccount string, logger *slog.Logger) *EscrowAdapter {
	return &EscrowAdapter{
		custody:       custody,
		escrowAccount: escrowAccount,
		logger:        logger,
	}
}

// PullIn 实现 domain.EscrowManager.PullIn
func (e *EscrowAdapter) PullIn(ctx context.Context, owner, asset string, amount decimal.Decimal, reference string) error {
	if err := e.custody.Transfer(ctx, owner, e.escrowAccount, asset, amount, reference); err != nil {
		e.logger.WarnContext(ctx, "escrow pull-in rejected",
			"owner", owner, "asset", asset, "amount", amount.String(), "reference", reference, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrTransferRejected, err)
	}
	return nil
}

// Payout 实现 domain.EscrowManager.Payout
func (e *EscrowAdapter) Payout(ctx context.Context, owner, asset string, amount decimal.Decimal, reference string) error {
	if err := e.custody.Transfer(ctx, e.escrowAccount, owner, asset, amount, reference); err != nil {
		// 状态已翻转后的划转失败会随事务一并回滚，这里保留标记便于人工核对
		e.logger.ErrorContext(ctx, "escrow payout rejected, transaction will roll back",
			"owner", owner, "asset", asset, "amount", amount.String(), "reference", reference,
			"manual_reconciliation", true, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrTransferRejected, err)
	}
	return nil
}

// RefundExcess 实现 domain.EscrowManager.RefundExcess。金额为零时不产生划转。
func (e *EscrowAdapter) RefundExcess(ctx context.Context, owner, asset string, amount decimal.Decimal, reference string) error {
	if amount.IsZero() {
		return nil
	}
	return e.Payout(ctx, owner, asset, amount, reference)
}

var _ domain.EscrowManager = (*EscrowAdapter)(nil)
