package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/auctionmarket/internal/custody/domain"
	"github.com/wyfcoding/auctionmarket/pkg/idgen"
)

// CustodyService 处理账本账户的资金操作。
// 扮演竞拍市场所依赖的外部资产账本：余额校验、原子划转与流水记录都在这里完成。
type CustodyService struct {
	repo   domain.LedgerRepository
	logger *slog.Logger
}

func NewCustodyService(repo domain.LedgerRepository, logger *slog.Logger) *CustodyService {
	return &CustodyService{
		repo:   repo,
		logger: logger,
	}
}

// Deposit 外部入金：为（持有人，资产）账户增加余额，账户不存在时创建
func (s *CustodyService) Deposit(ctx context.Context, ownerID, asset string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		account, err := s.repo.GetForUpdate(txCtx, ownerID, asset)
		if err != nil {
			return err
		}
		if account == nil {
			account = &domain.LedgerAccount{
				OwnerID: ownerID,
				Asset:   asset,
				Balance: decimal.Zero,
			}
		}

		if err := account.Credit(amount); err != nil {
			return err
		}
		if err := s.repo.Save(txCtx, account); err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			EntryID:   fmt.Sprintf("TXN-%d", idgen.GenID()),
			FromOwner: domain.DepositSource,
			ToOwner:   ownerID,
			Asset:     asset,
			Amount:    amount,
			Reference: "deposit",
		}
		return s.repo.SaveEntry(txCtx, entry)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "ledger deposit completed",
		"owner_id", ownerID, "asset", asset, "amount", amount.String())
	return nil
}

// Transfer 原子划转：从 from 账户扣减并向 to 账户入账，余额不足时整体拒绝。
// 通过 context 加入外层事务时，整个划转随外层操作一起提交或回滚。
func (s *CustodyService) Transfer(ctx context.Context, fromOwner, toOwner, asset string, amount decimal.Decimal, reference string) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if fromOwner == toOwner {
		return domain.ErrSameAccount
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		from, err := s.repo.GetForUpdate(txCtx, fromOwner, asset)
		if err != nil {
			return err
		}
		if from == nil {
			return fmt.Errorf("%w: %s/%s", domain.ErrAccountNotFound, fromOwner, asset)
		}
		if err := from.Debit(amount); err != nil {
			return err
		}

		to, err := s.repo.GetForUpdate(txCtx, toOwner, asset)
		if err != nil {
			return err
		}
		if to == nil {
			to = &domain.LedgerAccount{
				OwnerID: toOwner,
				Asset:   asset,
				Balance: decimal.Zero,
			}
		}
		if err := to.Credit(amount); err != nil {
			return err
		}

		if err := s.repo.Save(txCtx, from); err != nil {
			return err
		}
		if err := s.repo.Save(txCtx, to); err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			EntryID:   fmt.Sprintf("TXN-%d", idgen.GenID()),
			FromOwner: fromOwner,
			ToOwner:   toOwner,
			Asset:     asset,
			Amount:    amount,
			Reference: reference,
		}
		return s.repo.SaveEntry(txCtx, entry)
	})
}

// GetBalance 查询（持有人，资产）余额，账户不存在时返回零
func (s *CustodyService) GetBalance(ctx context.Context, ownerID, asset string) (decimal.Decimal, error) {
	account, err := s.repo.Get(ctx, ownerID, asset)
	if err != nil {
		return decimal.Zero, err
	}
	if account == nil {
		return decimal.Zero, nil
	}
	return account.Balance, nil
}

// ListEntries 按持有人分页查询流水
func (s *CustodyService) ListEntries(ctx context.Context, ownerID string, limit, offset int) ([]*domain.LedgerEntry, int64, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.ListEntries(ctx, ownerID, limit, offset)
}
