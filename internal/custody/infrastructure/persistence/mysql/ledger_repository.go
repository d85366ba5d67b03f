// Package mysql 提供了账本仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/auctionmarket/internal/custody/domain"
	pkgdb "github.com/wyfcoding/auctionmarket/pkg/db"
	"github.com/wyfcoding/auctionmarket/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ledgerRepositoryImpl 是 domain.LedgerRepository 接口的 GORM 实现。
type ledgerRepositoryImpl struct {
	db *gorm.DB
}

// NewLedgerRepository 创建账本仓储实例
func NewLedgerRepository(db *gorm.DB) domain.LedgerRepository {
	return &ledgerRepositoryImpl{db: db}
}

// WithTx 实现 domain.LedgerRepository.WithTx
// 已处于事务 context 时加入该事务（嵌套时使用 SavePoint），否则开启新事务。
func (r *ledgerRepositoryImpl) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	conn := pkgdb.TxFromContext(ctx, r.db)
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(pkgdb.WithTx(ctx, tx))
	})
}

// GetForUpdate 实现 domain.LedgerRepository.GetForUpdate
func (r *ledgerRepositoryImpl) GetForUpdate(ctx context.Context, ownerID, asset string) (*domain.LedgerAccount, error) {
	conn := pkgdb.TxFromContext(ctx, r.db)

	var account domain.LedgerAccount
	err := conn.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ? AND asset = ?", ownerID, asset).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "ledger_repository.GetForUpdate failed", "owner_id", ownerID, "asset", asset, "error", err)
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}
	return &account, nil
}

// Get 实现 domain.LedgerRepository.Get
func (r *ledgerRepositoryImpl) Get(ctx context.Context, ownerID, asset string) (*domain.LedgerAccount, error) {
	conn := pkgdb.TxFromContext(ctx, r.db)

	var account domain.LedgerAccount
	err := conn.WithContext(ctx).
		Where("owner_id = ? AND asset = ?", ownerID, asset).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "ledger_repository.Get failed", "owner_id", ownerID, "asset", asset, "error", err)
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}
	return &account, nil
}

// Save 实现 domain.LedgerRepository.Save
func (r *ledgerRepositoryImpl) Save(ctx context.Context, account *domain.LedgerAccount) error {
	conn := pkgdb.TxFromContext(ctx, r.db)

	err := conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(account).Error
	if err != nil {
		logger.Error(ctx, "ledger_repository.Save failed", "owner_id", account.OwnerID, "asset", account.Asset, "error", err)
		return fmt.Errorf("failed to save ledger account: %w", err)
	}
	return nil
}

// SaveEntry 实现 domain.LedgerRepository.SaveEntry
func (r *ledgerRepositoryImpl) SaveEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	conn := pkgdb.TxFromContext(ctx, r.db)

	if err := conn.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Error(ctx, "ledger_repository.SaveEntry failed", "entry_id", entry.EntryID, "error", err)
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}
	return nil
}

// ListEntries 实现 domain.LedgerRepository.ListEntries
func (r *ledgerRepositoryImpl) ListEntries(ctx context.Context, ownerID string, limit, offset int) ([]*domain.LedgerEntry, int64, error) {
	conn := pkgdb.TxFromContext(ctx, r.db)

	var entries []*domain.LedgerEntry
	var total int64
	query := conn.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("from_owner = ? OR to_owner = ?", ownerID, ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id desc").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		logger.Error(ctx, "ledger_repository.ListEntries failed", "owner_id", ownerID, "error", err)
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, total, nil
}
