// Package mysql 提供拍卖仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	pkgdb "github.com/wyfcoding/auctionmarket/pkg/db"
	"github.com/wyfcoding/auctionmarket/pkg/logger"
)

// AuctionSequence 拍卖编号序列表。
// NextID 记录下一个待分配的编号，从 0 开始单调递增，取消或成交后不回收。
type AuctionSequence struct {
	ID     uint   `gorm:"primarykey"`
	Name   string `gorm:"type:varchar(32);uniqueIndex;not null"`
	NextID uint64 `gorm:"not null"`
}

// TableName 指定表名
func (AuctionSequence) TableName() string {
	return "auction_sequences"
}

const auctionSequenceName = "auction_id"

// auctionRepositoryImpl 是 domain.AuctionRepository 接口的 GORM 实现。
type auctionRepositoryImpl struct {
	db *gorm.DB
}

// NewAuctionRepository 创建拍卖仓储实例
func NewAuctionRepository(db *gorm.DB) domain.AuctionRepository {
	return &auctionRepositoryImpl{db: db}
}

// WithTx 实现 domain.AuctionRepository.WithTx
func (r *auctionRepositoryImpl) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	conn := pkgdb.TxFromContext(ctx, r.db)
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(pkgdb.WithTx(ctx, tx))
	})
}

// Insert 实现 domain.AuctionRepository.Insert。
// 从序列表加锁取号后写入拍卖记录，两步在同一事务中。
func (r *auctionRepositoryImpl) Insert(ctx context.Context, auction *domain.Auction) error {
	conn := pkgdb.TxFromContext(ctx, r.db)
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextAuctionID(tx)
		if err != nil {
			return err
		}
		auction.AuctionID = id
		if err := tx.Create(auction).Error; err != nil {
			logger.Error(ctx, "auction_repository.Insert failed", "auction_id", id, "error", err)
			return fmt.Errorf("failed to insert auction: %w", err)
		}
		return nil
	})
}

// nextAuctionID 加锁读取并自增序列，返回分配到的编号。
// 序列行不存在时初始化为 0。
func nextAuctionID(tx *gorm.DB) (uint64, error) {
	var seq AuctionSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", auctionSequenceName).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = AuctionSequence{Name: auctionSequenceName, NextID: 0}
		if err := tx.Create(&seq).Error; err != nil {
			return 0, fmt.Errorf("failed to init auction sequence: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("failed to lock auction sequence: %w", err)
	}

	if seq.NextID == math.MaxUint64 {
		return 0, domain.ErrIDSpaceExhausted
	}
	id := seq.NextID
	if err := tx.Model(&AuctionSequence{}).
		Where("name = ?", auctionSequenceName).
		Update("next_id", id+1).Error; err != nil {
		return 0, fmt.Errorf("failed to advance auction sequence: %w", err)
	}
	return id, nil
}

// Get 实现 domain.AuctionRepository.Get
func (r *auctionRepositoryImpl) Get(ctx context.Context, auctionID uint64) (*domain.Auction, error) {
	conn := pkgdb.TxFromContext(ctx, r.db)

	var auction domain.Auction
	err := conn.WithContext(ctx).Where("auction_id = ?", auctionID).First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "auction_repository.Get failed", "auction_id", auctionID, "error", err)
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return &auction, nil
}

// MarkSold 实现 domain.AuctionRepository.MarkSold。
// 条件更新只命中进行中的记录，0 行受影响时区分不存在与状态不符。
func (r *auctionRepositoryImpl) MarkSold(ctx context.Context, auctionID uint64, buyer string, price decimal.Decimal, at time.Time) error {
	conn := pkgdb.TxFromContext(ctx, r.db)

	result := conn.WithContext(ctx).Model(&domain.Auction{}).
		Where("auction_id = ? AND status = ?", auctionID, domain.StatusActive).
		Updates(map[string]any{
			"status":      domain.StatusSold,
			"buyer":       buyer,
			"final_price": price,
			"sold_at":     at,
		})
	if result.Error != nil {
		logger.Error(ctx, "auction_repository.MarkSold failed", "auction_id", auctionID, "error", result.Error)
		return fmt.Errorf("failed to mark auction sold: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyMiss(ctx, auctionID)
	}
	return nil
}

// MarkCancelled 实现 domain.AuctionRepository.MarkCancelled
func (r *auctionRepositoryImpl) MarkCancelled(ctx context.Context, auctionID uint64, at time.Time) error {
	conn := pkgdb.TxFromContext(ctx, r.db)

	result := conn.WithContext(ctx).Model(&domain.Auction{}).
		Where("auction_id = ? AND status = ?", auctionID, domain.StatusActive).
		Updates(map[string]any{
			"status":       domain.StatusCancelled,
			"cancelled_at": at,
		})
	if result.Error != nil {
		logger.Error(ctx, "auction_repository.MarkCancelled failed", "auction_id", auctionID, "error", result.Error)
		return fmt.Errorf("failed to mark auction cancelled: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyMiss(ctx, auctionID)
	}
	return nil
}

// classifyMiss 条件更新未命中时区分拍卖不存在与状态不符
func (r *auctionRepositoryImpl) classifyMiss(ctx context.Context, auctionID uint64) error {
	existing, err := r.Get(ctx, auctionID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return domain.ErrNotActive
}

// List 实现 domain.AuctionRepository.List
func (r *auctionRepositoryImpl) List(ctx context.Context, status domain.AuctionStatus, limit, offset int) ([]*domain.Auction, int64, error) {
	conn := pkgdb.TxFromContext(ctx, r.db)

	query := conn.WithContext(ctx).Model(&domain.Auction{})
	if status != 0 {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var auctions []*domain.Auction
	if err := query.Order("auction_id desc").Limit(limit).Offset(offset).Find(&auctions).Error; err != nil {
		logger.Error(ctx, "auction_repository.List failed", "status", status, "error", err)
		return nil, 0, fmt.Errorf("failed to list auctions: %w", err)
	}
	return auctions, total, nil
}

// CountActive 实现 domain.AuctionRepository.CountActive
func (r *auctionRepositoryImpl) CountActive(ctx context.Context) (int64, error) {
	conn := pkgdb.TxFromContext(ctx, r.db)

	var count int64
	err := conn.WithContext(ctx).Model(&domain.Auction{}).
		Where("status = ?", domain.StatusActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active auctions: %w", err)
	}
	return count, nil
}
