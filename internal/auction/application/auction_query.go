package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	"github.com/wyfcoding/auctionmarket/internal/clock"
)

// AuctionQueryService 拍卖查询服务，只读操作。
type AuctionQueryService struct {
	repo   domain.AuctionRepository
	clock  clock.Clock
	logger *slog.Logger
}

// NewAuctionQueryService 创建拍卖查询服务
func NewAuctionQueryService(repo domain.AuctionRepository, clk clock.Clock, logger *slog.Logger) *AuctionQueryService {
	return &AuctionQueryService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

// GetAuction 按拍卖编号查询拍卖详情
func (s *AuctionQueryService) GetAuction(ctx context.Context, auctionID uint64) (*AuctionDTO, error) {
	auction, err := s.repo.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, domain.ErrNotFound
	}
	return toAuctionDTO(auction), nil
}

// GetCurrentPrice 查询拍卖的即时价格。
// 拍卖不存在返回 ErrNotFound，已终态返回 ErrNotActive。
func (s *AuctionQueryService) GetCurrentPrice(ctx context.Context, auctionID uint64) (*PriceDTO, error) {
	auction, err := s.repo.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, domain.ErrNotFound
	}

	now := s.clock.Now()
	price, err := domain.CurrentPrice(auction, now)
	if err != nil {
		return nil, err
	}
	elapsed := int64(now.Sub(auction.StartTime) / time.Second)
	return &PriceDTO{
		AuctionID: auction.AuctionID,
		Price:     price,
		Elapsed:   elapsed,
		AsOf:      now,
	}, nil
}

// ListAuctions 按状态分页查询拍卖列表，status 为空时查询全部
func (s *AuctionQueryService) ListAuctions(ctx context.Context, status domain.AuctionStatus, limit, offset int) ([]*AuctionDTO, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	auctions, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*AuctionDTO, 0, len(auctions))
	for _, a := range auctions {
		dtos = append(dtos, toAuctionDTO(a))
	}
	return dtos, total, nil
}
