package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	"github.com/wyfcoding/auctionmarket/internal/clock"
	"github.com/wyfcoding/auctionmarket/pkg/metrics"
)

// AuctionCommandService 拍卖命令服务，处理创建、买断与取消。
// 每个操作在单个仓储事务中完成状态变更、托管划转与事件写入。
type AuctionCommandService struct {
	repo      domain.AuctionRepository
	escrow    domain.EscrowManager
	publisher domain.EventPublisher
	clock     clock.Clock
	quote     string // 报价资产代码，买方以该资产支付
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAuctionCommandService 创建拍卖命令服务
func NewAuctionCommandService(
	repo domain.AuctionRepository,
	escrow domain.EscrowManager,
	publisher domain.EventPublisher,
	clk clock.Clock,
	quoteCurrency string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuctionCommandService {
	return &AuctionCommandService{
		repo:      repo,
		escrow:    escrow,
		publisher: publisher,
		clock:     clk,
		quote:     quoteCurrency,
		metrics:   m,
		logger:    logger,
	}
}

// CreateAuction 创建拍卖并托管卖方资产。
// 参数校验失败时不产生任何副作用；持久化与托管划转在同一事务中，
// 任一步失败则整体回滚。
func (s *AuctionCommandService) CreateAuction(ctx context.Context, cmd *CreateAuctionCommand) (*AuctionDTO, error) {
	now := s.clock.Now()
	auction, err := domain.NewAuction(cmd.Seller, cmd.Asset, cmd.Amount, cmd.InitialPrice, cmd.DecayRate, now, cmd.Duration)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Insert(txCtx, auction); err != nil {
			return err
		}
		ref := fmt.Sprintf("AUC-%d-escrow", auction.AuctionID)
		if err := s.escrow.PullIn(txCtx, auction.Seller, auction.Asset, auction.Amount, ref); err != nil {
			return err
		}
		return s.publisher.Publish(txCtx, domain.EventTypeAuctionCreated, fmt.Sprintf("%d", auction.AuctionID), &domain.AuctionCreatedEvent{
			AuctionID:    auction.AuctionID,
			Seller:       auction.Seller,
			Asset:        auction.Asset,
			Amount:       auction.Amount,
			InitialPrice: auction.InitialPrice,
			DecayRate:    auction.DecayRate,
			StartTime:    auction.StartTime,
			Duration:     auction.Duration,
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create auction",
			"seller", cmd.Seller, "asset", cmd.Asset, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AuctionsCreatedTotal.Inc()
		s.metrics.AuctionsActive.Inc()
	}
	s.logger.InfoContext(ctx, "auction created",
		"auction_id", auction.AuctionID,
		"seller", auction.Seller,
		"asset", auction.Asset,
		"amount", auction.Amount.String(),
		"initial_price", auction.InitialPrice.String(),
		"duration", auction.Duration)
	return toAuctionDTO(auction), nil
}

// Buy 以当前价格买断全部拍卖资产。
// 结算顺序：从买方划入支付金额 -> 状态置为已成交 -> 向买方交付资产
// -> 向卖方支付成交价 -> 退还多付部分。状态翻转使用条件更新，
// 并发买断时只有一方成功，另一方收到 ErrNotActive。
func (s *AuctionCommandService) Buy(ctx context.Context, cmd *BuyCommand) (*SettlementDTO, error) {
	now := s.clock.Now()
	var settlement *SettlementDTO

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		auction, err := s.repo.Get(txCtx, cmd.AuctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return domain.ErrNotFound
		}
		if !auction.IsActive() {
			return domain.ErrNotActive
		}
		price, err := domain.CurrentPrice(auction, now)
		if err != nil {
			return err
		}
		if price.IsZero() {
			return domain.ErrAuctionExpired
		}
		if cmd.Payment.LessThan(price) {
			return domain.ErrInsufficientPayment
		}

		ref := fmt.Sprintf("AUC-%d-settle", auction.AuctionID)
		if err := s.escrow.PullIn(txCtx, cmd.Buyer, s.quote, cmd.Payment, ref); err != nil {
			return err
		}
		if err := s.repo.MarkSold(txCtx, auction.AuctionID, cmd.Buyer, price, now); err != nil {
			return err
		}
		if err := s.escrow.Payout(txCtx, cmd.Buyer, auction.Asset, auction.Amount, ref); err != nil {
			return err
		}
		if err := s.escrow.Payout(txCtx, auction.Seller, s.quote, price, ref); err != nil {
			return err
		}
		refund := cmd.Payment.Sub(price)
		if err := s.escrow.RefundExcess(txCtx, cmd.Buyer, s.quote, refund, ref); err != nil {
			return err
		}

		settlement = &SettlementDTO{
			AuctionID:  auction.AuctionID,
			Buyer:      cmd.Buyer,
			Seller:     auction.Seller,
			Asset:      auction.Asset,
			Amount:     auction.Amount,
			FinalPrice: price,
			Refund:     refund,
			SoldAt:     now,
		}
		return s.publisher.Publish(txCtx, domain.EventTypeAuctionFinalized, fmt.Sprintf("%d", auction.AuctionID), &domain.AuctionFinalizedEvent{
			AuctionID:  auction.AuctionID,
			Seller:     auction.Seller,
			Buyer:      cmd.Buyer,
			Asset:      auction.Asset,
			Amount:     auction.Amount,
			FinalPrice: price,
			Refund:     refund,
			SoldAt:     now,
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to buy auction",
			"auction_id", cmd.AuctionID, "buyer", cmd.Buyer, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SettlementsTotal.Inc()
		s.metrics.AuctionsActive.Dec()
		v, _ := settlement.FinalPrice.Float64()
		s.metrics.SettlementValue.Observe(v)
	}
	s.logger.InfoContext(ctx, "auction settled",
		"auction_id", settlement.AuctionID,
		"buyer", settlement.Buyer,
		"seller", settlement.Seller,
		"final_price", settlement.FinalPrice.String(),
		"refund", settlement.Refund.String())
	return settlement, nil
}

// CancelAuction 卖方取消进行中的拍卖并取回托管资产。
// 仅卖方本人可取消；状态翻转同样使用条件更新防止与买断并发冲突。
func (s *AuctionCommandService) CancelAuction(ctx context.Context, cmd *CancelAuctionCommand) (*AuctionDTO, error) {
	now := s.clock.Now()
	var cancelled *domain.Auction

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		auction, err := s.repo.Get(txCtx, cmd.AuctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return domain.ErrNotFound
		}
		if !auction.IsActive() {
			return domain.ErrNotActive
		}
		if auction.Seller != cmd.Caller {
			return domain.ErrNotSeller
		}

		if err := s.repo.MarkCancelled(txCtx, auction.AuctionID, now); err != nil {
			return err
		}
		ref := fmt.Sprintf("AUC-%d-cancel", auction.AuctionID)
		if err := s.escrow.Payout(txCtx, auction.Seller, auction.Asset, auction.Amount, ref); err != nil {
			return err
		}

		auction.Status = domain.StatusCancelled
		auction.CancelledAt = &now
		cancelled = auction
		return s.publisher.Publish(txCtx, domain.EventTypeAuctionCancelled, fmt.Sprintf("%d", auction.AuctionID), &domain.AuctionCancelledEvent{
			AuctionID:   auction.AuctionID,
			Seller:      auction.Seller,
			Asset:       auction.Asset,
			Amount:      auction.Amount,
			CancelledAt: now,
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to cancel auction",
			"auction_id", cmd.AuctionID, "caller", cmd.Caller, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CancellationsTotal.Inc()
		s.metrics.AuctionsActive.Dec()
	}
	s.logger.InfoContext(ctx, "auction cancelled",
		"auction_id", cancelled.AuctionID, "seller", cancelled.Seller)
	return toAuctionDTO(cancelled), nil
}
