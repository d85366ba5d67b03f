package application

import (
	"log/slog"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	"github.com/wyfcoding/auctionmarket/internal/clock"
	"github.com/wyfcoding/auctionmarket/pkg/metrics"
)

// AuctionService 拍卖服务门面，聚合命令与查询服务供接口层调用。
type AuctionService struct {
	*AuctionCommandService
	*AuctionQueryService
}

// NewAuctionService 创建拍卖服务
func NewAuctionService(
	repo domain.AuctionRepository,
	escrow domain.EscrowManager,
	publisher domain.EventPublisher,
	clk clock.Clock,
	quoteCurrency string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuctionService {
	return &AuctionService{
		AuctionCommandService: NewAuctionCommandService(repo, escrow, publisher, clk, quoteCurrency, m, logger),
		AuctionQueryService:   NewAuctionQueryService(repo, clk, logger),
	}
}
