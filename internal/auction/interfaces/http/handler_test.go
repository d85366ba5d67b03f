package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/auctionmarket/internal/auction/application"
	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	"github.com/wyfcoding/auctionmarket/internal/clock"
)

// memAuctionRepo 内存仓储，驱动真实应用服务以验证路由与状态码映射
type memAuctionRepo struct {
	auctions map[uint64]*domain.Auction
	nextID   uint64
}

func newMemAuctionRepo(auctions ...*domain.Auction) *memAuctionRepo {
	repo := &memAuctionRepo{auctions: make(map[uint64]*domain.Auction)}
	for _, a := range auctions {
		repo.auctions[a.AuctionID] = a
		if a.AuctionID >= repo.nextID {
			repo.nextID = a.AuctionID + 1
		}
	}
	return repo
}

func (r *memAuctionRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *memAuctionRepo) Insert(_ context.Context, auction *domain.Auction) error {
	auction.AuctionID = r.nextID
	r.nextID++
	copied := *auction
	r.auctions[auction.AuctionID] = &copied
	return nil
}

func (r *memAuctionRepo) Get(_ context.Context, auctionID uint64) (*domain.Auction, error) {
	a, ok := r.auctions[auctionID]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *memAuctionRepo) MarkSold(_ context.Context, auctionID uint64, buyer string, price decimal.Decimal, at time.Time) error {
	a, ok := r.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}
	return a.MarkSold(buyer, price, at)
}

func (r *memAuctionRepo) MarkCancelled(_ context.Context, auctionID uint64, at time.Time) error {
	a, ok := r.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}
	return a.MarkCancelled(at)
}

func (r *memAuctionRepo) List(_ context.Context, status domain.AuctionStatus, limit, offset int) ([]*domain.Auction, int64, error) {
	var all []*domain.Auction
	for _, a := range r.auctions {
		if status == 0 || a.Status == status {
			copied := *a
			all = append(all, &copied)
		}
	}
	return all, int64(len(all)), nil
}

func (r *memAuctionRepo) CountActive(_ context.Context) (int64, error) {
	return 0, nil
}

// noopEscrow 全部划转成功
type noopEscrow struct{}

func (noopEscrow) PullIn(context.Context, string, string, decimal.Decimal, string) error { return nil }
func (noopEscrow) Payout(context.Context, string, string, decimal.Decimal, string) error { return nil }
func (noopEscrow) RefundExcess(context.Context, string, string, decimal.Decimal, string) error {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, any) error { return nil }

func newTestRouter(t *testing.T, now time.Time, auctions ...*domain.Auction) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemAuctionRepo(auctions...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewAuctionService(repo, noopEscrow{}, noopPublisher{}, clock.NewFixed(now), "USD", nil, logger)

	router := gin.New()
	NewAuctionHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func mustAuction(t *testing.T, id uint64, seller string, start time.Time) *domain.Auction {
	t.Helper()
	price, _ := decimal.NewFromString("1000")
	rate, _ := decimal.NewFromString("5")
	amount, _ := decimal.NewFromString("10")
	a, err := domain.NewAuction(seller, "GOLD", amount, price, rate, start, 100)
	if err != nil {
		t.Fatalf("failed to build auction: %v", err)
	}
	a.AuctionID = id
	return a
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuctionHandler_StatusMapping(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(50 * time.Second)

	t.Run("create returns 200", func(t *testing.T) {
		router := newTestRouter(t, now)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auctions", gin.H{
			"seller":        "alice",
			"asset":         "GOLD",
			"amount":        "10",
			"initial_price": "1000",
			"decay_rate":    "5",
			"duration":      100,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid parameters return 400", func(t *testing.T) {
		router := newTestRouter(t, now)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auctions", gin.H{
			"seller":        "alice",
			"asset":         "GOLD",
			"amount":        "10",
			"initial_price": "500",
			"decay_rate":    "5",
			"duration":      100,
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown auction returns 404", func(t *testing.T) {
		router := newTestRouter(t, now)
		rec := doJSON(t, router, http.MethodGet, "/api/v1/auctions/42/price", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("underpayment returns 402", func(t *testing.T) {
		router := newTestRouter(t, now, mustAuction(t, 1, "alice", start))
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auctions/1/buy", gin.H{
			"buyer":   "bob",
			"payment": "10",
		})
		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("expired auction returns 410", func(t *testing.T) {
		router := newTestRouter(t, start.Add(time.Hour), mustAuction(t, 1, "alice", start))
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auctions/1/buy", gin.H{
			"buyer":   "bob",
			"payment": "1000",
		})
		if rec.Code != http.StatusGone {
			t.Fatalf("expected 410, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("cancel by non-seller returns 403", func(t *testing.T) {
		router := newTestRouter(t, now, mustAuction(t, 1, "alice", start))
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auctions/1/cancel", gin.H{
			"caller": "mallory",
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("terminal auction returns 409", func(t *testing.T) {
		sold := mustAuction(t, 1, "alice", start)
		price, _ := decimal.NewFromString("900")
		if err := sold.MarkSold("bob", price, start.Add(time.Second)); err != nil {
			t.Fatalf("setup sale failed: %v", err)
		}
		router := newTestRouter(t, now, sold)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auctions/1/buy", gin.H{
			"buyer":   "carol",
			"payment": "1000",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		router := newTestRouter(t, now)
		rec := doJSON(t, router, http.MethodGet, "/api/v1/auctions/abc", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
