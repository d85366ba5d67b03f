package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	"github.com/wyfcoding/auctionmarket/internal/clock"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(now time.Time, repo *fakeAuctionRepo, escrow *fakeEscrow, publisher *fakePublisher) *AuctionCommandService {
	return NewAuctionCommandService(repo, escrow, publisher, clock.NewFixed(now), "USD", nil, discardLogger())
}

func activeAuction(t *testing.T, id uint64, seller string, start time.Time) *domain.Auction {
	t.Helper()
	a, err := domain.NewAuction(seller, "GOLD",
		mustDecimal(t, "10"), mustDecimal(t, "1000"), mustDecimal(t, "5"), start, 100)
	if err != nil {
		t.Fatalf("failed to build auction: %v", err)
	}
	a.AuctionID = id
	return a
}

func TestAuctionCommandService_CreateAuction(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates auction and escrows the asset", func(t *testing.T) {
		repo := newFakeAuctionRepo()
		escrow := &fakeEscrow{}
		publisher := &fakePublisher{}
		svc := newTestService(now, repo, escrow, publisher)

		dto, err := svc.CreateAuction(context.Background(), &CreateAuctionCommand{
			Seller:       "alice",
			Asset:        "GOLD",
			Amount:       mustDecimal(t, "10"),
			InitialPrice: mustDecimal(t, "1000"),
			DecayRate:    mustDecimal(t, "5"),
			Duration:     100,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if dto.AuctionID != 0 {
			t.Fatalf("expected first auction id 0, got %d", dto.AuctionID)
		}
		if dto.Status != "ACTIVE" {
			t.Fatalf("expected status ACTIVE, got %s", dto.Status)
		}
		if !dto.StartTime.Equal(now) {
			t.Fatalf("expected start time %v, got %v", now, dto.StartTime)
		}

		if len(escrow.calls) != 1 {
			t.Fatalf("expected 1 escrow call, got %d", len(escrow.calls))
		}
		call := escrow.calls[0]
		if call.op != "pull_in" || call.owner != "alice" || call.asset != "GOLD" || !call.amount.Equal(mustDecimal(t, "10")) {
			t.Fatalf("unexpected escrow call %+v", call)
		}

		if len(publisher.events) != 1 || publisher.events[0].eventType != domain.EventTypeAuctionCreated {
			t.Fatalf("expected one AuctionCreated event, got %+v", publisher.events)
		}
	})

	t.Run("assigns monotonically increasing ids", func(t *testing.T) {
		repo := newFakeAuctionRepo()
		svc := newTestService(now, repo, &fakeEscrow{}, &fakePublisher{})

		cmd := &CreateAuctionCommand{
			Seller:       "alice",
			Asset:        "GOLD",
			Amount:       mustDecimal(t, "10"),
			InitialPrice: mustDecimal(t, "1000"),
			DecayRate:    mustDecimal(t, "5"),
			Duration:     100,
		}
		first, err := svc.CreateAuction(context.Background(), cmd)
		if err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		second, err := svc.CreateAuction(context.Background(), cmd)
		if err != nil {
			t.Fatalf("second create failed: %v", err)
		}
		if first.AuctionID != 0 || second.AuctionID != 1 {
			t.Fatalf("expected ids 0 and 1, got %d and %d", first.AuctionID, second.AuctionID)
		}
	})

	t.Run("validation failure has no side effects", func(t *testing.T) {
		repo := newFakeAuctionRepo()
		escrow := &fakeEscrow{}
		publisher := &fakePublisher{}
		svc := newTestService(now, repo, escrow, publisher)

		_, err := svc.CreateAuction(context.Background(), &CreateAuctionCommand{
			Seller:       "alice",
			Asset:        "GOLD",
			Amount:       mustDecimal(t, "10"),
			InitialPrice: mustDecimal(t, "500"),
			DecayRate:    mustDecimal(t, "5"),
			Duration:     100,
		})
		if !errors.Is(err, domain.ErrPriceWouldReachZero) {
			t.Fatalf("expected ErrPriceWouldReachZero, got %v", err)
		}
		if len(repo.auctions) != 0 || len(escrow.calls) != 0 || len(publisher.events) != 0 {
			t.Fatalf("expected no side effects, repo=%d escrow=%d events=%d",
				len(repo.auctions), len(escrow.calls), len(publisher.events))
		}
	})

	t.Run("escrow failure rolls back the insert", func(t *testing.T) {
		repo := newFakeAuctionRepo()
		escrow := &fakeEscrow{failOn: "pull_in"}
		svc := newTestService(now, repo, escrow, &fakePublisher{})

		_, err := svc.CreateAuction(context.Background(), &CreateAuctionCommand{
			Seller:       "alice",
			Asset:        "GOLD",
			Amount:       mustDecimal(t, "10"),
			InitialPrice: mustDecimal(t, "1000"),
			DecayRate:    mustDecimal(t, "5"),
			Duration:     100,
		})
		if !errors.Is(err, domain.ErrTransferRejected) {
			t.Fatalf("expected ErrTransferRejected, got %v", err)
		}
		if len(repo.auctions) != 0 {
			t.Fatalf("expected insert rolled back, repo has %d auctions", len(repo.auctions))
		}
	})
}

func TestAuctionCommandService_Buy(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(50 * time.Second) // price 1000 - 5*50 = 750

	t.Run("settles at current price with refund", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 7, "alice", start))
		escrow := &fakeEscrow{}
		publisher := &fakePublisher{}
		svc := newTestService(now, repo, escrow, publisher)

		dto, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 7,
			Buyer:     "bob",
			Payment:   mustDecimal(t, "800"),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !dto.FinalPrice.Equal(mustDecimal(t, "750")) {
			t.Fatalf("expected final price 750, got %s", dto.FinalPrice)
		}
		if !dto.Refund.Equal(mustDecimal(t, "50")) {
			t.Fatalf("expected refund 50, got %s", dto.Refund)
		}

		want := []escrowCall{
			{op: "pull_in", owner: "bob", asset: "USD"},
			{op: "payout", owner: "bob", asset: "GOLD"},
			{op: "payout", owner: "alice", asset: "USD"},
			{op: "refund", owner: "bob", asset: "USD"},
		}
		if len(escrow.calls) != len(want) {
			t.Fatalf("expected %d escrow calls, got %d: %+v", len(want), len(escrow.calls), escrow.calls)
		}
		for i, w := range want {
			got := escrow.calls[i]
			if got.op != w.op || got.owner != w.owner || got.asset != w.asset {
				t.Fatalf("call %d: expected %s/%s/%s, got %s/%s/%s",
					i, w.op, w.owner, w.asset, got.op, got.owner, got.asset)
			}
		}
		if !escrow.calls[0].amount.Equal(mustDecimal(t, "800")) {
			t.Fatalf("expected payment pull-in of 800, got %s", escrow.calls[0].amount)
		}
		if !escrow.calls[2].amount.Equal(mustDecimal(t, "750")) {
			t.Fatalf("expected seller payout of 750, got %s", escrow.calls[2].amount)
		}
		if !escrow.calls[3].amount.Equal(mustDecimal(t, "50")) {
			t.Fatalf("expected refund of 50, got %s", escrow.calls[3].amount)
		}

		stored := repo.auctions[7]
		if stored.Status != domain.StatusSold || stored.Buyer != "bob" {
			t.Fatalf("auction not marked sold: %s buyer=%s", stored.Status, stored.Buyer)
		}
		if len(publisher.events) != 1 || publisher.events[0].eventType != domain.EventTypeAuctionFinalized {
			t.Fatalf("expected one AuctionFinalized event, got %+v", publisher.events)
		}
	})

	t.Run("exact payment produces no refund transfer", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 7, "alice", start))
		escrow := &fakeEscrow{}
		svc := newTestService(now, repo, escrow, &fakePublisher{})

		dto, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 7,
			Buyer:     "bob",
			Payment:   mustDecimal(t, "750"),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !dto.Refund.IsZero() {
			t.Fatalf("expected zero refund, got %s", dto.Refund)
		}
		for _, call := range escrow.calls {
			if call.op == "refund" {
				t.Fatalf("unexpected refund transfer: %+v", call)
			}
		}
	})

	t.Run("insufficient payment", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 7, "alice", start))
		escrow := &fakeEscrow{}
		svc := newTestService(now, repo, escrow, &fakePublisher{})

		_, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 7,
			Buyer:     "bob",
			Payment:   mustDecimal(t, "749.99"),
		})
		if !errors.Is(err, domain.ErrInsufficientPayment) {
			t.Fatalf("expected ErrInsufficientPayment, got %v", err)
		}
		if len(escrow.calls) != 0 {
			t.Fatalf("expected no escrow calls, got %+v", escrow.calls)
		}
		if repo.auctions[7].Status != domain.StatusActive {
			t.Fatalf("auction state changed on failed buy")
		}
	})

	t.Run("expired auction cannot be bought", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 7, "alice", start))
		svc := newTestService(start.Add(100*time.Second), repo, &fakeEscrow{}, &fakePublisher{})

		_, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 7,
			Buyer:     "bob",
			Payment:   mustDecimal(t, "1000"),
		})
		if !errors.Is(err, domain.ErrAuctionExpired) {
			t.Fatalf("expected ErrAuctionExpired, got %v", err)
		}
	})

	t.Run("unknown auction", func(t *testing.T) {
		repo := newFakeAuctionRepo()
		svc := newTestService(now, repo, &fakeEscrow{}, &fakePublisher{})

		_, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 42,
			Buyer:     "bob",
			Payment:   mustDecimal(t, "1000"),
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("second buy sees a terminal auction", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 7, "alice", start))
		svc := newTestService(now, repo, &fakeEscrow{}, &fakePublisher{})

		if _, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 7,
			Buyer:     "bob",
			Payment:   mustDecimal(t, "800"),
		}); err != nil {
			t.Fatalf("first buy failed: %v", err)
		}
		_, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 7,
			Buyer:     "carol",
			Payment:   mustDecimal(t, "800"),
		})
		if !errors.Is(err, domain.ErrNotActive) {
			t.Fatalf("expected ErrNotActive on second buy, got %v", err)
		}
	})

	t.Run("payout failure rolls back the sale", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 7, "alice", start))
		escrow := &fakeEscrow{failOn: "payout"}
		publisher := &fakePublisher{}
		svc := newTestService(now, repo, escrow, publisher)

		_, err := svc.Buy(context.Background(), &BuyCommand{
			AuctionID: 7,
			Buyer:     "bob",
			Payment:   mustDecimal(t, "800"),
		})
		if !errors.Is(err, domain.ErrTransferRejected) {
			t.Fatalf("expected ErrTransferRejected, got %v", err)
		}
		if repo.auctions[7].Status != domain.StatusActive {
			t.Fatalf("expected status flip rolled back, got %s", repo.auctions[7].Status)
		}
		if len(publisher.events) != 0 {
			t.Fatalf("expected no events on failed settlement, got %+v", publisher.events)
		}
	})
}

func TestAuctionCommandService_CancelAuction(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(20 * time.Second)

	t.Run("seller cancels and asset is returned", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 3, "alice", start))
		escrow := &fakeEscrow{}
		publisher := &fakePublisher{}
		svc := newTestService(now, repo, escrow, publisher)

		dto, err := svc.CancelAuction(context.Background(), &CancelAuctionCommand{
			AuctionID: 3,
			Caller:    "alice",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if dto.Status != "CANCELLED" {
			t.Fatalf("expected CANCELLED, got %s", dto.Status)
		}

		if len(escrow.calls) != 1 {
			t.Fatalf("expected 1 escrow call, got %d", len(escrow.calls))
		}
		call := escrow.calls[0]
		if call.op != "payout" || call.owner != "alice" || call.asset != "GOLD" || !call.amount.Equal(mustDecimal(t, "10")) {
			t.Fatalf("unexpected escrow call %+v", call)
		}
		if len(publisher.events) != 1 || publisher.events[0].eventType != domain.EventTypeAuctionCancelled {
			t.Fatalf("expected one AuctionCancelled event, got %+v", publisher.events)
		}
	})

	t.Run("non-seller cannot cancel", func(t *testing.T) {
		repo := newFakeAuctionRepo(activeAuction(t, 3, "alice", start))
		escrow := &fakeEscrow{}
		svc := newTestService(now, repo, escrow, &fakePublisher{})

		_, err := svc.CancelAuction(context.Background(), &CancelAuctionCommand{
			AuctionID: 3,
			Caller:    "mallory",
		})
		if !errors.Is(err, domain.ErrNotSeller) {
			t.Fatalf("expected ErrNotSeller, got %v", err)
		}
		if len(escrow.calls) != 0 {
			t.Fatalf("expected no escrow calls, got %+v", escrow.calls)
		}
		if repo.auctions[3].Status != domain.StatusActive {
			t.Fatalf("auction state changed on rejected cancel")
		}
	})

	t.Run("sold auction cannot be cancelled", func(t *testing.T) {
		a := activeAuction(t, 3, "alice", start)
		if err := a.MarkSold("bob", mustDecimal(t, "900"), now); err != nil {
			t.Fatalf("setup sale failed: %v", err)
		}
		repo := newFakeAuctionRepo(a)
		svc := newTestService(now, repo, &fakeEscrow{}, &fakePublisher{})

		_, err := svc.CancelAuction(context.Background(), &CancelAuctionCommand{
			AuctionID: 3,
			Caller:    "alice",
		})
		if !errors.Is(err, domain.ErrNotActive) {
			t.Fatalf("expected ErrNotActive, got %v", err)
		}
	})

	t.Run("unknown auction", func(t *testing.T) {
		repo := newFakeAuctionRepo()
		svc := newTestService(now, repo, &fakeEscrow{}, &fakePublisher{})

		_, err := svc.CancelAuction(context.Background(), &CancelAuctionCommand{
			AuctionID: 99,
			Caller:    "alice",
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
