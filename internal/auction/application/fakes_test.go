package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
)

// fakeAuctionRepo 内存仓储。WithTx 在出错时回滚到进入事务前的快照，
// 以便断言事务内各步骤的原子性。
type fakeAuctionRepo struct {
	auctions map[uint64]*domain.Auction
	nextID   uint64
	getErr   error
}

func newFakeAuctionRepo(auctions ...*domain.Auction) *fakeAuctionRepo {
	repo := &fakeAuctionRepo{auctions: make(map[uint64]*domain.Auction)}
	for _, a := range auctions {
		repo.auctions[a.AuctionID] = a
		if a.AuctionID >= repo.nextID {
			repo.nextID = a.AuctionID + 1
		}
	}
	return repo
}

func (r *fakeAuctionRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make(map[uint64]*domain.Auction, len(r.auctions))
	for id, a := range r.auctions {
		copied := *a
		snapshot[id] = &copied
	}
	savedNext := r.nextID

	if err := fn(ctx); err != nil {
		r.auctions = snapshot
		r.nextID = savedNext
		return err
	}
	return nil
}

func (r *fakeAuctionRepo) Insert(_ context.Context, auction *domain.Auction) error {
	auction.AuctionID = r.nextID
	r.nextID++
	copied := *auction
	r.auctions[auction.AuctionID] = &copied
	return nil
}

func (r *fakeAuctionRepo) Get(_ context.Context, auctionID uint64) (*domain.Auction, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	a, ok := r.auctions[auctionID]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAuctionRepo) MarkSold(_ context.Context, auctionID uint64, buyer string, price decimal.Decimal, at time.Time) error {
	a, ok := r.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}
	return a.MarkSold(buyer, price, at)
}

func (r *fakeAuctionRepo) MarkCancelled(_ context.Context, auctionID uint64, at time.Time) error {
	a, ok := r.auctions[auctionID]
	if !ok {
		return domain.ErrNotFound
	}
	return a.MarkCancelled(at)
}

func (r *fakeAuctionRepo) List(_ context.Context, status domain.AuctionStatus, limit, offset int) ([]*domain.Auction, int64, error) {
	var all []*domain.Auction
	for _, a := range r.auctions {
		if status == 0 || a.Status == status {
			copied := *a
			all = append(all, &copied)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeAuctionRepo) CountActive(_ context.Context) (int64, error) {
	var count int64
	for _, a := range r.auctions {
		if a.IsActive() {
			count++
		}
	}
	return count, nil
}

// escrowCall 记录一次托管划转调用
type escrowCall struct {
	op     string
	owner  string
	asset  string
	amount decimal.Decimal
	ref    string
}

// fakeEscrow 记录调用顺序，failOn 指定的操作返回错误
type fakeEscrow struct {
	calls  []escrowCall
	failOn string
}

func (e *fakeEscrow) record(op, owner, asset string, amount decimal.Decimal, ref string) error {
	e.calls = append(e.calls, escrowCall{op: op, owner: owner, asset: asset, amount: amount, ref: ref})
	if e.failOn == op {
		return fmt.Errorf("%w: injected %s failure", domain.ErrTransferRejected, op)
	}
	return nil
}

func (e *fakeEscrow) PullIn(_ context.Context, owner, asset string, amount decimal.Decimal, ref string) error {
	return e.record("pull_in", owner, asset, amount, ref)
}

func (e *fakeEscrow) Payout(_ context.Context, owner, asset string, amount decimal.Decimal, ref string) error {
	return e.record("payout", owner, asset, amount, ref)
}

func (e *fakeEscrow) RefundExcess(_ context.Context, owner, asset string, amount decimal.Decimal, ref string) error {
	if amount.IsZero() {
		return nil
	}
	return e.record("refund", owner, asset, amount, ref)
}

// publishedEvent 记录一次事件发布
type publishedEvent struct {
	eventType string
	key       string
	payload   any
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, payload: payload})
	return nil
}
