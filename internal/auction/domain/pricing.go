package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrentPrice 计算拍卖在 now 时刻的即时价格。
// 规则：
//   - 拍卖已终态（成交或取消）时返回 ErrNotActive；
//   - now 早于开始时间时返回 ErrClockBeforeStart；
//   - 经过时间达到或超过持续时间时价格为零；
//   - 其余情况为 InitialPrice - DecayRate * elapsedSeconds，下限为零。
//
// 经过时间按整秒向下取整，保证同一秒内价格不变且随时间单调不增。
func CurrentPrice(a *Auction, now time.Time) (decimal.Decimal, error) {
	if !a.IsActive() {
		return decimal.Zero, ErrNotActive
	}
	if now.Before(a.StartTime) {
		return decimal.Zero, ErrClockBeforeStart
	}
	elapsed := int64(now.Sub(a.StartTime) / time.Second)
	if elapsed >= a.Duration {
		return decimal.Zero, nil
	}
	price := a.InitialPrice.Sub(a.DecayRate.Mul(decimal.NewFromInt(elapsed)))
	if price.IsNegative() {
		return decimal.Zero, nil
	}
	return price, nil
}
