package domain

import "errors"

// 领域错误定义。接口层依据这些错误映射 HTTP 状态码。
var (
	// ErrNotFound 拍卖不存在
	ErrNotFound = errors.New("auction not found")
	// ErrNotActive 拍卖不处于进行中状态（已成交或已取消）
	ErrNotActive = errors.New("auction is not active")
	// ErrNotSeller 调用方不是该拍卖的卖方
	ErrNotSeller = errors.New("caller is not the seller of this auction")
	// ErrAuctionExpired 价格已衰减至零，拍卖不可成交
	ErrAuctionExpired = errors.New("auction has expired")
	// ErrInsufficientPayment 支付金额低于当前价格
	ErrInsufficientPayment = errors.New("payment is less than current price")
	// ErrClockBeforeStart 当前时间早于拍卖开始时间
	ErrClockBeforeStart = errors.New("current time is before auction start time")

	// ErrInvalidInitialPrice 起始价格必须为正数
	ErrInvalidInitialPrice = errors.New("initial price must be positive")
	// ErrInvalidDuration 持续时间必须为正数
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrInvalidDecayRate 衰减速率必须为正数
	ErrInvalidDecayRate = errors.New("decay rate must be positive")
	// ErrInvalidAmount 拍卖数量必须为正数
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrPriceWouldReachZero 价格会在持续时间结束前衰减到零
	ErrPriceWouldReachZero = errors.New("price would reach zero before auction end")

	// ErrIDSpaceExhausted 拍卖编号空间耗尽
	ErrIDSpaceExhausted = errors.New("auction id space exhausted")
	// ErrTransferRejected 托管账本拒绝了资金划转
	ErrTransferRejected = errors.New("escrow transfer rejected")
)
