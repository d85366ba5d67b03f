package domain

import "errors"

var (
	// ErrInvalidAmount 金额必须为正
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance 可用余额不足
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("ledger account not found")
	// ErrSameAccount 转入转出方不能相同
	ErrSameAccount = errors.New("transfer endpoints must differ")
)
