package db

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// WithTx 将事务句柄写入 context，供仓储在同一事务内协作
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext 从 context 提取事务句柄，不存在时返回 fallback
func TxFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback
}
