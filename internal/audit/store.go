// Package audit 持久化拍卖领域事件，形成可追溯的审计流水。
package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/auctionmarket/pkg/logger"
)

// AuditEvent 审计事件模型，每条对应一条消费到的领域事件。
type AuditEvent struct {
	gorm.Model
	EventType  string    `gorm:"type:varchar(64);index;not null;comment:事件类型"`
	EventKey   string    `gorm:"type:varchar(64);index;not null;comment:分区路由键"`
	Payload    []byte    `gorm:"type:json;not null;comment:事件体"`
	OccurredAt time.Time `gorm:"not null;comment:事件发生时间"`
	Topic      string    `gorm:"type:varchar(128);not null;comment:来源 topic"`
	Partition  int       `gorm:"not null;comment:来源分区"`
	Offset     int64     `gorm:"not null;comment:来源位点"`
}

// TableName 指定表名
func (AuditEvent) TableName() string {
	return "audit_events"
}

// Store 审计事件存储
type Store struct {
	db *gorm.DB
}

// NewStore 创建审计存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save 保存一条审计事件
func (s *Store) Save(ctx context.Context, event *AuditEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		logger.Error(ctx, "audit_store.Save failed", "event_type", event.EventType, "error", err)
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// ListByKey 按路由键查询审计流水，用于回溯单个拍卖的完整历史
func (s *Store) ListByKey(ctx context.Context, key string, limit int) ([]*AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []*AuditEvent
	err := s.db.WithContext(ctx).
		Where("event_key = ?", key).
		Order("id asc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}
