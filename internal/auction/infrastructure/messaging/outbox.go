// Package messaging 实现基于 outbox 模式的领域事件发布。
// 事件在业务事务中写入 outbox 表，由后台中继轮询投递到 Kafka，
// 保证状态变更与事件发布的原子性。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/auctionmarket/internal/auction/domain"
	pkgdb "github.com/wyfcoding/auctionmarket/pkg/db"
	"github.com/wyfcoding/auctionmarket/pkg/metrics"
	"github.com/wyfcoding/auctionmarket/pkg/mq"
)

// Outbox 事件状态
const (
	OutboxStatusPending   int8 = 1
	OutboxStatusPublished int8 = 2
)

// OutboxEvent outbox 表模型
type OutboxEvent struct {
	gorm.Model
	EventType   string     `gorm:"type:varchar(64);not null;comment:事件类型"`
	EventKey    string     `gorm:"type:varchar(64);not null;comment:分区路由键"`
	Payload     []byte     `gorm:"type:json;not null;comment:事件体"`
	Status      int8       `gorm:"type:tinyint;index;not null;default:1;comment:状态 1:待发布 2:已发布"`
	PublishedAt *time.Time `gorm:"comment:发布时间"`
}

// TableName 指定表名
func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// OutboxPublisher 实现 domain.EventPublisher，将事件写入 outbox 表。
// 通过 context 加入调用方事务，与业务写入一同提交或回滚。
type OutboxPublisher struct {
	db *gorm.DB
}

// NewOutboxPublisher 创建 outbox 发布器
func NewOutboxPublisher(db *gorm.DB) *OutboxPublisher {
	return &OutboxPublisher{db: db}
}

// Publish 实现 domain.EventPublisher.Publish
func (p *OutboxPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	conn := pkgdb.TxFromContext(ctx, p.db)
	event := &OutboxEvent{
		EventType: eventType,
		EventKey:  key,
		Payload:   data,
		Status:    OutboxStatusPending,
	}
	if err := conn.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to store outbox event: %w", err)
	}
	return nil
}

var _ domain.EventPublisher = (*OutboxPublisher)(nil)

// OutboxRelay 后台中继，轮询待发布事件并投递到 Kafka。
type OutboxRelay struct {
	db       *gorm.DB
	producer *mq.KafkaProducer
	topic    string
	interval time.Duration
	batch    int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewOutboxRelay 创建 outbox 中继
func NewOutboxRelay(db *gorm.DB, producer *mq.KafkaProducer, topic string, interval time.Duration, batch int, m *metrics.Metrics, logger *slog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{
		db:       db,
		producer: producer,
		topic:    topic,
		interval: interval,
		batch:    batch,
		metrics:  m,
		logger:   logger,
	}
}

// Run 启动轮询循环，直到 ctx 取消。应在独立 goroutine 中调用。
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started",
		"topic", r.topic, "interval", r.interval.String(), "batch", r.batch)
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay drain failed", "error", err)
			}
		}
	}
}

// drainOnce 取出一批待发布事件，逐条投递并标记为已发布。
// 单条失败时中断本轮，剩余事件留待下次轮询，投递语义为至少一次。
func (r *OutboxRelay) drainOnce(ctx context.Context) error {
	var events []*OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", OutboxStatusPending).
		Order("id asc").
		Limit(r.batch).
		Find(&events).Error
	if err != nil {
		return fmt.Errorf("failed to load pending outbox events: %w", err)
	}
	if r.metrics != nil {
		r.metrics.OutboxPendingEvents.Set(float64(len(events)))
	}
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		if err := r.publishOne(ctx, event); err != nil {
			if r.metrics != nil {
				r.metrics.OutboxPublishFailures.Inc()
			}
			return fmt.Errorf("failed to publish outbox event %d: %w", event.ID, err)
		}
		if r.metrics != nil {
			r.metrics.OutboxPublishedTotal.Inc()
		}
	}
	return nil
}

func (r *OutboxRelay) publishOne(ctx context.Context, event *OutboxEvent) error {
	envelope, err := json.Marshal(map[string]any{
		"event_type":  event.EventType,
		"event_key":   event.EventKey,
		"payload":     json.RawMessage(event.Payload),
		"occurred_at": event.CreatedAt,
	})
	if err != nil {
		return err
	}
	if err := r.producer.SendRaw(ctx, r.topic, event.EventKey, envelope); err != nil {
		return err
	}

	now := time.Now()
	return r.db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{
			"status":       OutboxStatusPublished,
			"published_at": now,
		}).Error
}
