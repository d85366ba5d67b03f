// AuditorService 主程序
// 功能：消费拍卖领域事件，落库形成审计流水；解析或持久化失败的消息进入死信队列
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/auctionmarket/internal/audit"
	"github.com/wyfcoding/auctionmarket/pkg/config"
	"github.com/wyfcoding/auctionmarket/pkg/db"
	"github.com/wyfcoding/auctionmarket/pkg/logger"
	"github.com/wyfcoding/auctionmarket/pkg/mq"
)

// eventEnvelope 与 outbox 中继发布的消息结构对应
type eventEnvelope struct {
	EventType  string          `json:"event_type"`
	EventKey   string          `json:"event_key"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func main() {
	// 1. 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/auction/config.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting AuditorService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"topic", cfg.Kafka.EventTopic,
	)

	// 3. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(&audit.AuditEvent{}); err != nil {
		logger.Fatal(ctx, "Failed to migrate database schema", "error", err)
	}
	store := audit.NewStore(database.DB)

	// 4. 初始化 Kafka 消费者与死信队列
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
		SessionTimeout: cfg.Kafka.SessionTimeout,
	}
	consumer, err := mq.NewConsumer(kafkaCfg, cfg.Kafka.EventTopic)
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka consumer", "error", err)
	}
	defer consumer.Close()

	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()
	dlq := mq.NewDeadLetterQueue(producer, cfg.Kafka.EventTopic+".dlq")

	// 5. 消费循环
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumeLoop(runCtx, consumer, store, dlq)
	}()

	// 6. 优雅关停
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down AuditorService")
	stop()
	<-done
	logger.Info(ctx, "AuditorService stopped")
}

// consumeLoop 逐条消费事件并落库，直到 ctx 取消
func consumeLoop(ctx context.Context, consumer *mq.KafkaConsumer, store *audit.Store, dlq *mq.DeadLetterQueue) {
	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Failed to read message", "error", err)
			continue
		}

		if err := handleMessage(ctx, store, msg); err != nil {
			logger.Error(ctx, "Failed to handle event, sending to DLQ",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
			if dlqErr := dlq.Send(ctx, msg, "audit persistence failed", err); dlqErr != nil {
				logger.Error(ctx, "Failed to send message to DLQ", "error", dlqErr)
			}
		}
	}
}

// handleMessage 解析事件信封并持久化为审计记录
func handleMessage(ctx context.Context, store *audit.Store, msg *mq.Message) error {
	var envelope eventEnvelope
	if err := msg.UnmarshalPayload(&envelope); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	event := &audit.AuditEvent{
		EventType:  envelope.EventType,
		EventKey:   envelope.EventKey,
		Payload:    envelope.Payload,
		OccurredAt: envelope.OccurredAt,
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
	}
	if err := store.Save(ctx, event); err != nil {
		return err
	}

	logger.Info(ctx, "audit event persisted",
		"event_type", envelope.EventType,
		"event_key", envelope.EventKey,
		"offset", msg.Offset)
	return nil
}
