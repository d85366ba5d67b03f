// AuctionService 主程序
// 功能：提供荷兰式拍卖市场服务，包括创建拍卖、即时价格查询、买断结算、取消退回
// 架构：基于 DDD + 托管账本 + Kafka outbox 事件
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	auctionapp "github.com/wyfcoding/auctionmarket/internal/auction/application"
	auctiondomain "github.com/wyfcoding/auctionmarket/internal/auction/domain"
	"github.com/wyfcoding/auctionmarket/internal/auction/infrastructure/adapter"
	"github.com/wyfcoding/auctionmarket/internal/auction/infrastructure/messaging"
	auctionmysql "github.com/wyfcoding/auctionmarket/internal/auction/infrastructure/persistence/mysql"
	auctionhttp "github.com/wyfcoding/auctionmarket/internal/auction/interfaces/http"
	"github.com/wyfcoding/auctionmarket/internal/clock"
	custodyapp "github.com/wyfcoding/auctionmarket/internal/custody/application"
	custodydomain "github.com/wyfcoding/auctionmarket/internal/custody/domain"
	custodymysql "github.com/wyfcoding/auctionmarket/internal/custody/infrastructure/persistence/mysql"
	custodyhttp "github.com/wyfcoding/auctionmarket/internal/custody/interfaces/http"
	"github.com/wyfcoding/auctionmarket/pkg/cache"
	"github.com/wyfcoding/auctionmarket/pkg/config"
	"github.com/wyfcoding/auctionmarket/pkg/db"
	"github.com/wyfcoding/auctionmarket/pkg/logger"
	"github.com/wyfcoding/auctionmarket/pkg/metrics"
	"github.com/wyfcoding/auctionmarket/pkg/middleware"
	"github.com/wyfcoding/auctionmarket/pkg/mq"
	"github.com/wyfcoding/auctionmarket/pkg/ratelimit"
)

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
	logger.Info(ctx, "Starting AuctionService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	dbCfg := db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}
	database, err := db.Init(dbCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&auctiondomain.Auction{},
		&auctionmysql.AuctionSequence{},
		&custodydomain.LedgerAccount{},
		&custodydomain.LedgerEntry{},
		&messaging.OutboxEvent{},
	); err != nil {
		logger.Fatal(ctx, "Failed to migrate database schema", "error", err)
	}

	// 4. 初始化 Redis
	redisCfg := cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisCache, err := cache.New(redisCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 5. 初始化限流器
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	// 6. 初始化指标
	metricsInstance := metrics.New(cfg.ServiceName)
	if err := metricsInstance.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics HTTP server", "error", err)
		}
	}

	// 7. 初始化 Kafka 生产者与 outbox 中继
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
		SessionTimeout: cfg.Kafka.SessionTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Kafka producer", "error", err)
	}
	defer producer.Close()

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relay := messaging.NewOutboxRelay(
		database.DB,
		producer,
		cfg.Kafka.EventTopic,
		time.Duration(cfg.Market.OutboxPollInterval)*time.Millisecond,
		cfg.Market.OutboxBatchSize,
		metricsInstance,
		logger.Get(),
	)
	go relay.Run(relayCtx)

	// 8. 初始化仓储与应用服务
	ledgerRepo := custodymysql.NewLedgerRepository(database.DB)
	custodyService := custodyapp.NewCustodyService(ledgerRepo, logger.Get())

	auctionRepo := auctionmysql.NewAuctionRepository(database.DB)
	escrow := adapter.NewEscrowAdapter(custodyService, cfg.Market.EscrowAccount, logger.Get())
	publisher := messaging.NewOutboxPublisher(database.DB)
	auctionService := auctionapp.NewAuctionService(
		auctionRepo,
		escrow,
		publisher,
		clock.NewSystem(),
		cfg.Market.QuoteCurrency,
		metricsInstance,
		logger.Get(),
	)

	// 9. 创建并启动 HTTP 服务器
	httpServer := createHTTPServer(cfg, auctionService, custodyService, rateLimiter)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		logger.Info(ctx, "Starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 10. 优雅关停
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down AuctionService")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown error", "error", err)
	}
	stopRelay()

	logger.Info(ctx, "AuctionService stopped")
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(
	cfg *config.Config,
	auctionService *auctionapp.AuctionService,
	custodyService *custodyapp.CustodyService,
	rateLimiter ratelimit.RateLimiter,
) *http.Server {
	router := gin.New()

	// 添加中间件
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit))
	}

	// 注册路由
	api := router.Group("/api/v1")
	auctionhttp.NewAuctionHandler(auctionService).RegisterRoutes(api)
	custodyhttp.NewCustodyHandler(custodyService).RegisterRoutes(api)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
