// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/auctionmarket/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 数据库查询计数
	DBQueriesTotal prometheus.Counter
	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram

	// 业务指标
	AuctionsCreatedTotal   prometheus.Counter
	AuctionsActive         prometheus.Gauge
	SettlementsTotal       prometheus.Counter
	CancellationsTotal     prometheus.Counter
	SettlementValue        prometheus.Histogram
	LedgerTransfersTotal   prometheus.Counter
	OutboxPendingEvents    prometheus.Gauge
	OutboxPublishedTotal   prometheus.Counter
	OutboxPublishFailures  prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		AuctionsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "auctions_created_total",
			Help:      "Total auctions created",
		}),
		AuctionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "auctions_active",
			Help:      "Number of active auctions",
		}),
		SettlementsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "settlements_total",
			Help:      "Total auctions settled through buy",
		}),
		CancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "cancellations_total",
			Help:      "Total auctions cancelled by their seller",
		}),
		SettlementValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "settlement_value",
			Help:      "Final price paid per settlement in quote currency",
			Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		LedgerTransfersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "ledger_transfers_total",
			Help:      "Total ledger transfers executed",
		}),
		OutboxPendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "outbox_pending_events",
			Help:      "Number of outbox events waiting for relay",
		}),
		OutboxPublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "outbox_published_total",
			Help:      "Total outbox events published to Kafka",
		}),
		OutboxPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionmarket",
			Subsystem: serviceName,
			Name:      "outbox_publish_failures_total",
			Help:      "Total outbox publish failures",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	metrics := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.AuctionsCreatedTotal,
		m.AuctionsActive,
		m.SettlementsTotal,
		m.CancellationsTotal,
		m.SettlementValue,
		m.LedgerTransfersTotal,
		m.OutboxPendingEvents,
		m.OutboxPublishedTotal,
		m.OutboxPublishFailures,
	}

	for _, metric := range metrics {
		if err := prometheus.DefaultRegisterer.Register(metric); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
