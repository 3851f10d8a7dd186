// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、搜索分发与索引同步的指标.
//
// Example:
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.SearchRequests.WithLabelValues("relational", "results").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/torrentvault/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// SearchRequests 搜索请求计数，backend 为 relational/fulltext/none，outcome 为 results/redirect/error.
	SearchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Search requests by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	// SearchDuration 后端查询耗时.
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_backend_duration_seconds",
			Help:    "Search backend query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// SearchPageCapped 页码被预算截断的次数.
	SearchPageCapped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_page_capped_total",
			Help: "Requests whose page was capped by the result budget",
		},
	)

	// CategoryReloads 分类缓存重载次数.
	CategoryReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "category_cache_reloads_total",
			Help: "Category name cache reloads by result",
		},
		[]string{"result"},
	)

	// IndexSyncedRows 同步到全文索引的记录数.
	IndexSyncedRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "index_synced_rows_total",
			Help: "Rows pushed from the relational store into the full-text index",
		},
	)

	// registry Prometheus注册表.
	registry     = prometheus.NewRegistry()
	registerOnce sync.Once
)

// InitMetrics 初始化Metrics.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			SearchRequests, SearchDuration, SearchPageCapped,
			CategoryReloads, IndexSyncedRows,
		)
	})

	return nil
}

// StartMetricsServer 在给定引擎上注册 /metrics 与可选的 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
