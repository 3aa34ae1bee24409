// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal 按方法、路由和状态码统计入站请求
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evalassist_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// UpstreamDuration 出站调用耗时
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evalassist_upstream_duration_seconds",
		Help:    "Time spent waiting on the digitization and completion endpoints.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"operation"})

	// UpstreamFailures 出站调用失败次数，kind 为错误类型
	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evalassist_upstream_failures_total",
		Help: "Failed calls to the remote endpoints by operation and error kind.",
	}, []string{"operation", "kind"})

	// UploadBytes 上传文件大小分布
	UploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "evalassist_upload_bytes",
		Help:    "Size of uploaded documents.",
		Buckets: prometheus.ExponentialBuckets(16<<10, 4, 6),
	})

	// WebSocketSessions 当前活跃的 websocket 会话数
	WebSocketSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evalassist_websocket_sessions",
		Help: "Number of open refinement websocket sessions.",
	})
)
