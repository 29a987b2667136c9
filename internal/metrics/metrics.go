package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spin_engine"

// 标签名
const (
	LabelGame    = "game"
	LabelFeature = "feature"
	LabelCode    = "code"
	LabelSource  = "source"
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelState   = "state"
)

// 旋转指标
var (
	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "已提交的旋转次数",
		},
		[]string{LabelGame, LabelFeature},
	)

	SpinFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spin_failures_total",
			Help:      "按错误码统计的失败旋转",
		},
		[]string{LabelGame, LabelCode},
	)

	WageredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wagered_total",
			Help:      "累计投注额（最小货币单位）",
		},
		[]string{LabelGame},
	)

	PaidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paid_total",
			Help:      "累计派彩额（最小货币单位）",
		},
		[]string{LabelGame},
	)

	SpinDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spin_duration_seconds",
			Help:      "旋转流水线耗时",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 3},
		},
		[]string{LabelGame},
	)

	LedgerCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_commit_duration_seconds",
			Help:      "账本事务耗时",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// 会话与状态机指标
var (
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "内存中的活跃会话数",
		},
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "状态机进入各状态的次数",
		},
		[]string{LabelState},
	)

	CatalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookups_total",
			Help:      "游戏配置解析来源：cache/remote/static",
		},
		[]string{LabelSource},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "已连接的展示端数",
		},
	)
)

// HTTP 指标
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP 请求数",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)

// SpinRecorder 把旋转流水线的事件写入 prometheus
type SpinRecorder struct{}

// ObserveSpin 记录一次成功提交的旋转
func (SpinRecorder) ObserveSpin(gameID string, wager, payout int64, feature string, elapsed time.Duration) {
	if feature == "" {
		feature = "none"
	}
	SpinsTotal.WithLabelValues(gameID, feature).Inc()
	WageredTotal.WithLabelValues(gameID).Add(float64(wager))
	PaidTotal.WithLabelValues(gameID).Add(float64(payout))
	SpinDuration.WithLabelValues(gameID).Observe(elapsed.Seconds())
}

// ObserveFailure 记录失败的旋转
func (SpinRecorder) ObserveFailure(gameID string, code int) {
	SpinFailures.WithLabelValues(gameID, strconv.Itoa(code)).Inc()
}

// ObserveCommit 记录账本事务耗时
func (SpinRecorder) ObserveCommit(elapsed time.Duration) {
	LedgerCommitDuration.Observe(elapsed.Seconds())
}

// GinMiddleware 记录请求数与耗时，路径使用路由模板避免高基数
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
