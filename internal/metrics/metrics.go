// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ミドルウェア・ワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(method, outcome string)
	RecordProfileBootstrap(outcome string)
	RecordSessionPoll(attempts int, established bool)
	RecordSessionTransition(from, to string)
	RecordPayment(method, outcome string)
	RecordSubscriptionsExpired(count int64)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins             *prometheus.CounterVec
	profileBootstrap   *prometheus.CounterVec
	sessionPoll        *prometheus.HistogramVec
	sessionTransitions *prometheus.CounterVec
	payments           *prometheus.CounterVec
	subsExpired        prometheus.Counter
	httpStatus         *prometheus.CounterVec
	requestLatency     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnhub_logins_total",
			Help: "ログイン試行の合計数（方式・結果別）",
		}, []string{"method", "outcome"}),
		profileBootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnhub_profile_bootstrap_total",
			Help: "プロフィール確保の結果別の合計数",
		}, []string{"outcome"}),
		sessionPoll: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "learnhub_oauth_session_poll_attempts",
			Help:    "OAuth完了待ちでセッション確認を行った回数",
			Buckets: []float64{1, 2, 3, 4, 5, 10},
		}, []string{"established"}),
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnhub_session_transitions_total",
			Help: "認証状態遷移の合計数",
		}, []string{"from", "to"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnhub_payments_total",
			Help: "決済試行の合計数（方式・結果別）",
		}, []string{"method", "outcome"}),
		subsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "learnhub_subscriptions_expired_total",
			Help: "期限切れにより失効させた購読の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "learnhub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "learnhub_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.logins,
		c.profileBootstrap,
		c.sessionPoll,
		c.sessionTransitions,
		c.payments,
		c.subsExpired,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordLogin はログイン試行を記録する。methodはpassword/oauth/signup。
func (c *Collector) RecordLogin(method, outcome string) {
	c.logins.WithLabelValues(method, outcome).Inc()
}

// RecordProfileBootstrap はプロフィール確保の結果を記録する。
func (c *Collector) RecordProfileBootstrap(outcome string) {
	c.profileBootstrap.WithLabelValues(outcome).Inc()
}

// RecordSessionPoll はOAuth完了待ちのポーリング回数を記録する。
func (c *Collector) RecordSessionPoll(attempts int, established bool) {
	c.sessionPoll.WithLabelValues(strconv.FormatBool(established)).Observe(float64(attempts))
}

// RecordSessionTransition は認証状態遷移を記録する。
func (c *Collector) RecordSessionTransition(from, to string) {
	c.sessionTransitions.WithLabelValues(from, to).Inc()
}

// RecordPayment は決済試行を記録する。
func (c *Collector) RecordPayment(method, outcome string) {
	c.payments.WithLabelValues(method, outcome).Inc()
}

// RecordSubscriptionsExpired は失効させた購読数を記録する。
func (c *Collector) RecordSubscriptionsExpired(count int64) {
	c.subsExpired.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordLogin(string, string) {}
func (Nop) RecordProfileBootstrap(string) {}
func (Nop) RecordSessionPoll(int, bool) {}
func (Nop) RecordSessionTransition(string, string) {}
func (Nop) RecordPayment(string, string) {}
func (Nop) RecordSubscriptionsExpired(int64) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
