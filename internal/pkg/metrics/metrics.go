package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec
	// 仮押さえ要求の総数（status: pending, failed, undetermined, error）
	BookingsTotal *prometheus.CounterVec
	// 確定要求の総数（status: confirmed, not_found, invalid_state, expired, error）
	ConfirmationsTotal *prometheus.CounterVec
	// 一時的な競合によるリトライ回数（reason: serialization, deadlock, version_conflict）
	BookingRetriesTotal *prometheus.CounterVec
	// 期限切れで失敗にした予約の総数
	BookingsReclaimedTotal prometheus.Counter
	// 回収ティックの処理時間（status: success, error）
	ReclaimTickDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of seat hold attempts by outcome",
			},
			[]string{"status"},
		),
		ConfirmationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_confirmations_total",
				Help: "Total number of booking confirmations by outcome",
			},
			[]string{"status"},
		),
		BookingRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_retries_total",
				Help: "Total number of reservation attempts retried after a transient conflict",
			},
			[]string{"reason"},
		),
		BookingsReclaimedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookings_reclaimed_total",
				Help: "Total number of pending bookings failed by the expiry reclaimer",
			},
		),
		ReclaimTickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reclaim_tick_duration_seconds",
				Help:    "Time spent on one expiry reclaim tick",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"status"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.ConfirmationsTotal,
		m.BookingRetriesTotal,
		m.BookingsReclaimedTotal,
		m.ReclaimTickDuration,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
