// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はストアフロントのPrometheusメトリクスを収集する実装。
// カート、カタログキャッシュ、バックエンド呼び出し、HTTPリクエスト、
// クリーンアップジョブの各記録インターフェースを満たす。
type Collector struct {
	cartChanges     *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	catalogCache    *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	cleanupDeleted  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cartChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_changes_total",
			Help: "種別ごとのカート変更数",
		}, []string{"kind"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "結果ごとのチェックアウト数",
		}, []string{"result"}),
		catalogCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_cache_total",
			Help: "カタログキャッシュのヒット・ミス数",
		}, []string{"result"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_backend_requests_total",
			Help: "操作とステータスコード別のバックエンドリクエスト数",
		}, []string{"operation", "status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_backend_latency_seconds",
			Help:    "バックエンドリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "メソッドとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_latency_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cleanup_deleted_total",
			Help: "クリーンアップジョブで削除したレコード数",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.cartChanges,
		c.checkouts,
		c.catalogCache,
		c.backendRequests,
		c.backendLatency,
		c.httpRequests,
		c.httpLatency,
		c.cleanupDeleted,
	)

	return c
}

// RecordCartChange はカート変更を種別ごとに記録する。
func (c *Collector) RecordCartChange(kind string) {
	c.cartChanges.WithLabelValues(kind).Inc()
}

// RecordCheckout はチェックアウト結果を記録する。
func (c *Collector) RecordCheckout(result string) {
	c.checkouts.WithLabelValues(result).Inc()
}

// RecordCatalogCache はカタログキャッシュのヒット・ミスを記録する。
func (c *Collector) RecordCatalogCache(result string) {
	c.catalogCache.WithLabelValues(result).Inc()
}

// ObserveBackendRequest はバックエンドへのリクエスト結果とレイテンシを記録する。
// 通信エラーでレスポンスがない場合、statusCodeは0になる。
func (c *Collector) ObserveBackendRequest(operation string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest はブラウザからのHTTPリクエストを記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCleanupDeleted はクリーンアップで削除した件数を記録する。
func (c *Collector) RecordCleanupDeleted(target string, count int64) {
	c.cleanupDeleted.WithLabelValues(target).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
