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
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordTokenIssued()
	RecordShareView(result string)
	RecordShareReply(result string)
	RecordMailSent()
	RecordMailFailure()
	RecordHTTPStatus(statusCode int)
	RecordShareViewLatency(duration time.Duration)
	RecordTokensDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokensIssued     prometheus.Counter
	shareViews       *prometheus.CounterVec
	shareReplies     *prometheus.CounterVec
	mailSent         prometheus.Counter
	mailFail         prometheus.Counter
	httpStatus       *prometheus.CounterVec
	shareViewLatency prometheus.Histogram
	tokensDeleted    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_share_tokens_issued_total",
			Help: "発行された共有アクセストークンの合計数",
		}),
		shareViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_share_views_total",
			Help: "共有リンク閲覧の結果別合計数",
		}, []string{"result"}),
		shareReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_share_replies_total",
			Help: "共有リンク経由の返信の結果別合計数",
		}, []string{"result"}),
		mailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_mail_sent_total",
			Help: "送信に成功した共有通知メールの合計数",
		}),
		mailFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_mail_fail_total",
			Help: "送信に失敗した共有通知メールの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		shareViewLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "todo_share_view_latency_seconds",
			Help:    "共有リンク閲覧処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tokensDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_share_tokens_deleted_total",
			Help: "保持期間超過で削除された共有トークンの合計数",
		}),
	}

	reg.MustRegister(
		c.tokensIssued,
		c.shareViews,
		c.shareReplies,
		c.mailSent,
		c.mailFail,
		c.httpStatus,
		c.shareViewLatency,
		c.tokensDeleted,
	)

	return c
}

// RecordTokenIssued はアクセストークン発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordShareView は共有リンク閲覧の結果を記録する。
// result: "success", "not_found", "expired", "used", "error"
func (c *Collector) RecordShareView(result string) {
	c.shareViews.WithLabelValues(result).Inc()
}

// RecordShareReply は共有リンク経由の返信の結果を記録する。
// result: "success", "not_found", "expired", "limit", "error"
func (c *Collector) RecordShareReply(result string) {
	c.shareReplies.WithLabelValues(result).Inc()
}

// RecordMailSent は通知メール送信成功を記録する。
func (c *Collector) RecordMailSent() {
	c.mailSent.Inc()
}

// RecordMailFailure は通知メール送信失敗を記録する。
func (c *Collector) RecordMailFailure() {
	c.mailFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordShareViewLatency は共有リンク閲覧処理のレイテンシを記録する。
func (c *Collector) RecordShareViewLatency(duration time.Duration) {
	c.shareViewLatency.Observe(duration.Seconds())
}

// RecordTokensDeleted は保持期間超過で削除されたトークン数を記録する。
func (c *Collector) RecordTokensDeleted(count int64) {
	c.tokensDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
