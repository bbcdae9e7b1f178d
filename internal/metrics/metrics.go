// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ワーカー・WebSocketハブから利用する。
type MetricsCollector interface {
	RecordEventPublished(channel string)
	RecordChatMessage()
	RecordRoomCreated()
	RecordRoomDestroyed()
	RecordMatchFormed()
	RecordHTTPStatus(statusCode int)
	SetConnections(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	eventsPublished *prometheus.CounterVec
	chatMessages    prometheus.Counter
	roomsCreated    prometheus.Counter
	roomsDestroyed  prometheus.Counter
	matchesFormed   prometheus.Counter
	httpStatus      *prometheus.CounterVec
	connections     prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobbyman_events_published_total",
			Help: "チャンネル別の発行イベント合計数",
		}, []string{"channel"}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbyman_chat_messages_total",
			Help: "送信されたチャットメッセージの合計数",
		}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbyman_rooms_created_total",
			Help: "作成されたルームの合計数",
		}),
		roomsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbyman_rooms_destroyed_total",
			Help: "破棄されたルームの合計数",
		}),
		matchesFormed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobbyman_matches_formed_total",
			Help: "オートマッチ成立の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobbyman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lobbyman_ws_connections",
			Help: "現在のWebSocket接続数",
		}),
	}

	reg.MustRegister(
		c.eventsPublished,
		c.chatMessages,
		c.roomsCreated,
		c.roomsDestroyed,
		c.matchesFormed,
		c.httpStatus,
		c.connections,
	)

	return c
}

// RecordEventPublished はイベント発行を記録する。
func (c *Collector) RecordEventPublished(channel string) {
	c.eventsPublished.WithLabelValues(channel).Inc()
}

// RecordChatMessage はチャット送信を記録する。
func (c *Collector) RecordChatMessage() {
	c.chatMessages.Inc()
}

// RecordRoomCreated はルーム作成を記録する。
func (c *Collector) RecordRoomCreated() {
	c.roomsCreated.Inc()
}

// RecordRoomDestroyed はルーム破棄を記録する。
func (c *Collector) RecordRoomDestroyed() {
	c.roomsDestroyed.Inc()
}

// RecordMatchFormed はオートマッチ成立を記録する。
func (c *Collector) RecordMatchFormed() {
	c.matchesFormed.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetConnections は現在のWebSocket接続数を記録する。
func (c *Collector) SetConnections(n int) {
	c.connections.Set(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	return Handler(gatherer)
}
