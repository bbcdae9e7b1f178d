// Package ws はWebSocketによるイベントのライブ配信を提供する。
//
// Hubは同一プロセス内の全接続を保持し、チャンネル別のファンアウトを行う。
// 死活監視は接続ごとの書き込みポンプがping、読み取りポンプが
// 読み取り期限で受け持つ。
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/lobbyman/internal/model"
)

// sendBufferSize は接続ごとの送信バッファ長。あふれた接続は
// 追いつけないクライアントとみなして切断する。
const sendBufferSize = 32

// writeWait は1フレームの書き込みに許す時間。
const writeWait = 5 * time.Second

// ConnectionsRecorder は現在接続数メトリクスの記録先。
type ConnectionsRecorder interface {
	SetConnections(n int)
}

// Client は1本のWebSocket接続を表す。
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	user     model.User
	channels map[string]bool

	once sync.Once
}

// User は接続主のユーザー情報を返す。
func (c *Client) User() model.User {
	return c.user
}

// subscribed はこの接続が指定チャンネルを購読しているかを返す。
func (c *Client) subscribed(channel string) bool {
	return c.channels[channel]
}

// trySend は送信バッファへの投入を試みる。満杯ならfalseを返す。
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close は送信チャネルと接続を一度だけ閉じる。
func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// Hub は接続の登録・解除とチャンネル別ブロードキャストを行う。
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	metrics ConnectionsRecorder
}

// NewHub はHubを生成する。metricsはnil可。
func NewHub(metrics ConnectionsRecorder) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		metrics: metrics,
	}
}

// Register は接続をハブに登録する。
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.recordConnections(n)
}

// Unregister は接続をハブから外し、閉じる。二重呼び出しは無害。
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.close()
		h.recordConnections(n)
	}
}

// Broadcast は指定チャンネルの購読者全員にデータを配る。
// バッファの詰まった接続はその場で切り離す。
func (h *Hub) Broadcast(channel string, data []byte) {
	h.mu.RLock()
	var stalled []*Client
	for c := range h.clients {
		if !c.subscribed(channel) {
			continue
		}
		if !c.trySend(data) {
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		slog.Warn("dropping slow websocket client", "uid", c.user.UID)
		h.Unregister(c)
	}
}

// CloseAll は全接続を閉じる。シャットダウン時に使う。
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.recordConnections(0)
}

func (h *Hub) recordConnections(n int) {
	if h.metrics != nil {
		h.metrics.SetConnections(n)
	}
}
