package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/lobbyman/internal/event"
	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/model"
)

// subscribeWait は購読メッセージの到着を待つ時間。
const subscribeWait = 10 * time.Second

// EventStream はイベントの発行と再送を提供する。
type EventStream interface {
	Publish(ctx context.Context, channel, eventType string, payload any) (*model.Event, error)
	ReplaySince(ctx context.Context, channel string, lastEventID int64) ([]model.Event, error)
}

// subscribeRequest は接続直後にクライアントが送る購読指定。
type subscribeRequest struct {
	Channels []string `json:"channels"`
	Since    *struct {
		LastEventID int64 `json:"lastEventId"`
	} `json:"since"`
}

// Handler はWebSocketエンドポイントのハンドラー。
// セッション検証はルーター側のセッションミドルウェアで済ませてあり、
// ここではコンテキストのユーザーを前提にアップグレードする。
type Handler struct {
	hub          *Hub
	stream       EventStream
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewHandler はWebSocketハンドラーを生成する。
// allowedOriginが空でなければ、それ以外のOriginからの接続を拒否する。
func NewHandler(hub *Hub, stream EventStream, pingInterval time.Duration, allowedOrigin string) *Handler {
	return &Handler{
		hub:          hub,
		stream:       stream,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// ServeHTTP は接続をアップグレードし、購読・再送・ファンアウトを開始する。
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub, err := h.readSubscribe(conn)
	if err != nil {
		slog.Warn("invalid subscribe message", "uid", user.UID, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid subscribe"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		user:     *user,
		channels: sub.channels,
	}

	// 登録を先に済ませ、再送中に発行されたイベントを送信バッファで受ける。
	// 再送はポンプ起動前に直接書き、バッファ分はeventIdで重複を除いて
	// 後から流す。起動後の書き込みはwritePumpに一本化する。
	h.hub.Register(client)

	if sub.since != nil {
		replayed, err := h.replay(r.Context(), conn, sub)
		if err != nil {
			slog.Warn("replay failed", "uid", user.UID, "error", err)
			h.hub.Unregister(client)
			return
		}
		if err := h.flushBuffered(client, replayed); err != nil {
			slog.Warn("replay flush failed", "uid", user.UID, "error", err)
			h.hub.Unregister(client)
			return
		}
	}

	go h.writePump(client)
	go h.readPump(client)

	if _, err := h.stream.Publish(r.Context(), event.ChannelUser, event.TypeUserConnected, model.UserEventPayload{User: *user}); err != nil {
		slog.Error("failed to publish user.connected", "uid", user.UID, "error", err)
	}
	slog.Info("websocket connected", "uid", user.UID, "channels", sub.names)
}

type subscription struct {
	channels map[string]bool
	names    []string
	since    *int64
}

// readSubscribe は最初のメッセージを購読指定として読み取る。
// 未知のチャンネルや空の指定はエラーにする。
func (h *Handler) readSubscribe(conn *websocket.Conn) (*subscription, error) {
	if err := conn.SetReadDeadline(time.Now().Add(subscribeWait)); err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if len(req.Channels) == 0 {
		return nil, errors.New("no channels requested")
	}

	sub := &subscription{channels: make(map[string]bool)}
	for _, ch := range req.Channels {
		if !event.ValidChannel(ch) {
			return nil, errors.New("unknown channel: " + ch)
		}
		if sub.channels[ch] {
			continue
		}
		sub.channels[ch] = true
		sub.names = append(sub.names, ch)
	}
	if req.Since != nil {
		id := req.Since.LastEventID
		sub.since = &id
	}
	return sub, nil
}

// replay は購読チャンネルごとに欠落イベントを再送し、送ったeventIdの
// 集合を返す。保持範囲から落ちていた場合はresync.requiredを通知する。
func (h *Handler) replay(ctx context.Context, conn *websocket.Conn, sub *subscription) (map[int64]struct{}, error) {
	replayed := make(map[int64]struct{})
	for _, ch := range sub.names {
		events, err := h.stream.ReplaySince(ctx, ch, *sub.since)
		if errors.Is(err, event.ErrResyncRequired) {
			if werr := h.writeJSON(conn, map[string]string{"type": "resync.required", "channel": ch}); werr != nil {
				return nil, werr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if werr := h.writeJSON(conn, ev); werr != nil {
				return nil, werr
			}
			replayed[ev.EventID] = struct{}{}
		}
	}
	return replayed, nil
}

// flushBuffered は再送中に送信バッファへ積まれたライブイベントを書き出す。
// 再送で届いた分とはeventIdが重なり得るため、重複は読み捨てる。
func (h *Handler) flushBuffered(c *Client, replayed map[int64]struct{}) error {
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return errors.New("connection dropped during replay")
			}
			var head struct {
				EventID int64 `json:"eventId"`
			}
			if err := json.Unmarshal(data, &head); err == nil {
				if _, dup := replayed[head.EventID]; dup {
					continue
				}
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (h *Handler) writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// writePump は送信バッファの内容と定期pingを接続へ書く。
// この接続への書き込みはこのゴルーチンだけが行う。
func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		h.hub.Unregister(c)
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump は接続からの読み取りとpongによる死活確認を行う。
// 接続断で脱退イベントを発行するが、キューやルームには触れない。
func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		if _, err := h.stream.Publish(context.Background(), event.ChannelUser, event.TypeUserDisconnected, model.UserEventPayload{User: c.user}); err != nil {
			slog.Error("failed to publish user.disconnected", "uid", c.user.UID, "error", err)
		}
		slog.Info("websocket disconnected", "uid", c.user.UID)
	}()

	pongWait := h.pingInterval * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// 購読後のクライアント発メッセージは読み捨てる。
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
