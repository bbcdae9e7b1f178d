package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/model"
)

// maxMessageIDLength はクライアント採番のmessageIdの最大長。
const maxMessageIDLength = 64

// RoomServiceInterface はルームハンドラーが必要とするサービスインターフェース。
type RoomServiceInterface interface {
	// List は全ルームをメンバー情報付きで返す。
	List(ctx context.Context) ([]model.Room, error)
	// Get は単一ルームの詳細を返す。存在しなければNOT_FOUND。
	Get(ctx context.Context, roomID string) (*model.RoomDetail, error)
	// Leave はユーザーをルームから退出させる。
	Leave(ctx context.Context, roomID, uid string) error
	// SendMessage はメンバー確認の上でチャットを送信する。
	SendMessage(ctx context.Context, roomID string, sender model.User, messageID, text string) (*model.Message, error)
}

// RoomHandler はルームのHTTPハンドラー。
type RoomHandler struct {
	service RoomServiceInterface
}

// NewRoomHandler はRoomHandlerを生成する。
func NewRoomHandler(service RoomServiceInterface) *RoomHandler {
	return &RoomHandler{service: service}
}

// roomsResponse はルーム一覧のAPIレスポンス。
type roomsResponse struct {
	Rooms []model.Room `json:"rooms"`
}

// sendMessageRequest はチャット送信リクエストのボディ。
type sendMessageRequest struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// List は全ルームを返す。
// GET /rooms および GET /admin/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(roomsResponse{Rooms: rooms})
}

// Get はルーム詳細（メンバーと直近メッセージ）を返す。
// GET /rooms/{roomId}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	room, err := h.service.Get(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

// Leave はルームからの退出を処理する。
// POST /rooms/{roomId}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
		return
	}
	roomID := chi.URLParam(r, "roomId")

	if err := h.service.Leave(r.Context(), roomID, user.UID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

// SendMessage はチャット送信を処理する。
// messageIdは1〜64文字、textは1〜500文字でなければならない。
// POST /rooms/{roomId}/chat.send
func (h *RoomHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
		return
	}
	roomID := chi.URLParam(r, "roomId")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, r, http.StatusBadRequest, model.NewBadRequestError("Invalid message"))
		return
	}
	if req.MessageID == "" || len([]rune(req.MessageID)) > maxMessageIDLength ||
		req.Text == "" || len([]rune(req.Text)) > model.MaxMessageLength {
		middleware.WriteErrorResponse(w, r, http.StatusBadRequest, model.NewBadRequestError("Invalid message"))
		return
	}

	if _, err := h.service.SendMessage(r.Context(), roomID, *user, req.MessageID, req.Text); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"accepted": true})
}
