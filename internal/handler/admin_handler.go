package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/model"
)

// AdminLobbyServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminLobbyServiceInterface interface {
	// SetConfig はロビー設定を更新し、スナップショットを配信する。
	SetConfig(ctx context.Context, cfg model.LobbyConfig) error
	// CreateRoomFor は指定メンバーまたは待機列の先頭からルームを手動作成する。
	CreateRoomFor(ctx context.Context, uids []string) (string, error)
}

// AdminHandler は管理操作のHTTPハンドラー。
// 認可はルーター側のセッション＋管理者ミドルウェアで済ませてある。
type AdminHandler struct {
	lobby AdminLobbyServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(lobby AdminLobbyServiceInterface) *AdminHandler {
	return &AdminHandler{lobby: lobby}
}

// setConfigRequest は設定変更リクエストのボディ。
// 省略や型違いを検出するためポインタで受ける。
type setConfigRequest struct {
	RoomSize  *int  `json:"roomSize"`
	AutoMatch *bool `json:"autoMatch"`
}

// createRoomRequest はルーム手動作成リクエストのボディ。
type createRoomRequest struct {
	UIDs []string `json:"uids"`
}

// SetConfig はロビー設定を更新する。
// roomSizeは0以上の整数、autoMatchは真偽値でなければならない。
// POST /admin/config.set
func (h *AdminHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomSize == nil || req.AutoMatch == nil {
		middleware.WriteErrorResponse(w, r, http.StatusBadRequest, model.NewInvalidConfigError())
		return
	}

	cfg := model.LobbyConfig{RoomSize: *req.RoomSize, AutoMatch: *req.AutoMatch}
	if err := h.lobby.SetConfig(r.Context(), cfg); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

// CreateRoom はルームを手動作成する。
// uidsを省略すると待機列の先頭から現在のroomSize人を取り出す。
// POST /admin/room.create
func (h *AdminHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	// ボディなしは待機列からの取り出しとして扱う。
	_ = json.NewDecoder(r.Body).Decode(&req)

	roomID, err := h.lobby.CreateRoomFor(r.Context(), req.UIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"roomId": roomID})
}
