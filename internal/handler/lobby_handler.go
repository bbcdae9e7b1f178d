package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/model"
)

// LobbyServiceInterface はロビーハンドラーが必要とするサービスインターフェース。
type LobbyServiceInterface interface {
	// Snapshot は現在の待機列と設定を返す。
	Snapshot(ctx context.Context) (*model.LobbySnapshot, error)
	// Join はユーザーを待機列の末尾へ移す。
	Join(ctx context.Context, uid string) error
	// Leave はユーザーを待機列から外す。
	Leave(ctx context.Context, uid string) error
}

// LobbyHandler はロビーのHTTPハンドラー。
type LobbyHandler struct {
	service LobbyServiceInterface
}

// NewLobbyHandler はLobbyHandlerを生成する。
func NewLobbyHandler(service LobbyServiceInterface) *LobbyHandler {
	return &LobbyHandler{service: service}
}

// snapshotResponse はロビースナップショットのAPIレスポンス。
type snapshotResponse struct {
	Snapshot model.LobbySnapshot `json:"snapshot"`
}

// GetLobby は現在のロビー状態を返す。
// GET /lobby および GET /admin/lobby
func (h *LobbyHandler) GetLobby(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshotResponse{Snapshot: *snapshot})
}

// Join は待機列への参加を処理する。冪等。
// POST /lobby/join
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
		return
	}

	if err := h.service.Join(r.Context(), user.UID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

// Leave は待機列からの離脱を処理する。並んでいなくても成功。
// POST /lobby/leave
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
		return
	}

	if err := h.service.Leave(r.Context(), user.UID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}
