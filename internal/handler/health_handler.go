package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lobbyman/internal/store"
)

// HealthHandler はヘルスチェックのHTTPハンドラー。
// Redisへの疎通が取れない場合は503を返す。
type HealthHandler struct {
	checker store.HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(checker store.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health はストアの疎通を確認して状態を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.checker.Ping(r.Context()); err != nil {
		slog.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
