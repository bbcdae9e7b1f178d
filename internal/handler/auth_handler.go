// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login はGoogleのIDトークンを検証し、新しいセッションを発行する。
	Login(ctx context.Context, idToken string) (*model.Session, error)
	// LoginAdmin はLoginに加えて管理者メールリストとの照合を行う。
	LoginAdmin(ctx context.Context, idToken string) (*model.Session, error)
	// Logout はユーザーのセッションを失効させ、待機列とルームから退出させる。
	Logout(ctx context.Context, uid string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はGoogle認証とセッション管理のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	IDToken string `json:"id_token"`
}

// userResponse は認証済みユーザーのAPIレスポンス。
type userResponse struct {
	User model.User `json:"user"`
}

// Login はGoogleのIDトークンでログインする。
// POST /auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.Login)
}

// AdminLogin は管理者としてログインする。管理者メール以外は403。
// POST /admin/auth/google
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.LoginAdmin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, authenticate func(ctx context.Context, idToken string) (*model.Session, error)) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		middleware.WriteErrorResponse(w, r, http.StatusBadRequest, model.NewBadRequestError("id_token required"))
		return
	}

	session, err := authenticate(r.Context(), req.IDToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{User: session.User})
}

// Logout はセッションを破棄し、待機列とルームから退出させる。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
		return
	}

	if err := h.service.Logout(r.Context(), user.UID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Cookieを削除
	h.setSessionCookie(w, "", -1)
	writeOK(w)
}

// Me は認証済みユーザー自身の情報を返す。
// GET /me および GET /admin/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{User: *user})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeServiceError はサービス層のエラーを統一フォーマットで書き込む。
// APIError以外は詳細をログのみに残して500を返す。
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, r, middleware.StatusForError(apiErr), apiErr)
		return
	}
	slog.Error("service error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w, r)
}

// writeOK は{"ok":true}を書き込む。
func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
