// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/session"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "sessionId"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionUserContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var sessionUserContextKey = contextKey("session_user")

// SessionValidator はセッションIDの検証に必要なインターフェース。
// session.Registryの部分集合として定義する。
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (*model.User, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// レコードがない場合と、同一ユーザーの新しいセッションに
// 追い越されている場合とでメッセージを区別する。
// 認証済みユーザーをリクエストコンテキストに注入する。
func NewSessionMiddleware(validator SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
				return
			}

			user, err := validator.Validate(r.Context(), cookie.Value)
			switch {
			case errors.Is(err, session.ErrInvalid):
				WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Invalid session"))
				return
			case errors.Is(err, session.ErrExpired):
				WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Session expired"))
				return
			case err != nil:
				slog.Error("failed to validate session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w, r)
				return
			}

			ctx := ContextWithSessionUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionUserFrom はリクエストコンテキストから認証済みユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SessionUserFrom(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(sessionUserContextKey).(*model.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// ContextWithSessionUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSessionUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, sessionUserContextKey, user)
}
