package middleware

import (
	"net/http"

	"github.com/hitoshi/lobbyman/internal/model"
)

// AdminChecker は管理者判定に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type AdminChecker interface {
	IsAdmin(uid string) bool
}

// NewAdminMiddleware は認証済みユーザーが管理者でない場合に
// 403を返すミドルウェアを生成する。セッションミドルウェアの後に配置する。
func NewAdminMiddleware(checker AdminChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := SessionUserFrom(r.Context())
			if !ok {
				WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError("Missing session"))
				return
			}
			if !checker.IsAdmin(user.UID) {
				WriteErrorResponse(w, r, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
