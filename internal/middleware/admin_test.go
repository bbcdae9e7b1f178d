package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/lobbyman/internal/model"
)

// mockAdminChecker はAdminCheckerのモック実装。
type mockAdminChecker struct {
	admins map[string]bool
}

func (m *mockAdminChecker) IsAdmin(uid string) bool {
	return m.admins[uid]
}

var _ AdminChecker = (*mockAdminChecker)(nil)

func runAdmin(t *testing.T, user *model.User, checker AdminChecker) *httptest.ResponseRecorder {
	t.Helper()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/config.set", nil)
	if user != nil {
		req = req.WithContext(ContextWithSessionUser(req.Context(), user))
	}
	w := httptest.NewRecorder()

	NewAdminMiddleware(checker)(next).ServeHTTP(w, req)
	return w
}

// TestAdminMiddleware_NoSession は未認証リクエストで401が返ることを検証する。
func TestAdminMiddleware_NoSession(t *testing.T) {
	w := runAdmin(t, nil, &mockAdminChecker{})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// TestAdminMiddleware_NonAdmin は一般ユーザーに403が返ることを検証する。
func TestAdminMiddleware_NonAdmin(t *testing.T) {
	w := runAdmin(t,
		&model.User{UID: "user@example.com"},
		&mockAdminChecker{admins: map[string]bool{"admin@example.com": true}},
	)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestAdminMiddleware_Admin は管理者が通過できることを検証する。
func TestAdminMiddleware_Admin(t *testing.T) {
	w := runAdmin(t,
		&model.User{UID: "admin@example.com"},
		&mockAdminChecker{admins: map[string]bool{"admin@example.com": true}},
	)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
