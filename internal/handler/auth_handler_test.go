package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFunc      func(ctx context.Context, idToken string) (*model.Session, error)
	loginAdminFunc func(ctx context.Context, idToken string) (*model.Session, error)
	logoutFunc     func(ctx context.Context, uid string) error
}

func (m *mockAuthService) Login(ctx context.Context, idToken string) (*model.Session, error) {
	return m.loginFunc(ctx, idToken)
}

func (m *mockAuthService) LoginAdmin(ctx context.Context, idToken string) (*model.Session, error) {
	return m.loginAdminFunc(ctx, idToken)
}

func (m *mockAuthService) Logout(ctx context.Context, uid string) error {
	return m.logoutFunc(ctx, uid)
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{CookieSecure: false, SessionMaxAge: 3600}
}

// TestAuthHandler_Login_Success はログイン成功時にCookieとユーザーが返ることを検証する。
func TestAuthHandler_Login_Success(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, idToken string) (*model.Session, error) {
			if idToken != "token-1" {
				t.Errorf("idToken = %q, want %q", idToken, "token-1")
			}
			return &model.Session{ID: "sid-1", User: model.User{UID: "user@example.com", Name: "Alice"}}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"id_token":"token-1"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.User.UID != "user@example.com" || body.User.Name != "Alice" {
		t.Errorf("unexpected user: %+v", body.User)
	}

	cookies := w.Result().Cookies()
	var found *http.Cookie
	for _, c := range cookies {
		if c.Name == middleware.SessionCookieName {
			found = c
		}
	}
	if found == nil {
		t.Fatal("session cookie should be set")
	}
	if found.Value != "sid-1" || !found.HttpOnly || found.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie: %+v", found)
	}
	if found.MaxAge != 3600 {
		t.Errorf("cookie MaxAge = %d, want 3600", found.MaxAge)
	}
}

// TestAuthHandler_Login_MissingToken はid_tokenなしで400が返ることを検証する。
func TestAuthHandler_Login_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestAuthHandler_Login_InvalidToken はトークン検証失敗で401が返ることを検証する。
func TestAuthHandler_Login_InvalidToken(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, idToken string) (*model.Session, error) {
			return nil, model.NewInvalidTokenError("Unable to verify token")
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/google", strings.NewReader(`{"id_token":"bad"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body middleware.ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInvalidToken {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidToken)
	}
}

// TestAuthHandler_AdminLogin_Forbidden は非管理者の管理ログインで403が返ることを検証する。
func TestAuthHandler_AdminLogin_Forbidden(t *testing.T) {
	service := &mockAuthService{
		loginAdminFunc: func(ctx context.Context, idToken string) (*model.Session, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/admin/auth/google", strings.NewReader(`{"id_token":"token-1"}`))
	w := httptest.NewRecorder()
	h.AdminLogin(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestAuthHandler_Logout はログアウトでCookieが削除されることを検証する。
func TestAuthHandler_Logout(t *testing.T) {
	var loggedOut string
	service := &mockAuthService{
		logoutFunc: func(ctx context.Context, uid string) error {
			loggedOut = uid
			return nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(middleware.ContextWithSessionUser(req.Context(), &model.User{UID: "user@example.com"}))
	w := httptest.NewRecorder()
	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if loggedOut != "user@example.com" {
		t.Errorf("logout uid = %q, want %q", loggedOut, "user@example.com")
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge != -1 {
		t.Error("session cookie should be cleared")
	}
}

// TestAuthHandler_Me はコンテキストのユーザーが返ることを検証する。
func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(middleware.ContextWithSessionUser(req.Context(), &model.User{UID: "user@example.com", Name: "Alice"}))
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.User.Name != "Alice" {
		t.Errorf("unexpected user: %+v", body.User)
	}
}
