package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/session"
)

// mockSessionValidator はSessionValidatorのモック実装。
type mockSessionValidator struct {
	validateFunc func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockSessionValidator) Validate(ctx context.Context, sessionID string) (*model.User, error) {
	return m.validateFunc(ctx, sessionID)
}

var _ SessionValidator = (*mockSessionValidator)(nil)

func runSession(t *testing.T, validator SessionValidator, cookie *http.Cookie) (*httptest.ResponseRecorder, *model.User) {
	t.Helper()

	var captured *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := SessionUserFrom(r.Context()); ok {
			captured = user
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/lobby", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()

	NewSessionMiddleware(validator)(next).ServeHTTP(w, req)
	return w, captured
}

// TestSessionMiddleware_MissingCookie はCookieなしで401が返ることを検証する。
func TestSessionMiddleware_MissingCookie(t *testing.T) {
	validator := &mockSessionValidator{
		validateFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			t.Fatal("validator should not be called")
			return nil, nil
		},
	}

	w, _ := runSession(t, validator, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized || body.Message != "Missing session" {
		t.Errorf("unexpected body: %+v", body)
	}
}

// TestSessionMiddleware_InvalidSession はレコードのないセッションで401が返ることを検証する。
func TestSessionMiddleware_InvalidSession(t *testing.T) {
	validator := &mockSessionValidator{
		validateFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, session.ErrInvalid
		},
	}

	w, _ := runSession(t, validator, &http.Cookie{Name: SessionCookieName, Value: "sid-1"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "Invalid session" {
		t.Errorf("message = %q, want %q", body.Message, "Invalid session")
	}
}

// TestSessionMiddleware_ExpiredSession は新しいセッションに追い越された場合の
// メッセージを検証する。
func TestSessionMiddleware_ExpiredSession(t *testing.T) {
	validator := &mockSessionValidator{
		validateFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, session.ErrExpired
		},
	}

	w, _ := runSession(t, validator, &http.Cookie{Name: SessionCookieName, Value: "sid-old"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "Session expired" {
		t.Errorf("message = %q, want %q", body.Message, "Session expired")
	}
}

// TestSessionMiddleware_ValidSession は認証済みユーザーがコンテキストへ
// 注入されることを検証する。
func TestSessionMiddleware_ValidSession(t *testing.T) {
	validator := &mockSessionValidator{
		validateFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "sid-1" {
				t.Errorf("sessionID = %q, want %q", sessionID, "sid-1")
			}
			return &model.User{UID: "user@example.com", Name: "Alice"}, nil
		},
	}

	w, captured := runSession(t, validator, &http.Cookie{Name: SessionCookieName, Value: "sid-1"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured == nil || captured.UID != "user@example.com" {
		t.Errorf("unexpected context user: %+v", captured)
	}
}
