package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/lobbyman/internal/model"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    2,
		ChatRate:        rate.Limit(1),
		ChatBurst:       1,
		CleanupInterval: time.Hour,
	}
}

func doLimited(mw func(next http.Handler) http.Handler, uid string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/chat.send", nil)
	req = req.WithContext(ContextWithSessionUser(req.Context(), &model.User{UID: uid}))
	w := httptest.NewRecorder()

	mw(next).ServeHTTP(w, req)
	return w
}

// TestRateLimiter_GeneralBurstExceeded はバースト超過で429が返ることを検証する。
func TestRateLimiter_GeneralBurstExceeded(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	mw := rl.GeneralMiddleware()
	for i := 0; i < 2; i++ {
		if w := doLimited(mw, "u1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w := doLimited(mw, "u1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After header")
	}
}

// TestRateLimiter_PerUserIsolation はユーザーごとに独立して制限されることを検証する。
func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	mw := rl.ChatMiddleware()
	if w := doLimited(mw, "u1"); w.Code != http.StatusOK {
		t.Fatalf("u1 first request: status = %d", w.Code)
	}
	if w := doLimited(mw, "u1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("u1 second request: status = %d, want 429", w.Code)
	}
	if w := doLimited(mw, "u2"); w.Code != http.StatusOK {
		t.Errorf("u2 should not share u1's limiter: status = %d", w.Code)
	}
	if rl.ChatLimiterCount() != 2 {
		t.Errorf("expected 2 chat limiter entries, got %d", rl.ChatLimiterCount())
	}
}

// TestRateLimiter_ChatIndependentOfGeneral は2種類の制限が独立なことを検証する。
func TestRateLimiter_ChatIndependentOfGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	chat := rl.ChatMiddleware()
	general := rl.GeneralMiddleware()

	if w := doLimited(chat, "u1"); w.Code != http.StatusOK {
		t.Fatalf("chat request: status = %d", w.Code)
	}
	if w := doLimited(chat, "u1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("chat should be exhausted: status = %d", w.Code)
	}
	if w := doLimited(general, "u1"); w.Code != http.StatusOK {
		t.Errorf("general limit should be unaffected: status = %d", w.Code)
	}
}

// TestRateLimiter_NoSession は未認証リクエストに401が返ることを検証する。
func TestRateLimiter_NoSession(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/lobby", nil)
	w := httptest.NewRecorder()

	rl.GeneralMiddleware()(next).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
