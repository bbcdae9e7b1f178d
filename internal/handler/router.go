package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lobbyman/internal/metrics"
	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/store"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionValidator  middleware.SessionValidator
	AdminChecker      middleware.AdminChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           *metrics.Collector
	Gatherer          prometheus.Gatherer

	// サービス
	AuthService  AuthServiceInterface
	AuthConfig   AuthHandlerConfig
	LobbyService LobbyServiceInterface
	RoomService  RoomServiceInterface
	AdminService AdminLobbyServiceInterface

	// インフラ
	HealthChecker store.HealthChecker
	WSHandler     http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS
//	→ (認証ルートのみ) Session → RateLimit(General)
//
// ログイン・ヘルスチェック・メトリクスはミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	lobbyHandler := NewLobbyHandler(deps.LobbyService)
	roomHandler := NewRoomHandler(deps.RoomService)
	adminHandler := NewAdminHandler(deps.AdminService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	sessionMW := middleware.NewSessionMiddleware(deps.SessionValidator)
	adminMW := middleware.NewAdminMiddleware(deps.AdminChecker)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	r.Post("/auth/google", authHandler.Login)
	r.Post("/admin/auth/google", authHandler.AdminLogin)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(sessionMW)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		r.Route("/lobby", func(r chi.Router) {
			r.Get("/", lobbyHandler.GetLobby)
			r.Post("/join", lobbyHandler.Join)
			r.Post("/leave", lobbyHandler.Leave)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", roomHandler.List)
			r.Route("/{roomId}", func(r chi.Router) {
				r.Get("/", roomHandler.Get)
				r.Post("/leave", roomHandler.Leave)
				// チャット送信には専用レート制限を重ねる
				r.With(deps.RateLimiter.ChatMiddleware()).Post("/chat.send", roomHandler.SendMessage)
			})
		})

		// 管理ルート: Session → RateLimit → Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminMW)
			r.Get("/me", authHandler.Me)
			r.Get("/lobby", lobbyHandler.GetLobby)
			r.Get("/rooms", roomHandler.List)
			r.Post("/config.set", adminHandler.SetConfig)
			r.Post("/room.create", adminHandler.CreateRoom)
		})
	})

	// WebSocketはセッション検証のみ通し、レート制限は掛けない
	r.Group(func(r chi.Router) {
		r.Use(sessionMW)
		r.Method(http.MethodGet, "/ws", deps.WSHandler)
	})

	return r
}
