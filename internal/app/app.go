package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/lobbyman/internal/auth"
	"github.com/hitoshi/lobbyman/internal/config"
	"github.com/hitoshi/lobbyman/internal/event"
	"github.com/hitoshi/lobbyman/internal/handler"
	"github.com/hitoshi/lobbyman/internal/lobby"
	"github.com/hitoshi/lobbyman/internal/logger"
	"github.com/hitoshi/lobbyman/internal/metrics"
	"github.com/hitoshi/lobbyman/internal/middleware"
	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/repository"
	"github.com/hitoshi/lobbyman/internal/room"
	"github.com/hitoshi/lobbyman/internal/security"
	"github.com/hitoshi/lobbyman/internal/session"
	"github.com/hitoshi/lobbyman/internal/store"
	"github.com/hitoshi/lobbyman/internal/worker/sweep"
	"github.com/hitoshi/lobbyman/internal/ws"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	default:
		return runServe(cfg)
	}
}

// services は共有ストアの上に組んだドメインサービス一式。
// serveとworkerで同じワイヤリングを使う。
type services struct {
	sessionRepo *repository.RedisSessionRepo
	lobbyRepo   *repository.RedisLobbyRepo
	roomRepo    *repository.RedisRoomRepo

	metrics  *metrics.Collector
	hub      *ws.Hub
	bus      *event.Bus
	roomSvc  *room.Service
	lobbySvc *lobby.Service
	sessions *session.Registry
	authSvc  *auth.Service
}

// buildServices はRedisクライアントの上に全ドメインサービスを組み立てる。
//
// 依存の向きは repo → bus → room → lobby → session registry → auth の一方向。
// セッションレジストリは退去時の後始末のためロビーとルームのサービスを
// 部分インターフェースとして参照する。
func buildServices(cfg *config.Config, client *redis.Client, reg prometheus.Registerer) *services {
	sessionRepo := repository.NewRedisSessionRepo(client)
	lobbyRepo := repository.NewRedisLobbyRepo(client, model.LobbyConfig{
		RoomSize:  cfg.DefaultRoomSize,
		AutoMatch: cfg.DefaultAutoMatch,
	})
	roomRepo := repository.NewRedisRoomRepo(client)
	eventRepo := repository.NewRedisEventRepo(client)

	collector := metrics.NewCollector(reg)
	hub := ws.NewHub(collector)
	bus := event.NewBus(eventRepo, hub, cfg.Epoch, cfg.RetainEvents, collector)

	sanitizer := security.NewChatSanitizer()
	roomSvc := room.NewService(roomRepo, sessionRepo, bus, sanitizer, collector)
	lobbySvc := lobby.NewService(lobbyRepo, roomSvc, sessionRepo, bus, collector)
	registry := session.NewRegistry(sessionRepo, lobbySvc, roomSvc, cfg.SessionTTL)

	verifier := auth.NewGoogleTokenVerifier(auth.GoogleVerifierConfig{
		ClientID:     cfg.GoogleClientID,
		TokeninfoURL: cfg.GoogleTokeninfoURL,
	})
	authSvc := auth.NewService(verifier, registry, cfg.AdminEmails)

	return &services{
		sessionRepo: sessionRepo,
		lobbyRepo:   lobbyRepo,
		roomRepo:    roomRepo,
		metrics:     collector,
		hub:         hub,
		bus:         bus,
		roomSvc:     roomSvc,
		lobbySvc:    lobbySvc,
		sessions:    registry,
		authSvc:     authSvc,
	}
}

// runServe はAPIサーバーモードで起動する。
// Redis接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストア接続
	client, err := store.Open(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to open redis: %w", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established")

	// 2. 依存関係のワイヤリング
	promReg := prometheus.NewRegistry()
	svcs := buildServices(cfg, client, promReg)

	wsHandler := ws.NewHandler(svcs.hub, svcs.bus, cfg.WSPingInterval, cfg.CORSAllowedOrigin)

	// 3. レート制限（configはreq/min単位なのでreq/secに変換する）
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.ChatRate = rate.Limit(float64(cfg.RateLimitChat) / 60.0)
	rlCfg.ChatBurst = cfg.RateLimitChat
	rateLimiter := middleware.NewRateLimiter(rlCfg)
	defer rateLimiter.Stop()

	// 4. ルーターの構築
	deps := &handler.RouterDeps{
		SessionValidator:  svcs.sessions,
		AdminChecker:      svcs.authSvc,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Metrics:           svcs.metrics,
		Gatherer:          promReg,

		AuthService: svcs.authSvc,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: int(cfg.SessionTTL / time.Second),
		},

		LobbyService: svcs.lobbySvc,
		RoomService:  svcs.roomSvc,
		AdminService: svcs.lobbySvc,

		HealthChecker: &store.Checker{Client: client},
		WSHandler:     wsHandler,
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WebSocketを同居させるためWriteTimeoutは設けない
		IdleTimeout: 60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 残存WebSocket接続を閉じる
	svcs.hub.CloseAll()

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker は掃除ワーカーモードで起動する。
// 失効セッションの待機列・ルーム残骸を定期的に回収する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	client, err := store.Open(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to open redis: %w", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established (worker)")

	svcs := buildServices(cfg, client, prometheus.NewRegistry())

	job := sweep.NewJob(
		svcs.sessionRepo, svcs.lobbyRepo, svcs.lobbySvc,
		svcs.roomRepo, svcs.roomSvc, slog.Default(),
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	// 起動直後に1回実行してから周期実行に入る
	if err := job.Run(ctx); err != nil {
		slog.Error("sweep failed", slog.String("error", err.Error()))
	}
	job.RunLoop(ctx, cfg.SweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
