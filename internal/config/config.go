package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	RedisURL string

	// OAuth
	GoogleClientID     string
	GoogleTokeninfoURL string

	// Admin
	AdminEmails []string

	// Session
	SessionTTL time.Duration

	// Event Log
	Epoch        int
	RetainEvents int

	// Lobby
	DefaultRoomSize  int
	DefaultAutoMatch bool

	// WebSocket
	WSPingInterval time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitChat    int

	// Worker
	SweepInterval time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GoogleTokeninfoURL = getEnvString("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo")
	cfg.AdminEmails = splitCSV(os.Getenv("ADMIN_EMAILS"))
	// SESSION_TTL は既存デプロイとの互換のためミリ秒整数で指定する
	cfg.SessionTTL = time.Duration(getEnvInt64("SESSION_TTL", 7*24*60*60*1000)) * time.Millisecond
	cfg.Epoch = getEnvInt("EPOCH", 1)
	cfg.RetainEvents = getEnvInt("RETAIN_EVENTS", 100)
	cfg.DefaultRoomSize = getEnvInt("CONFIG_ROOM_SIZE_DEFAULT", 0)
	cfg.DefaultAutoMatch = os.Getenv("CONFIG_AUTO_MATCH_DEFAULT") == "true"
	cfg.WSPingInterval = getEnvDuration("WS_PING_INTERVAL", 30*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitChat = getEnvInt("RATE_LIMIT_CHAT", 60)
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", 10*time.Minute)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// splitCSV はカンマ区切り文字列をトリムして空要素を除いたスライスに変換する。
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
