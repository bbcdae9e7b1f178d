// Package store は共有状態ストア（Redis）への接続とキースキーマを提供する。
//
// すべてのバックエンドインスタンスが同一のRedisを共有し、キュー・ルーム・
// セッション・イベントログの原子的な単一構造操作をここに委譲する。
// キー配置は既存デプロイとの相互運用のため変更してはならない。
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Open はREDIS_URL形式の接続文字列からRedisクライアントを生成する。
func Open(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// HealthChecker はヘルスチェックに必要なインターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Checker は*redis.ClientをHealthCheckerに適合させる。
type Checker struct {
	Client *redis.Client
}

// Ping はRedisへの疎通を確認する。
func (c *Checker) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
