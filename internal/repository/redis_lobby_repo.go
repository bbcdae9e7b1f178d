package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/store"
)

// RedisLobbyRepo はRedisを使用したロビーキュー・設定リポジトリ。
// 設定キーが未設定の場合のデフォルト値は起動時設定から注入される。
type RedisLobbyRepo struct {
	client   *redis.Client
	defaults model.LobbyConfig
}

// NewRedisLobbyRepo はRedisLobbyRepoを生成する。
func NewRedisLobbyRepo(client *redis.Client, defaults model.LobbyConfig) *RedisLobbyRepo {
	return &RedisLobbyRepo{client: client, defaults: defaults}
}

// Remove はキューからidentityを取り除く。並んでいなくてもエラーにしない。
func (r *RedisLobbyRepo) Remove(ctx context.Context, uid string) error {
	if err := r.client.LRem(ctx, store.LobbyQueue, 0, uid).Err(); err != nil {
		return fmt.Errorf("failed to remove from lobby queue: %w", err)
	}
	return nil
}

// Push はキュー末尾にidentityを追加する。
func (r *RedisLobbyRepo) Push(ctx context.Context, uid string) error {
	if err := r.client.RPush(ctx, store.LobbyQueue, uid).Err(); err != nil {
		return fmt.Errorf("failed to push to lobby queue: %w", err)
	}
	return nil
}

// Length はキューの現在長を返す。
func (r *RedisLobbyRepo) Length(ctx context.Context) (int64, error) {
	n, err := r.client.LLen(ctx, store.LobbyQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get lobby queue length: %w", err)
	}
	return n, nil
}

// Peek はキュー先頭からn件のidentityを返す（取り除かない）。
func (r *RedisLobbyRepo) Peek(ctx context.Context, n int) ([]string, error) {
	uids, err := r.client.LRange(ctx, store.LobbyQueue, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to peek lobby queue: %w", err)
	}
	return uids, nil
}

// Drop はキュー先頭からn件を取り除く。
func (r *RedisLobbyRepo) Drop(ctx context.Context, n int) error {
	if err := r.client.LTrim(ctx, store.LobbyQueue, int64(n), -1).Err(); err != nil {
		return fmt.Errorf("failed to drop from lobby queue: %w", err)
	}
	return nil
}

// Members はキュー全体を先頭から順に返す。
func (r *RedisLobbyRepo) Members(ctx context.Context) ([]string, error) {
	uids, err := r.client.LRange(ctx, store.LobbyQueue, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list lobby queue: %w", err)
	}
	return uids, nil
}

// GetConfig は現在のマッチング設定を返す。未設定の項目はデフォルトで埋める。
func (r *RedisLobbyRepo) GetConfig(ctx context.Context) (model.LobbyConfig, error) {
	cfg := r.defaults

	roomSizeRaw, err := r.client.Get(ctx, store.ConfigRoomSize).Result()
	if err != nil && err != redis.Nil {
		return cfg, fmt.Errorf("failed to get roomSize config: %w", err)
	}
	if err == nil {
		if n, convErr := strconv.Atoi(roomSizeRaw); convErr == nil {
			cfg.RoomSize = n
		}
	}

	autoMatchRaw, err := r.client.Get(ctx, store.ConfigAutoMatch).Result()
	if err != nil && err != redis.Nil {
		return cfg, fmt.Errorf("failed to get autoMatch config: %w", err)
	}
	if err == nil {
		cfg.AutoMatch = autoMatchRaw == "true"
	}

	return cfg, nil
}

// SetConfig はマッチング設定を書き込む。
func (r *RedisLobbyRepo) SetConfig(ctx context.Context, cfg model.LobbyConfig) error {
	if err := r.client.Set(ctx, store.ConfigRoomSize, strconv.Itoa(cfg.RoomSize), 0).Err(); err != nil {
		return fmt.Errorf("failed to set roomSize config: %w", err)
	}
	autoMatch := "false"
	if cfg.AutoMatch {
		autoMatch = "true"
	}
	if err := r.client.Set(ctx, store.ConfigAutoMatch, autoMatch, 0).Err(); err != nil {
		return fmt.Errorf("failed to set autoMatch config: %w", err)
	}
	return nil
}
