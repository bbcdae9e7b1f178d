package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/store"
)

// RedisEventRepo はRedisを使用したイベントログリポジトリ。
// チャンネルごとのリングバッファと、全チャンネル共有のIDカウンタを扱う。
type RedisEventRepo struct {
	client *redis.Client
}

// NewRedisEventRepo はRedisEventRepoを生成する。
func NewRedisEventRepo(client *redis.Client) *RedisEventRepo {
	return &RedisEventRepo{client: client}
}

// NextID はグローバルカウンタを原子的にインクリメントして新しいIDを返す。
// ストア側のINCRが発行を直列化するため、並行publishでもIDは厳密増加する。
func (r *RedisEventRepo) NextID(ctx context.Context) (int64, error) {
	id, err := r.client.Incr(ctx, store.GlobalEventID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment event id: %w", err)
	}
	return id, nil
}

// Append はチャンネルのログ末尾にイベントを追記し、直近retain件に切り詰める。
func (r *RedisEventRepo) Append(ctx context.Context, channel string, ev model.Event, retain int) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	key := store.EventsKey(channel)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	if err := r.client.LTrim(ctx, key, -int64(retain), -1).Err(); err != nil {
		return fmt.Errorf("failed to trim event log: %w", err)
	}
	return nil
}

// List はチャンネルのログ全体を古い順で返す。
func (r *RedisEventRepo) List(ctx context.Context, channel string) ([]model.Event, error) {
	raw, err := r.client.LRange(ctx, store.EventsKey(channel), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]model.Event, 0, len(raw))
	for _, item := range raw {
		var ev model.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		ev.Channel = channel
		events = append(events, ev)
	}
	return events, nil
}
