package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/store"
)

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
type RedisSessionRepo struct {
	client *redis.Client
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client *redis.Client) *RedisSessionRepo {
	return &RedisSessionRepo{client: client}
}

// Save はセッションレコードとidentityポインタを同じTTLで保存する。
func (r *RedisSessionRepo) Save(ctx context.Context, session *model.Session, ttl time.Duration) error {
	data, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	if err := r.client.Set(ctx, store.UserSessionKey(session.User.UID), session.ID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session pointer: %w", err)
	}
	if err := r.client.Set(ctx, store.SessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

// FindByID は指定トークンのセッションを取得する。見つからない場合はnilを返す。
func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, store.SessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &model.Session{ID: id, User: user}, nil
}

// CurrentID はidentityの現行セッショントークンを返す。なければ空文字列。
func (r *RedisSessionRepo) CurrentID(ctx context.Context, uid string) (string, error) {
	id, err := r.client.Get(ctx, store.UserSessionKey(uid)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session pointer: %w", err)
	}
	return id, nil
}

// DeleteByID はトークン→レコードのキーを削除する。
func (r *RedisSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, store.SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

// DeletePointer はidentity→トークンのポインタキーを削除する。
func (r *RedisSessionRepo) DeletePointer(ctx context.Context, uid string) error {
	if err := r.client.Del(ctx, store.UserSessionKey(uid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session pointer: %w", err)
	}
	return nil
}

// ResolveUser はidentityを現在の表示名に解決する。
// セッションが無い・読めない場合は表示名にidentityをそのまま使う。
func (r *RedisSessionRepo) ResolveUser(ctx context.Context, uid string) (model.User, error) {
	fallback := model.User{UID: uid, Name: uid}

	id, err := r.CurrentID(ctx, uid)
	if err != nil {
		return fallback, err
	}
	if id == "" {
		return fallback, nil
	}

	session, err := r.FindByID(ctx, id)
	if err != nil {
		return fallback, err
	}
	if session == nil {
		return fallback, nil
	}
	return session.User, nil
}
