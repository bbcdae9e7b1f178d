package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/store"
)

// RedisRoomRepo はRedisを使用したルームリポジトリ。
// ルームごとにメタデータのハッシュ、メンバーの集合、
// チャット履歴のリストを保持する。
type RedisRoomRepo struct {
	client *redis.Client
}

// NewRedisRoomRepo はRedisRoomRepoを生成する。
func NewRedisRoomRepo(client *redis.Client) *RedisRoomRepo {
	return &RedisRoomRepo{client: client}
}

// Create はルームIDを集合に登録し、メタデータとメンバーを保存する。
func (r *RedisRoomRepo) Create(ctx context.Context, meta model.RoomMeta, uids []string) error {
	if err := r.client.SAdd(ctx, store.RoomsSet, meta.ID).Err(); err != nil {
		return fmt.Errorf("failed to register room id: %w", err)
	}
	// 既存スキーマに合わせ、ハッシュ値はすべて文字列で書き込む
	fields := map[string]string{
		"size":      strconv.Itoa(meta.Size),
		"createdAt": strconv.FormatInt(meta.CreatedAt, 10),
		"ttlSec":    strconv.Itoa(meta.TTLSec),
	}
	if err := r.client.HSet(ctx, store.RoomMetaKey(meta.ID), fields).Err(); err != nil {
		return fmt.Errorf("failed to save room meta: %w", err)
	}
	if len(uids) > 0 {
		members := make([]any, len(uids))
		for i, uid := range uids {
			members[i] = uid
		}
		if err := r.client.SAdd(ctx, store.RoomUsersKey(meta.ID), members...).Err(); err != nil {
			return fmt.Errorf("failed to save room members: %w", err)
		}
	}
	return nil
}

// IDs はアクティブなルームIDの一覧を返す。
func (r *RedisRoomRepo) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, store.RoomsSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room ids: %w", err)
	}
	return ids, nil
}

// GetMeta は指定ルームのメタデータを取得する。見つからない場合はnilを返す。
func (r *RedisRoomRepo) GetMeta(ctx context.Context, roomID string) (*model.RoomMeta, error) {
	raw, err := r.client.HGetAll(ctx, store.RoomMetaKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room meta: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	meta := &model.RoomMeta{ID: roomID}
	meta.Size, _ = strconv.Atoi(raw["size"])
	meta.CreatedAt, _ = strconv.ParseInt(raw["createdAt"], 10, 64)
	meta.TTLSec, _ = strconv.Atoi(raw["ttlSec"])
	return meta, nil
}

// MemberIDs はルームの現在のメンバーidentity一覧を返す。
func (r *RedisRoomRepo) MemberIDs(ctx context.Context, roomID string) ([]string, error) {
	uids, err := r.client.SMembers(ctx, store.RoomUsersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room members: %w", err)
	}
	return uids, nil
}

// IsMember はidentityがルームのメンバーかを返す。
func (r *RedisRoomRepo) IsMember(ctx context.Context, roomID, uid string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, store.RoomUsersKey(roomID), uid).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check room membership: %w", err)
	}
	return ok, nil
}

// RemoveMember はメンバー集合からidentityを取り除き、残り人数を返す。
func (r *RedisRoomRepo) RemoveMember(ctx context.Context, roomID, uid string) (int64, error) {
	if err := r.client.SRem(ctx, store.RoomUsersKey(roomID), uid).Err(); err != nil {
		return 0, fmt.Errorf("failed to remove room member: %w", err)
	}
	remaining, err := r.client.SCard(ctx, store.RoomUsersKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count room members: %w", err)
	}
	return remaining, nil
}

// AppendMessage はチャット履歴に追記し、直近MaxRoomMessages件に切り詰める。
func (r *RedisRoomRepo) AppendMessage(ctx context.Context, roomID string, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	key := store.RoomMessagesKey(roomID)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if err := r.client.LTrim(ctx, key, -int64(model.MaxRoomMessages), -1).Err(); err != nil {
		return fmt.Errorf("failed to trim message history: %w", err)
	}
	return nil
}

// Messages は直近最大MaxRoomMessages件のチャット履歴を古い順で返す。
func (r *RedisRoomRepo) Messages(ctx context.Context, roomID string) ([]model.Message, error) {
	raw, err := r.client.LRange(ctx, store.RoomMessagesKey(roomID), -int64(model.MaxRoomMessages), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]model.Message, 0, len(raw))
	for _, item := range raw {
		var msg model.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Delete はルームに紐づく全キーを削除し、IDを集合から取り除く。
func (r *RedisRoomRepo) Delete(ctx context.Context, roomID string) error {
	keys := []string{
		store.RoomUsersKey(roomID),
		store.RoomMessagesKey(roomID),
		store.RoomMetaKey(roomID),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete room keys: %w", err)
	}
	if err := r.client.SRem(ctx, store.RoomsSet, roomID).Err(); err != nil {
		return fmt.Errorf("failed to unregister room id: %w", err)
	}
	return nil
}
