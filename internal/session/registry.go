// Package session はセッションレジストリを提供する。
//
// identityごとに有効なセッショントークンは常に1つだけであり、
// 再ログインは旧セッションの無効化とロビーキュー・全ルームからの
// 退去を伴う（single-active-session不変条件）。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/repository"
)

// ErrInvalid はトークンに対応するセッションが存在しないことを示す。
var ErrInvalid = errors.New("session invalid")

// ErrExpired は提示されたトークンが新しいセッションに追い越されたことを示す。
var ErrExpired = errors.New("session expired")

// QueueLeaver はセッション退去時のロビーキュー離脱に必要なインターフェース。
// lobby.Serviceの部分集合として定義する。
type QueueLeaver interface {
	Leave(ctx context.Context, uid string) error
}

// RoomEvictor はセッション退去時のルーム離脱に必要なインターフェース。
// room.Serviceの部分集合として定義する。
type RoomEvictor interface {
	EvictFromAll(ctx context.Context, uid string) error
}

// Registry はセッションレジストリ。
// トークン→レコードとidentity→現行トークンの2本のキーを管理し、
// ポインタ側を単一の真実として扱う。
type Registry struct {
	repo  repository.SessionRepository
	queue QueueLeaver
	rooms RoomEvictor
	ttl   time.Duration
}

// NewRegistry はRegistryを生成する。
func NewRegistry(repo repository.SessionRepository, queue QueueLeaver, rooms RoomEvictor, ttl time.Duration) *Registry {
	return &Registry{
		repo:  repo,
		queue: queue,
		rooms: rooms,
		ttl:   ttl,
	}
}

// Authenticate は新しいセッションを発行する。
// 既存セッションがある場合は先に旧トークンのレコードを削除し、
// キューと全ルームから退去させてから新トークンを保存する。
// 退去はロビー・ルームのイベントを発行する経路を通る。
func (r *Registry) Authenticate(ctx context.Context, uid, name string) (*model.Session, error) {
	prior, err := r.repo.CurrentID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to look up prior session: %w", err)
	}
	if prior != "" {
		if err := r.repo.DeleteByID(ctx, prior); err != nil {
			return nil, fmt.Errorf("failed to delete prior session: %w", err)
		}
		if err := r.evict(ctx, uid); err != nil {
			return nil, err
		}
		slog.Info("superseded prior session",
			slog.String("uid", uid),
		)
	}

	session := &model.Session{
		ID:   uuid.NewString(),
		User: model.User{UID: uid, Name: name},
	}
	if err := r.repo.Save(ctx, session, r.ttl); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Validate はトークンを検証し、所有者を返す。
// レコードが無い場合はErrInvalid、identityの現行ポインタが
// 提示トークンと一致しない場合はErrExpiredを返す。
func (r *Registry) Validate(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := r.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrInvalid
	}

	current, err := r.repo.CurrentID(ctx, session.User.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to check current session: %w", err)
	}
	if current != sessionID {
		return nil, ErrExpired
	}

	return &session.User, nil
}

// Invalidate は現行セッションを破棄し、キューと全ルームから退去させる。
func (r *Registry) Invalidate(ctx context.Context, uid string) error {
	current, err := r.repo.CurrentID(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to look up current session: %w", err)
	}
	if current != "" {
		if err := r.repo.DeleteByID(ctx, current); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if err := r.repo.DeletePointer(ctx, uid); err != nil {
			return fmt.Errorf("failed to delete session pointer: %w", err)
		}
	}
	return r.evict(ctx, uid)
}

// evict はidentityをロビーキューと全ルームから退去させる。
func (r *Registry) evict(ctx context.Context, uid string) error {
	if err := r.queue.Leave(ctx, uid); err != nil {
		return fmt.Errorf("failed to leave lobby on eviction: %w", err)
	}
	if err := r.rooms.EvictFromAll(ctx, uid); err != nil {
		return fmt.Errorf("failed to leave rooms on eviction: %w", err)
	}
	return nil
}
