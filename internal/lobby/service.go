// Package lobby はマッチング待機列とロビー設定を管理する。
package lobby

import (
	"context"
	"log/slog"

	"github.com/hitoshi/lobbyman/internal/event"
	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/repository"
)

// RoomCreator は待機列から確定したメンバーでルームを作る。
type RoomCreator interface {
	Create(ctx context.Context, uids []string) (string, error)
}

// EventPublisher はロビー関連イベントの発行先。
type EventPublisher interface {
	Publish(ctx context.Context, channel, eventType string, payload any) (*model.Event, error)
}

// UserResolver はUIDから表示用ユーザー情報を引く。
type UserResolver interface {
	ResolveUser(ctx context.Context, uid string) (model.User, error)
}

// MetricsRecorder はマッチ成立メトリクスの記録先。
type MetricsRecorder interface {
	RecordMatchFormed()
}

// Service はロビーの参加・離脱・設定変更とオートマッチを提供する。
type Service struct {
	repo    repository.LobbyRepository
	rooms   RoomCreator
	users   UserResolver
	bus     EventPublisher
	metrics MetricsRecorder
}

// NewService はロビーサービスを生成する。metricsはnil可。
func NewService(repo repository.LobbyRepository, rooms RoomCreator, users UserResolver, bus EventPublisher, metrics MetricsRecorder) *Service {
	return &Service{
		repo:    repo,
		rooms:   rooms,
		users:   users,
		bus:     bus,
		metrics: metrics,
	}
}

// Join はユーザーを待機列の末尾へ移す。既に並んでいた場合も
// 重複を除いた上で末尾へ付け直すので冪等に呼べる。
// 条件が揃っていればオートマッチを走らせ、最後にスナップショットを配信する。
func (s *Service) Join(ctx context.Context, uid string) error {
	if err := s.repo.Remove(ctx, uid); err != nil {
		return err
	}
	if err := s.repo.Push(ctx, uid); err != nil {
		return err
	}
	if err := s.tryAutoMatch(ctx); err != nil {
		return err
	}
	return s.publishSnapshot(ctx)
}

// Leave はユーザーを待機列から外し、スナップショットを配信する。
// 並んでいなかった場合も成功扱い。
func (s *Service) Leave(ctx context.Context, uid string) error {
	if err := s.repo.Remove(ctx, uid); err != nil {
		return err
	}
	return s.publishSnapshot(ctx)
}

// Snapshot は現在の待機列と有効な設定を返す。
func (s *Service) Snapshot(ctx context.Context) (*model.LobbySnapshot, error) {
	uids, err := s.repo.Members(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(uids))
	for _, uid := range uids {
		u, err := s.users.ResolveUser(ctx, uid)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &model.LobbySnapshot{Users: users, Config: cfg}, nil
}

// SetConfig はロビー設定を更新し、スナップショットを配信する。
// roomSizeは0以上。0のときオートマッチは成立しない。
func (s *Service) SetConfig(ctx context.Context, cfg model.LobbyConfig) error {
	if cfg.RoomSize < 0 {
		return model.NewInvalidConfigError()
	}
	if err := s.repo.SetConfig(ctx, cfg); err != nil {
		return err
	}
	slog.Info("lobby config updated", "room_size", cfg.RoomSize, "auto_match", cfg.AutoMatch)
	if err := s.tryAutoMatch(ctx); err != nil {
		return err
	}
	return s.publishSnapshot(ctx)
}

// CreateRoomFor は管理操作によるルームの手動作成。
// uids指定時はそのメンバーで作り、並んでいれば待機列から外す。
// 未指定時は待機列の先頭からroomSize人まで取り出す。
// 対象が1人もいなければエラーを返す。
func (s *Service) CreateRoomFor(ctx context.Context, uids []string) (string, error) {
	if len(uids) == 0 {
		cfg, err := s.repo.GetConfig(ctx)
		if err != nil {
			return "", err
		}
		length, err := s.repo.Length(ctx)
		if err != nil {
			return "", err
		}
		n := cfg.RoomSize
		if int64(n) > length {
			n = int(length)
		}
		if n > 0 {
			if uids, err = s.repo.Peek(ctx, n); err != nil {
				return "", err
			}
			if err := s.repo.Drop(ctx, len(uids)); err != nil {
				return "", err
			}
		}
	} else {
		for _, uid := range uids {
			if err := s.repo.Remove(ctx, uid); err != nil {
				return "", err
			}
		}
	}
	if len(uids) == 0 {
		return "", model.NewNoUsersForRoomError()
	}
	return s.rooms.Create(ctx, uids)
}

// tryAutoMatch は設定を読み直し、待機人数がroomSizeに達していれば
// 先頭からroomSize人を抜いてルームを作る。1回の呼び出しで作るのは
// 最大1ルーム。
func (s *Service) tryAutoMatch(ctx context.Context) error {
	cfg, err := s.repo.GetConfig(ctx)
	if err != nil {
		return err
	}
	if !cfg.AutoMatch || cfg.RoomSize <= 0 {
		return nil
	}
	length, err := s.repo.Length(ctx)
	if err != nil {
		return err
	}
	if length < int64(cfg.RoomSize) {
		return nil
	}

	uids, err := s.repo.Peek(ctx, cfg.RoomSize)
	if err != nil {
		return err
	}
	if err := s.repo.Drop(ctx, cfg.RoomSize); err != nil {
		return err
	}
	if _, err := s.rooms.Create(ctx, uids); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordMatchFormed()
	}
	slog.Info("auto match formed", "size", cfg.RoomSize)
	return nil
}

func (s *Service) publishSnapshot(ctx context.Context) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	_, err = s.bus.Publish(ctx, event.ChannelLobby, event.TypeLobbyJoined, model.LobbyEventPayload{Snapshot: *snap})
	return err
}
