// Package room はルームのライフサイクルとルーム内チャットを管理する。
package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lobbyman/internal/event"
	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/repository"
)

// defaultRoomTTLSec はメタ情報に記録する参考値。実際の削除は
// 空になった時点またはスイープ時に行う。
const defaultRoomTTLSec = 1800

// EventPublisher はルーム関連イベントの発行先。
type EventPublisher interface {
	Publish(ctx context.Context, channel, eventType string, payload any) (*model.Event, error)
}

// UserResolver はUIDから表示用ユーザー情報を引く。
type UserResolver interface {
	ResolveUser(ctx context.Context, uid string) (model.User, error)
}

// TextSanitizer はチャット本文を保存前に無害化する。
type TextSanitizer interface {
	Sanitize(text string) string
}

// MetricsRecorder はルーム系メトリクスの記録先。
type MetricsRecorder interface {
	RecordRoomCreated()
	RecordRoomDestroyed()
	RecordChatMessage()
}

// Service はルームの作成・退出・チャット送信を提供する。
type Service struct {
	repo      repository.RoomRepository
	users     UserResolver
	bus       EventPublisher
	sanitizer TextSanitizer
	metrics   MetricsRecorder
}

// NewService はルームサービスを生成する。metricsはnil可。
func NewService(repo repository.RoomRepository, users UserResolver, bus EventPublisher, sanitizer TextSanitizer, metrics MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		bus:       bus,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Create はメンバー確定済みのルームを作り、room.createdに続けて
// メンバーごとのroom.user.joinedを発行する。イベント順序は固定。
func (s *Service) Create(ctx context.Context, uids []string) (string, error) {
	roomID := uuid.NewString()
	meta := model.RoomMeta{
		ID:        roomID,
		Size:      len(uids),
		CreatedAt: time.Now().UnixMilli(),
		TTLSec:    defaultRoomTTLSec,
	}
	if err := s.repo.Create(ctx, meta, uids); err != nil {
		return "", err
	}

	if _, err := s.bus.Publish(ctx, event.ChannelRoom, event.TypeRoomCreated, model.RoomEventPayload{RoomID: roomID}); err != nil {
		return "", err
	}
	for _, uid := range uids {
		if _, err := s.bus.Publish(ctx, event.ChannelRoom, event.TypeRoomUserJoined, model.RoomEventPayload{RoomID: roomID, UID: uid}); err != nil {
			return "", err
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRoomCreated()
	}
	slog.Info("room created", "room_id", roomID, "size", len(uids))
	return roomID, nil
}

// List は存在する全ルームをメンバー情報付きで返す。
// メタ情報のないIDは整合性切れとして読み飛ばす。
func (s *Service) List(ctx context.Context) ([]model.Room, error) {
	ids, err := s.repo.IDs(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(ids))
	for _, id := range ids {
		meta, err := s.repo.GetMeta(ctx, id)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			continue
		}
		users, err := s.resolveMembers(ctx, id)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, model.Room{Meta: *meta, Users: users})
	}
	return rooms, nil
}

// Get は単一ルームの詳細（メンバーと直近メッセージ）を返す。
func (s *Service) Get(ctx context.Context, roomID string) (*model.RoomDetail, error) {
	meta, err := s.repo.GetMeta(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, model.NewRoomNotFoundError(roomID)
	}

	users, err := s.resolveMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.Messages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &model.RoomDetail{Meta: *meta, Users: users, LastMessages: messages}, nil
}

// Leave はユーザーをルームから外し、room.user.leftを発行する。
// 最後の一人が抜けたらルームを破棄する。
func (s *Service) Leave(ctx context.Context, roomID, uid string) error {
	remaining, err := s.repo.RemoveMember(ctx, roomID, uid)
	if err != nil {
		return err
	}
	if _, err := s.bus.Publish(ctx, event.ChannelRoom, event.TypeRoomUserLeft, model.RoomEventPayload{RoomID: roomID, UID: uid}); err != nil {
		return err
	}
	if remaining == 0 {
		if err := s.repo.Delete(ctx, roomID); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.RecordRoomDestroyed()
		}
		slog.Info("room destroyed", "room_id", roomID)
	}
	return nil
}

// EvictFromAll はユーザーが属する全ルームから退出させる。
// セッション失効時の掃除に使う。
func (s *Service) EvictFromAll(ctx context.Context, uid string) error {
	ids, err := s.repo.IDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		member, err := s.repo.IsMember(ctx, id, uid)
		if err != nil {
			return err
		}
		if !member {
			continue
		}
		if err := s.Leave(ctx, id, uid); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage はメンバー確認の上でチャットを発行し、履歴へ追記する。
// 本文は無害化してから上限長に切り詰める。
func (s *Service) SendMessage(ctx context.Context, roomID string, sender model.User, messageID, text string) (*model.Message, error) {
	member, err := s.repo.IsMember(ctx, roomID, sender.UID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, model.NewNotMemberError(roomID)
	}

	clean := s.sanitizer.Sanitize(text)
	if runes := []rune(clean); len(runes) > model.MaxMessageLength {
		clean = string(runes[:model.MaxMessageLength])
	}

	msg := model.Message{
		MessageID: messageID,
		TS:        time.Now().UnixMilli(),
		RoomID:    roomID,
		From:      sender,
		Text:      clean,
	}

	// ペイロード内のeventIdは採番前のゼロ値のまま配信する。
	// 購読側はエンベロープのeventIdを正とする。
	ev, err := s.bus.Publish(ctx, event.ChannelRoom, event.TypeChatMessage, model.ChatEventPayload{Message: msg})
	if err != nil {
		return nil, err
	}
	msg.EventID = ev.EventID

	if err := s.repo.AppendMessage(ctx, roomID, msg); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordChatMessage()
	}
	return &msg, nil
}

func (s *Service) resolveMembers(ctx context.Context, roomID string) ([]model.User, error) {
	uids, err := s.repo.MemberIDs(ctx, roomID)
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
	return users, nil
}
