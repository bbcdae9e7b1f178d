// Package repository は共有状態ストアへの永続化インターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/lobbyman/internal/model"
)

// SessionRepository はセッションレコードの永続化インターフェース。
// トークン→レコードと identity→現行トークンポインタの2本のキーを扱う。
// ポインタが single-active-session の単一の真実であり、
// レコードはそのキャッシュとして振る舞う。
type SessionRepository interface {
	// Save はセッションレコードとidentityポインタを同じTTLで保存する。
	Save(ctx context.Context, session *model.Session, ttl time.Duration) error

	// FindByID は指定トークンのセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// CurrentID はidentityの現行セッショントークンを返す。なければ空文字列。
	CurrentID(ctx context.Context, uid string) (string, error)

	// DeleteByID はトークン→レコードのキーを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeletePointer はidentity→トークンのポインタキーを削除する。
	DeletePointer(ctx context.Context, uid string) error

	// ResolveUser はidentityを現在の表示名に解決する。
	// 有効なセッションが無い場合は表示名にidentityをそのまま使う。
	ResolveUser(ctx context.Context, uid string) (model.User, error)
}

// LobbyRepository はロビーキューとマッチング設定の永続化インターフェース。
type LobbyRepository interface {
	// Remove はキューからidentityを取り除く。並んでいなくてもエラーにしない。
	Remove(ctx context.Context, uid string) error

	// Push はキュー末尾にidentityを追加する。
	Push(ctx context.Context, uid string) error

	// Length はキューの現在長を返す。
	Length(ctx context.Context) (int64, error)

	// Peek はキュー先頭からn件のidentityを返す（取り除かない）。
	Peek(ctx context.Context, n int) ([]string, error)

	// Drop はキュー先頭からn件を取り除く。
	Drop(ctx context.Context, n int) error

	// Members はキュー全体を先頭から順に返す。
	Members(ctx context.Context) ([]string, error)

	// GetConfig は現在のマッチング設定を返す。未設定の項目はデフォルトで埋める。
	GetConfig(ctx context.Context) (model.LobbyConfig, error)

	// SetConfig はマッチング設定を書き込む。
	SetConfig(ctx context.Context, cfg model.LobbyConfig) error
}

// RoomRepository はルームのメタデータ・メンバー集合・チャット履歴の
// 永続化インターフェース。
type RoomRepository interface {
	// Create はルームIDを集合に登録し、メタデータとメンバーを保存する。
	Create(ctx context.Context, meta model.RoomMeta, uids []string) error

	// IDs はアクティブなルームIDの一覧を返す。
	IDs(ctx context.Context) ([]string, error)

	// GetMeta は指定ルームのメタデータを取得する。見つからない場合はnilを返す。
	GetMeta(ctx context.Context, roomID string) (*model.RoomMeta, error)

	// MemberIDs はルームの現在のメンバーidentity一覧を返す。
	MemberIDs(ctx context.Context, roomID string) ([]string, error)

	// IsMember はidentityがルームのメンバーかを返す。
	IsMember(ctx context.Context, roomID, uid string) (bool, error)

	// RemoveMember はメンバー集合からidentityを取り除き、残り人数を返す。
	RemoveMember(ctx context.Context, roomID, uid string) (int64, error)

	// AppendMessage はチャット履歴に追記し、直近MaxRoomMessages件に切り詰める。
	AppendMessage(ctx context.Context, roomID string, msg model.Message) error

	// Messages は直近最大MaxRoomMessages件のチャット履歴を古い順で返す。
	Messages(ctx context.Context, roomID string) ([]model.Message, error)

	// Delete はルームに紐づく全キーを削除し、IDを集合から取り除く。
	Delete(ctx context.Context, roomID string) error
}

// EventRepository はイベントログの永続化インターフェース。
type EventRepository interface {
	// NextID はグローバルカウンタを原子的にインクリメントして新しいIDを返す。
	NextID(ctx context.Context) (int64, error)

	// Append はチャンネルのログ末尾にイベントを追記し、
	// 直近retain件に切り詰める。
	Append(ctx context.Context, channel string, ev model.Event, retain int) error

	// List はチャンネルのログ全体を古い順で返す。
	List(ctx context.Context, channel string) ([]model.Event, error)
}
