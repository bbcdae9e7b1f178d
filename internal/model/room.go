package model

// MaxRoomMessages はルームごとに保持するチャット履歴の上限件数。
const MaxRoomMessages = 50

// MaxMessageLength はチャット本文の最大長（rune単位）。超過分は切り詰める。
const MaxMessageLength = 500

// RoomMeta はルームのメタデータを表す。
// sizeは作成時の人数を記録した値で、その後の増減には追随しない。
// ttlSecは advisory なライフタイムであり、強制削除には使われない。
type RoomMeta struct {
	ID        string `json:"id"`
	Size      int    `json:"size"`
	CreatedAt int64  `json:"createdAt"`
	TTLSec    int    `json:"ttlSec"`
}

// Room はルーム一覧用のビュー。メンバーの表示名は読み出し時に
// セッションレジストリから解決される。
type Room struct {
	Meta  RoomMeta `json:"meta"`
	Users []User   `json:"users"`
}

// RoomDetail はルーム詳細用のビュー。直近最大50件のチャット履歴を含む。
type RoomDetail struct {
	Meta         RoomMeta  `json:"meta"`
	Users        []User    `json:"users"`
	LastMessages []Message `json:"lastMessages"`
}

// Message はルームに紐づくチャットメッセージを表す。
// messageIdはクライアントが重複排除のために採番するトークン、
// eventIdはイベントログが採番したグローバルなイベント識別子。
type Message struct {
	MessageID string `json:"messageId"`
	EventID   int64  `json:"eventId"`
	TS        int64  `json:"ts"`
	RoomID    string `json:"roomId"`
	From      User   `json:"from"`
	Text      string `json:"text"`
}
