package store

import "fmt"

// 固定キー
const (
	// LobbyQueue は待機中identityのFIFOリスト。
	LobbyQueue = "lobby:queue"
	// ConfigRoomSize はマッチングで作るルームの人数（文字列化した整数）。
	ConfigRoomSize = "config:roomSize"
	// ConfigAutoMatch は自動マッチングの有効フラグ（"true"/"false"）。
	ConfigAutoMatch = "config:autoMatch"
	// RoomsSet はアクティブなルームIDの集合。
	RoomsSet = "rooms"
	// GlobalEventID は最後に採番したイベントIDを保持するカウンタ。
	GlobalEventID = "global:eventId"
)

// RoomMetaKey はルームメタデータのハッシュキーを返す。
func RoomMetaKey(roomID string) string {
	return fmt.Sprintf("room:%s:meta", roomID)
}

// RoomUsersKey はルームメンバー集合のキーを返す。
func RoomUsersKey(roomID string) string {
	return fmt.Sprintf("room:%s:users", roomID)
}

// RoomMessagesKey はルームのチャット履歴リストのキーを返す。
func RoomMessagesKey(roomID string) string {
	return fmt.Sprintf("room:%s:messages", roomID)
}

// EventsKey はチャンネルごとのイベントログリストのキーを返す。
func EventsKey(channel string) string {
	return fmt.Sprintf("events:%s", channel)
}

// SessionKey はセッショントークンからレコードへのキーを返す。
func SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// UserSessionKey はidentityから現行セッショントークンへのポインタキーを返す。
func UserSessionKey(uid string) string {
	return fmt.Sprintf("user:%s:session", uid)
}
