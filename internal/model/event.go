package model

// Event はイベントログの1エントリを表す。
// eventIdは全チャンネル共有のカウンタで採番される厳密増加の整数。
// epochはデプロイ世代のタグで、現行設計では情報提供のみに使われる。
// Channelは格納先キーで決まるためシリアライズには含めない。
type Event struct {
	EventID int64  `json:"eventId"`
	Epoch   int    `json:"epoch"`
	TS      int64  `json:"ts"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`

	Channel string `json:"-"`
}

// RoomEventPayload はroomチャンネルのroom.created / room.user.joined /
// room.user.leftイベントのペイロード。
type RoomEventPayload struct {
	RoomID string `json:"roomId"`
	UID    string `json:"uid,omitempty"`
}

// ChatEventPayload はchat.messageイベントのペイロード。
type ChatEventPayload struct {
	Message Message `json:"message"`
}

// LobbyEventPayload はlobby.joinedイベントのペイロード。
type LobbyEventPayload struct {
	Snapshot LobbySnapshot `json:"snapshot"`
}

// UserEventPayload はuser.connected / user.disconnectedイベントのペイロード。
type UserEventPayload struct {
	User User `json:"user"`
}
