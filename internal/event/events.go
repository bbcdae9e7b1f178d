// Package event はチャンネルごとのイベントログとローカル配信バスを提供する。
package event

// チャンネル名。接続はチャンネル単位で購読する。
const (
	ChannelUser  = "user"
	ChannelRoom  = "room"
	ChannelLobby = "lobby"
	ChannelAdmin = "admin"
)

// イベント種別。チャンネル×種別でペイロードの形が決まる。
const (
	TypeUserConnected    = "user.connected"
	TypeUserDisconnected = "user.disconnected"
	TypeLobbyJoined      = "lobby.joined"
	TypeRoomCreated      = "room.created"
	TypeRoomUserJoined   = "room.user.joined"
	TypeRoomUserLeft     = "room.user.left"
	TypeChatMessage      = "chat.message"
)

// Channels は購読可能な全チャンネル。
var Channels = []string{ChannelUser, ChannelRoom, ChannelLobby, ChannelAdmin}

// ValidChannel は購読可能なチャンネル名かを返す。
func ValidChannel(name string) bool {
	for _, ch := range Channels {
		if ch == name {
			return true
		}
	}
	return false
}
