// Package model はドメインモデルを定義する。
package model

// User は認証済みユーザーを表す。
// セッションレコードから読み出す都度組み立てる一時的な値であり、
// 独立したストレージには保存されない。
type User struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Session はセッショントークンとその所有者の対応を表す。
// 同一identityに対して有効なトークンは常に1つだけ（single-active-session）。
type Session struct {
	ID   string
	User User
}

// LobbyConfig はマッチメイキングのグローバル設定。
// 管理APIからのみ変更され、ロビーの各ミューテーションで毎回読み直される。
type LobbyConfig struct {
	RoomSize  int  `json:"roomSize"`
	AutoMatch bool `json:"autoMatch"`
}

// LobbySnapshot はロビーの現在状態（待機ユーザー列と設定）を表す。
type LobbySnapshot struct {
	Users  []User      `json:"users"`
	Config LobbyConfig `json:"config"`
}
