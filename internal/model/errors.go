package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, lobby, room, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeNotMember      = "NOT_MEMBER"
	ErrCodeInvalidToken   = "INVALID_TOKEN"
	ErrCodeInvalidConfig  = "INVALID_CONFIG"
	ErrCodeNoUsersForRoom = "NO_USERS_FOR_ROOM"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証エラーを生成する。
// reasonにはMissing session / Invalid session / Session expired等を渡す。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  reason,
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Admin only",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewBadRequestError は入力不正エラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeBadRequest,
		Message:  message,
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewRoomNotFoundError はルーム未検出エラーを生成する。
func NewRoomNotFoundError(roomID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("Room not found: %s", roomID),
		Category: "room",
		Action:   "ルーム一覧を再取得してください。",
	}
}

// NewNotMemberError はメンバー外からのチャット送信エラーを生成する。
func NewNotMemberError(roomID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotMember,
		Message:  fmt.Sprintf("Not a member of room: %s", roomID),
		Category: "room",
		Action:   "ルームに参加してから送信してください。",
	}
}

// NewInvalidTokenError はIDトークン検証失敗エラーを生成する。
func NewInvalidTokenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  reason,
		Category: "auth",
		Action:   "再度ログインをお試しください。",
	}
}

// NewInvalidConfigError は管理設定の入力不正エラーを生成する。
func NewInvalidConfigError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidConfig,
		Message:  "Invalid config",
		Category: "validation",
		Action:   "roomSizeは0以上の整数、autoMatchは真偽値を指定してください。",
	}
}

// NewNoUsersForRoomError はルーム作成対象ユーザーが空の場合のエラーを生成する。
func NewNoUsersForRoomError() *APIError {
	return &APIError{
		Code:     ErrCodeNoUsersForRoom,
		Message:  "No users for room",
		Category: "lobby",
		Action:   "キューにユーザーが並んでいるか確認してください。",
	}
}
