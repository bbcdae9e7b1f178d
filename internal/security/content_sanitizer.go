// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ChatSanitizerService はチャット本文を保存・配信前にサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// チャットはプレーンテキスト前提のため、bluemondayの厳格ポリシーで
// すべてのHTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ChatSanitizerService はチャット本文のサニタイズ機能のインターフェースを定義する。
type ChatSanitizerService interface {
	// Sanitize は本文からHTMLタグを除去したテキストを返す。
	// 前後の空白は取り除く。空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(text string) string
}

// chatSanitizer はChatSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type chatSanitizer struct {
	policy *bluemonday.Policy
}

// NewChatSanitizer はChatSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、script等の危険なタグを
// 含むあらゆるマークアップが除去される。
func NewChatSanitizer() *chatSanitizer {
	return &chatSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はチャット本文をサニタイズして返す。
func (s *chatSanitizer) Sanitize(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}
