// Package auth はGoogle IDトークンの検証とログインフローを提供する。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const defaultGoogleTokeninfoURL = "https://oauth2.googleapis.com/tokeninfo"

// TokenInfo は外部IdPから取得したトークン情報を表す。
type TokenInfo struct {
	Audience string
	Email    string
	Name     string
}

// TokenVerifier はIDトークン検証のインターフェース。
// 将来的に複数IdPに対応するための抽象化。
type TokenVerifier interface {
	// Verify はIDトークンを検証し、トークン情報を返す。
	// トークンが無効、またはaudienceが設定済みクライアントIDと
	// 一致しない場合はエラーを返す。
	Verify(ctx context.Context, idToken string) (*TokenInfo, error)
}

// GoogleVerifierConfig はGoogleトークン検証の設定。
type GoogleVerifierConfig struct {
	ClientID string

	// テスト用にオーバーライド可能なURL
	TokeninfoURL string
}

// GoogleTokenVerifier はGoogleのtokeninfoエンドポイントでIDトークンを検証する。
type GoogleTokenVerifier struct {
	config GoogleVerifierConfig
	client *http.Client
}

// NewGoogleTokenVerifier はGoogleTokenVerifierを生成する。
func NewGoogleTokenVerifier(config GoogleVerifierConfig) *GoogleTokenVerifier {
	if config.TokeninfoURL == "" {
		config.TokeninfoURL = defaultGoogleTokeninfoURL
	}
	return &GoogleTokenVerifier{
		config: config,
		client: http.DefaultClient,
	}
}

// googleTokeninfo はtokeninfoエンドポイントのレスポンス。
type googleTokeninfo struct {
	Aud   string `json:"aud"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ErrTokenRejected はIdPがトークンを受理しなかったことを示す。
var ErrTokenRejected = fmt.Errorf("identity provider rejected token")

// ErrAudienceMismatch はトークンのaudienceが設定と一致しないことを示す。
var ErrAudienceMismatch = fmt.Errorf("token audience mismatch")

// Verify はIDトークンをtokeninfoエンドポイントで検証する。
func (v *GoogleTokenVerifier) Verify(ctx context.Context, idToken string) (*TokenInfo, error) {
	endpoint := v.config.TokeninfoURL + "?id_token=" + url.QueryEscape(idToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ErrTokenRejected
	}

	var info googleTokeninfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}

	if info.Aud != v.config.ClientID {
		return nil, ErrAudienceMismatch
	}

	name := info.Name
	if name == "" {
		name = "Noname"
	}

	return &TokenInfo{
		Audience: info.Aud,
		Email:    info.Email,
		Name:     name,
	}, nil
}
