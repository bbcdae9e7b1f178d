package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/lobbyman/internal/model"
)

// SessionIssuer はログイン時のセッション発行に必要なインターフェース。
// session.Registryの部分集合として定義する。
type SessionIssuer interface {
	// Authenticate は新しいセッションを発行する。
	// 既存セッションがあれば無効化し、キューとルームから退去させる。
	Authenticate(ctx context.Context, uid, name string) (*model.Session, error)

	// Invalidate は現行セッションを破棄し、キューとルームから退去させる。
	Invalidate(ctx context.Context, uid string) error
}

// Service はログイン・ログアウトのビジネスロジックを提供する。
type Service struct {
	verifier    TokenVerifier
	sessions    SessionIssuer
	adminEmails map[string]struct{}
}

// NewService はServiceを生成する。
func NewService(verifier TokenVerifier, sessions SessionIssuer, adminEmails []string) *Service {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[email] = struct{}{}
	}
	return &Service{
		verifier:    verifier,
		sessions:    sessions,
		adminEmails: admins,
	}
}

// IsAdmin はidentityが管理者許可リストに含まれるかを返す。
func (s *Service) IsAdmin(uid string) bool {
	_, ok := s.adminEmails[uid]
	return ok
}

// Login はIDトークンを検証し、セッションを発行する。
// 同一identityの既存セッションは無効化される（single-active-session）。
func (s *Service) Login(ctx context.Context, idToken string) (*model.Session, error) {
	info, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrTokenRejected) {
			return nil, model.NewInvalidTokenError("Unable to verify token")
		}
		if errors.Is(err, ErrAudienceMismatch) {
			return nil, model.NewInvalidTokenError("Invalid audience")
		}
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	session, err := s.sessions.Authenticate(ctx, info.Email, info.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("uid", info.Email),
	)
	return session, nil
}

// LoginAdmin はIDトークンを検証し、管理者であればセッションを発行する。
// 許可リスト外のidentityにはForbiddenを返す。
func (s *Service) LoginAdmin(ctx context.Context, idToken string) (*model.Session, error) {
	info, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrTokenRejected) {
			return nil, model.NewInvalidTokenError("Unable to verify token")
		}
		if errors.Is(err, ErrAudienceMismatch) {
			return nil, model.NewInvalidTokenError("Invalid audience")
		}
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	if !s.IsAdmin(info.Email) {
		return nil, model.NewForbiddenError()
	}

	session, err := s.sessions.Authenticate(ctx, info.Email, info.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("admin logged in",
		slog.String("uid", info.Email),
	)
	return session, nil
}

// Logout は現行セッションを破棄し、キューと全ルームから退去させる。
func (s *Service) Logout(ctx context.Context, uid string) error {
	if err := s.sessions.Invalidate(ctx, uid); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	slog.Info("user logged out", slog.String("uid", uid))
	return nil
}
