// Package auth はサインイン・会員登録・OAuth認証フローとセッション管理を提供する。
// ユーザー自体はバックエンドが所有し、本パッケージは識別情報をセッションに保持する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/repository"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 6

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードを交換し、ユーザーの識別情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*model.Identity, error)
}

// UserBackend はバックエンドの会員APIのインターフェース。
type UserBackend interface {
	Register(ctx context.Context, req backend.RegisterRequest) (*model.Identity, error)
	Login(ctx context.Context, email, password string) (*model.Identity, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// SignUpInput は会員登録の入力内容。
type SignUpInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users       UserBackend
	oauth       OAuthProvider // nilの場合はOAuthサインイン無効
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
}

// NewService はServiceを生成する。oauthはnilでもよい。
func NewService(
	users UserBackend,
	oauth OAuthProvider,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:       users,
		oauth:       oauth,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
	}
}

// OAuthEnabled はOAuthサインインが利用可能かを返す。
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	if s.oauth == nil {
		return ""
	}
	return s.oauth.GetLoginURL(state)
}

// SignUp は会員登録を行い、セッションを発行する。
// 入力検証はバックエンドへの送信前に行う。
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*model.Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		return nil, model.NewInvalidRequestError("名前を入力してください。")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewInvalidRequestError("メールアドレスの形式が正しくありません。")
	}
	if len(in.Password) < minPasswordLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("パスワードは%d文字以上で入力してください。", minPasswordLength))
	}
	if in.Password != in.ConfirmPassword {
		return nil, model.NewInvalidRequestError("確認用パスワードが一致しません。")
	}

	identity, err := s.users.Register(ctx, backend.RegisterRequest{
		Name:            name,
		Email:           email,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	})
	if err != nil {
		s.logger.Warn("sign up failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		if isRejection(err) {
			return nil, model.NewSignUpFailedError(backend.MessageOf(err))
		}
		return nil, model.NewAuthUnavailableError()
	}

	s.logger.Info("user signed up",
		slog.String("user_id", identity.UserID),
	)
	return s.createSession(ctx, *identity)
}

// SignIn はメールアドレスとパスワードで認証し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewInvalidRequestError("メールアドレスとパスワードを入力してください。")
	}

	identity, err := s.users.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("sign in failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		if isRejection(err) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, model.NewAuthUnavailableError()
	}

	s.logger.Info("user signed in",
		slog.String("user_id", identity.UserID),
		slog.String("provider", identity.Provider),
	)
	return s.createSession(ctx, *identity)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if s.oauth == nil {
		return nil, fmt.Errorf("oauth sign-in is not configured")
	}

	identity, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	s.logger.Info("user signed in",
		slog.String("user_id", identity.UserID),
		slog.String("provider", identity.Provider),
	)
	return s.createSession(ctx, *identity)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentIdentity はセッションから現在の識別情報を取得する。
// セッションが存在しない・期限切れの場合はnilを返す。
func (s *Service) GetCurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	identity := session.Identity
	return &identity, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, identity model.Identity) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		Identity:  identity,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// isRejection はバックエンドが入力内容を拒否した（4xx）かを判定する。
func isRejection(err error) bool {
	var se *backend.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode < http.StatusInternalServerError
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
