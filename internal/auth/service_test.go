package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
)

// --- モック定義 ---

type mockUserBackend struct {
	registerFn func(ctx context.Context, req backend.RegisterRequest) (*model.Identity, error)
	loginFn    func(ctx context.Context, email, password string) (*model.Identity, error)
	calls      int
}

func (m *mockUserBackend) Register(ctx context.Context, req backend.RegisterRequest) (*model.Identity, error) {
	m.calls++
	return m.registerFn(ctx, req)
}

func (m *mockUserBackend) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	m.calls++
	return m.loginFn(ctx, email, password)
}

type mockOAuthProvider struct {
	loginURL       string
	exchangeCodeFn func(ctx context.Context, code string) (*model.Identity, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	return m.loginURL + "?state=" + state
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*model.Identity, error) {
	return m.exchangeCodeFn(ctx, code)
}

type mockSessionRepo struct {
	created      []*model.Session
	createErr    error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deletedIDs   []string
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	m.created = append(m.created, session)
	return m.createErr
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	m.deletedIDs = append(m.deletedIDs, id)
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func newTestService(users UserBackend, oauth OAuthProvider, sessions *mockSessionRepo) *Service {
	return NewService(users, oauth, sessions, ServiceConfig{SessionMaxAge: 3600}, nil)
}

func validSignUp() SignUpInput {
	return SignUpInput{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}
}

// --- SignUp ---

func TestSignUp_CreatesSession(t *testing.T) {
	users := &mockUserBackend{
		registerFn: func(ctx context.Context, req backend.RegisterRequest) (*model.Identity, error) {
			if req.Name != "Alice" || req.ConfirmPassword != "secret123" {
				t.Errorf("request = %+v", req)
			}
			return &model.Identity{UserID: "7", Name: "Alice", Email: req.Email, Provider: model.ProviderPassword}, nil
		},
	}
	sessions := &mockSessionRepo{}
	s := newTestService(users, nil, sessions)

	before := time.Now()
	session, err := s.SignUp(context.Background(), validSignUp())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Identity.UserID != "7" {
		t.Errorf("UserID = %q, want 7", session.Identity.UserID)
	}
	if len(session.ID) != 64 {
		t.Errorf("セッションIDの長さ = %d, want 64", len(session.ID))
	}
	if session.ExpiresAt.Before(before.Add(59 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, 有効期間が短すぎる", session.ExpiresAt)
	}
	if len(sessions.created) != 1 {
		t.Errorf("保存されたセッション数 = %d, want 1", len(sessions.created))
	}
}

func TestSignUp_ValidationBeforeBackend(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *SignUpInput)
	}{
		{name: "名前なし", modify: func(in *SignUpInput) { in.Name = " " }},
		{name: "メール形式不正", modify: func(in *SignUpInput) { in.Email = "not-an-email" }},
		{name: "パスワードが短い", modify: func(in *SignUpInput) { in.Password = "abc"; in.ConfirmPassword = "abc" }},
		{name: "確認用パスワード不一致", modify: func(in *SignUpInput) { in.ConfirmPassword = "different" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserBackend{}
			s := newTestService(users, nil, &mockSessionRepo{})
			in := validSignUp()
			tt.modify(&in)

			_, err := s.SignUp(context.Background(), in)

			if !model.HasCode(err, model.ErrCodeInvalidRequest) {
				t.Errorf("InvalidRequestエラーを期待したが %v", err)
			}
			if users.calls != 0 {
				t.Error("検証エラーでバックエンドが呼ばれた")
			}
		})
	}
}

func TestSignUp_BackendErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "登録済みメールアドレス",
			err:      &backend.StatusError{Op: "register", StatusCode: 409, Message: "Email already registered"},
			wantCode: model.ErrCodeSignUpFailed,
		},
		{
			name:     "バックエンド障害",
			err:      &backend.StatusError{Op: "register", StatusCode: 503},
			wantCode: model.ErrCodeAuthUnavailable,
		},
		{
			name:     "通信エラー",
			err:      errors.New("connection refused"),
			wantCode: model.ErrCodeAuthUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserBackend{
				registerFn: func(ctx context.Context, req backend.RegisterRequest) (*model.Identity, error) {
					return nil, tt.err
				},
			}
			sessions := &mockSessionRepo{}
			s := newTestService(users, nil, sessions)

			_, err := s.SignUp(context.Background(), validSignUp())

			if !model.HasCode(err, tt.wantCode) {
				t.Errorf("%s を期待したが %v", tt.wantCode, err)
			}
			if len(sessions.created) != 0 {
				t.Error("失敗時にセッションが作成された")
			}
		})
	}
}

// --- SignIn ---

func TestSignIn(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		loginFn  func(ctx context.Context, email, password string) (*model.Identity, error)
		wantCode string
	}{
		{
			name:     "成功",
			email:    "alice@example.com",
			password: "secret123",
			loginFn: func(ctx context.Context, email, password string) (*model.Identity, error) {
				return &model.Identity{UserID: "7", Email: email, Provider: model.ProviderPassword}, nil
			},
		},
		{
			name:     "入力なし",
			email:    "",
			password: "",
			wantCode: model.ErrCodeInvalidRequest,
		},
		{
			name:     "認証失敗",
			email:    "alice@example.com",
			password: "wrong",
			loginFn: func(ctx context.Context, email, password string) (*model.Identity, error) {
				return nil, &backend.StatusError{Op: "login", StatusCode: 401, Message: "Invalid credentials"}
			},
			wantCode: model.ErrCodeInvalidCredentials,
		},
		{
			name:     "バックエンド障害",
			email:    "alice@example.com",
			password: "secret123",
			loginFn: func(ctx context.Context, email, password string) (*model.Identity, error) {
				return nil, errors.New("timeout")
			},
			wantCode: model.ErrCodeAuthUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(&mockUserBackend{loginFn: tt.loginFn}, nil, &mockSessionRepo{})

			session, err := s.SignIn(context.Background(), tt.email, tt.password)

			if tt.wantCode != "" {
				if !model.HasCode(err, tt.wantCode) {
					t.Errorf("%s を期待したが %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.Identity.UserID != "7" {
				t.Errorf("UserID = %q, want 7", session.Identity.UserID)
			}
		})
	}
}

// --- OAuth ---

func TestGetLoginURL(t *testing.T) {
	s := newTestService(&mockUserBackend{}, &mockOAuthProvider{loginURL: "https://accounts.example.com/auth"}, &mockSessionRepo{})

	if !s.OAuthEnabled() {
		t.Error("OAuthEnabled() = false, want true")
	}
	if got := s.GetLoginURL("st"); got != "https://accounts.example.com/auth?state=st" {
		t.Errorf("GetLoginURL() = %q", got)
	}
}

func TestGetLoginURL_Disabled(t *testing.T) {
	s := newTestService(&mockUserBackend{}, nil, &mockSessionRepo{})

	if s.OAuthEnabled() {
		t.Error("OAuthEnabled() = true, want false")
	}
	if got := s.GetLoginURL("st"); got != "" {
		t.Errorf("GetLoginURL() = %q, want empty", got)
	}
}

func TestHandleCallback_CreatesSession(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.Identity, error) {
			return &model.Identity{UserID: "google:1", Email: "bob@gmail.com", Provider: model.ProviderGoogle}, nil
		},
	}
	sessions := &mockSessionRepo{}
	s := newTestService(&mockUserBackend{}, oauth, sessions)

	session, err := s.HandleCallback(context.Background(), "code")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Identity.UserID != "google:1" || session.Identity.Provider != model.ProviderGoogle {
		t.Errorf("identity = %+v", session.Identity)
	}
}

func TestHandleCallback_Errors(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.Identity, error) {
			return nil, errors.New("invalid_grant")
		},
	}

	if _, err := newTestService(&mockUserBackend{}, oauth, &mockSessionRepo{}).HandleCallback(context.Background(), "bad"); err == nil {
		t.Error("コード交換失敗でエラーが返されるべき")
	}
	if _, err := newTestService(&mockUserBackend{}, nil, &mockSessionRepo{}).HandleCallback(context.Background(), "code"); err == nil {
		t.Error("OAuth未設定でエラーが返されるべき")
	}
}

func TestHandleCallback_SessionSaveError(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*model.Identity, error) {
			return &model.Identity{UserID: "google:1"}, nil
		},
	}
	s := newTestService(&mockUserBackend{}, oauth, &mockSessionRepo{createErr: errors.New("db down")})

	if _, err := s.HandleCallback(context.Background(), "code"); err == nil {
		t.Fatal("セッション保存失敗でエラーが返されるべき")
	}
}

// --- Logout / GetCurrentIdentity ---

func TestLogout_DeletesSession(t *testing.T) {
	sessions := &mockSessionRepo{}
	s := newTestService(&mockUserBackend{}, nil, sessions)

	if err := s.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions.deletedIDs) != 1 || sessions.deletedIDs[0] != "sess-1" {
		t.Errorf("deleted = %v", sessions.deletedIDs)
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	s := newTestService(&mockUserBackend{}, nil, &mockSessionRepo{})

	if err := s.Logout(context.Background(), ""); err == nil {
		t.Fatal("空のセッションIDでエラーが返されるべき")
	}
}

func TestGetCurrentIdentity(t *testing.T) {
	sessions := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "sess-1" {
				return nil, nil
			}
			return &model.Session{ID: id, Identity: model.Identity{UserID: "7", Name: "Alice"}}, nil
		},
	}
	s := newTestService(&mockUserBackend{}, nil, sessions)
	ctx := context.Background()

	identity, err := s.GetCurrentIdentity(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity == nil || identity.UserID != "7" {
		t.Errorf("identity = %+v", identity)
	}

	for _, id := range []string{"", "expired"} {
		identity, err := s.GetCurrentIdentity(ctx, id)
		if err != nil || identity != nil {
			t.Errorf("GetCurrentIdentity(%q) = %+v, %v; want nil, nil", id, identity, err)
		}
	}
}

func TestGetCurrentIdentity_RepoError(t *testing.T) {
	sessions := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("db down")
		},
	}
	s := newTestService(&mockUserBackend{}, nil, sessions)

	if _, err := s.GetCurrentIdentity(context.Background(), "sess-1"); err == nil {
		t.Fatal("リポジトリエラーでエラーが返されるべき")
	}
}
