package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/storefront/internal/admin"
	"github.com/hitoshi/storefront/internal/auth"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	oauthEnabled     bool
	getLoginURLFn    func(state string) string
	signUpFn         func(ctx context.Context, in auth.SignUpInput) (*model.Session, error)
	signInFn         func(ctx context.Context, email, password string) (*model.Session, error)
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) OAuthEnabled() bool { return m.oauthEnabled }

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) SignUp(ctx context.Context, in auth.SignUpInput) (*model.Session, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, in)
	}
	return nil, nil
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type rebindCall struct {
	cartID   string
	identity *model.Identity
}

type mockCartRebinder struct {
	calls []rebindCall
}

func (m *mockCartRebinder) Rebind(ctx context.Context, cartID string, identity *model.Identity) {
	m.calls = append(m.calls, rebindCall{cartID: cartID, identity: identity})
}

type mockAdminChecker struct {
	adminEmail string
}

func (m *mockAdminChecker) IsAdmin(identity *model.Identity) bool {
	return identity != nil && identity.Email == m.adminEmail
}

type mockAdminService struct {
	createProductFn func(ctx context.Context, form admin.ProductForm) (*model.Product, error)
	updateProductFn func(ctx context.Context, id string, form admin.ProductForm) (*model.Product, error)
	deleteProductFn func(ctx context.Context, id string) error
}

func (m *mockAdminService) CreateProduct(ctx context.Context, form admin.ProductForm) (*model.Product, error) {
	if m.createProductFn != nil {
		return m.createProductFn(ctx, form)
	}
	return nil, nil
}

func (m *mockAdminService) UpdateProduct(ctx context.Context, id string, form admin.ProductForm) (*model.Product, error) {
	if m.updateProductFn != nil {
		return m.updateProductFn(ctx, id, form)
	}
	return nil, nil
}

func (m *mockAdminService) DeleteProduct(ctx context.Context, id string) error {
	if m.deleteProductFn != nil {
		return m.deleteProductFn(ctx, id)
	}
	return nil
}

type mockOrderHistory struct {
	historyFn func(ctx context.Context, userID string) ([]model.Order, error)
}

func (m *mockOrderHistory) History(ctx context.Context, userID string) ([]model.Order, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, userID)
	}
	return nil, nil
}

// --- テストヘルパー ---

// newJSONRequest はJSONボディ付きのリクエストを生成する。
func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withIdentity はリクエストに識別情報とカートIDを注入する。identityがnilならゲスト。
func withIdentity(req *http.Request, cartID string, identity *model.Identity) *http.Request {
	ctx := middleware.ContextWithCartID(req.Context(), cartID)
	if identity != nil {
		ctx = middleware.ContextWithIdentity(ctx, identity)
	}
	return req.WithContext(ctx)
}

// decodeAPIError はレスポンスを統一エラーフォーマットとしてデコードする。
func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
