// Package backend はストアのリモートバックエンドAPIのクライアントを提供する。
// 商品カタログ、注文、会員登録・ログインのエンドポイントを呼び出す。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/model"
)

const (
	// userAgent はバックエンドへのリクエストに付与するUser-Agent。
	userAgent = "Storefront/1.0"
	// maxResponseBytes はレスポンスボディの読み取り上限（4MB）。
	maxResponseBytes = 4 << 20
	// idempotencyKeyHeader は注文作成の重複防止キーを送るヘッダー。
	idempotencyKeyHeader = "Idempotency-Key"
)

// StatusError はバックエンドが2xx以外のステータスを返したことを表す。
type StatusError struct {
	Op         string
	StatusCode int
	Message    string // バックエンドが返したメッセージ（なければ空）
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
}

// IsNotFound はエラーがバックエンドの404/410を表すかを判定する。
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.StatusCode) == outcomeNotFound
	}
	return false
}

// MessageOf はエラーに含まれるバックエンドのメッセージを返す。なければ空文字列。
func MessageOf(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

// Observer はバックエンド呼び出しの計測インターフェース。
// statusCodeは通信エラーの場合0。
type Observer interface {
	ObserveBackendRequest(operation string, statusCode int, duration time.Duration)
}

// Client はバックエンドAPIのクライアント。
// 読み取り系（GET）のリクエストは429/5xxと通信エラーの場合に指数バックオフで再試行する。
// 注文作成などの書き込み系は再試行しない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	observer   Observer

	maxRetries int
	retryDelay time.Duration // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// SetObserver はバックエンド呼び出しの計測先を設定する。
func (c *Client) SetObserver(o Observer) {
	c.observer = o
}

// SetMaxRetries は読み取り系リクエストの最大再試行回数を設定する。負の値は0として扱う。
func (c *Client) SetMaxRetries(n int) {
	if n < 0 {
		n = 0
	}
	c.maxRetries = n
}

// ListProducts は全商品を取得する。
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var payload []productPayload
	if err := c.get(ctx, "list_products", "/products", &payload); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(payload))
	for _, p := range payload {
		products = append(products, p.toProduct())
	}
	return products, nil
}

// GetProduct は指定IDの商品を取得する。存在しない場合はnilを返す。
func (c *Client) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var payload productPayload
	err := c.get(ctx, "get_product", "/products/"+url.PathEscape(id), &payload)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := payload.toProduct()
	return &p, nil
}

// CreateProduct は商品を登録する。
func (c *Client) CreateProduct(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	var payload productPayload
	if err := c.send(ctx, "create_product", http.MethodPost, "/products", newProductWritePayload(in), nil, &payload); err != nil {
		return nil, err
	}
	p := payload.toProduct()
	return &p, nil
}

// UpdateProduct は指定IDの商品を更新する。
// 存在しない場合はIsNotFoundで判定できるエラーを返す。
func (c *Client) UpdateProduct(ctx context.Context, id string, in model.ProductInput) (*model.Product, error) {
	var payload productPayload
	if err := c.send(ctx, "update_product", http.MethodPut, "/products/"+url.PathEscape(id), newProductWritePayload(in), nil, &payload); err != nil {
		return nil, err
	}
	p := payload.toProduct()
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

// DeleteProduct は指定IDの商品を削除する。
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.send(ctx, "delete_product", http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil, nil)
}

// CreateOrder は注文を作成する。
// idempotencyKeyはIdempotency-Keyヘッダーで送信する。注文作成は再試行しない。
func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest, idempotencyKey string) (*model.OrderConfirmation, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[idempotencyKeyHeader] = idempotencyKey
	}
	var payload orderResponsePayload
	if err := c.send(ctx, "create_order", http.MethodPost, "/orders", newOrderRequestPayload(req), headers, &payload); err != nil {
		return nil, err
	}
	return payload.toConfirmation(), nil
}

// ListOrders は指定ユーザーの注文履歴を取得する。
func (c *Client) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	var payload []orderPayload
	err := c.get(ctx, "list_orders", "/orders/"+url.PathEscape(userID), &payload)
	if IsNotFound(err) {
		return []model.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, len(payload))
	for _, o := range payload {
		orders = append(orders, o.toOrder())
	}
	return orders, nil
}

// Register は会員登録を行い、登録されたユーザーの識別情報を返す。
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*model.Identity, error) {
	var payload userPayload
	if err := c.send(ctx, "register", http.MethodPost, "/users/register", req, nil, &payload); err != nil {
		return nil, err
	}
	return c.identityFrom("register", payload, req.Name, req.Email)
}

// Login はメールアドレスとパスワードで認証し、ユーザーの識別情報を返す。
func (c *Client) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	var payload userPayload
	if err := c.send(ctx, "login", http.MethodPost, "/users/login", loginRequest{Email: email, Password: password}, nil, &payload); err != nil {
		return nil, err
	}
	return c.identityFrom("login", payload, "", email)
}

// identityFrom はユーザー応答から識別情報を組み立てる。
// 2xxでもユーザーIDが含まれない場合はメッセージを伴う失敗として扱う。
func (c *Client) identityFrom(op string, p userPayload, fallbackName, fallbackEmail string) (*model.Identity, error) {
	userID := p.userID()
	if userID == "" {
		return nil, &StatusError{Op: op, StatusCode: http.StatusOK, Message: p.Message}
	}
	name := p.Name
	if name == "" {
		name = fallbackName
	}
	email := p.Email
	if email == "" {
		email = fallbackEmail
	}
	return &model.Identity{
		UserID:   userID,
		Name:     name,
		Email:    email,
		Provider: model.ProviderPassword,
	}, nil
}

// get は読み取り系リクエストを送信し、必要に応じて再試行する。
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(c.retryDelay, attempt-1)
			c.logger.Warn("retrying backend request",
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.String("delay", delay.String()),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		status, err := c.do(ctx, op, http.MethodGet, path, nil, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return err
		}
		if status != 0 && classifyStatus(status) != outcomeRetry {
			return err
		}
	}
	return lastErr
}

// send は書き込み系リクエストを1回だけ送信する。
func (c *Client) send(ctx context.Context, op, method, path string, body any, headers map[string]string, out any) error {
	_, err := c.do(ctx, op, method, path, body, headers, out)
	return err
}

// do はHTTPリクエストを1回実行し、ステータスコードを返す。通信エラーの場合は0。
func (c *Client) do(ctx context.Context, op, method, path string, body any, headers map[string]string, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, 0, time.Since(start))
		c.logger.Error("backend request failed",
			slog.String("operation", op),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if classifyStatus(resp.StatusCode) != outcomeOK {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(data)}
		level := slog.LevelWarn
		if resp.StatusCode >= 500 {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "backend returned error status",
			slog.String("operation", op),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return resp.StatusCode, se
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Error("failed to decode backend response",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return resp.StatusCode, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) observe(op string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(op, status, d)
	}
}

// errorMessage はエラーレスポンスのボディからメッセージを取り出す。
func errorMessage(data []byte) string {
	var p errorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return ""
	}
	if p.Message != "" {
		return p.Message
	}
	return p.Error
}
