package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/storefront/internal/model"
)

// OrderSubmitter は注文作成リクエストを送信するインターフェース。
type OrderSubmitter interface {
	// Submit はユーザーIDと明細から注文を作成する。
	// 失敗時はCheckoutFailedのAPIErrorを返す。
	Submit(ctx context.Context, userID string, lines []model.OrderLine) (*model.OrderConfirmation, error)
}

// MetricsRecorder はカート操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordCartChange(kind string)
	RecordCheckout(result string)
}

// チェックアウト結果のメトリクスラベル。
const (
	CheckoutResultSuccess    = "success"
	CheckoutResultFailed     = "failed"
	CheckoutResultRejected   = "rejected"
	CheckoutResultStale      = "stale"
	CheckoutResultInProgress = "in_progress"
)

// Manager はカートの取得・変更・チェックアウトを調停する。
// 状態遷移はCartのメソッドに委ね、永続化と注文送信のI/Oのみを担う。
type Manager struct {
	store     *Store
	submitter OrderSubmitter
	metrics   MetricsRecorder
	logger    *slog.Logger
}

// NewManager はManagerを生成する。metricsはnilでもよい。
func NewManager(store *Store, submitter OrderSubmitter, metrics MetricsRecorder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		submitter: submitter,
		metrics:   metrics,
		logger:    logger,
	}
}

// View は現在のカートの内容を返す。
func (m *Manager) View(ctx context.Context, cartID string, identity *model.Identity) View {
	return m.store.Get(ctx, cartID, ownerOf(identity)).View()
}

// AddItem は商品スナップショットをカートに追加する。
func (m *Manager) AddItem(ctx context.Context, cartID string, identity *model.Identity, product model.Product) (Change, View) {
	c := m.store.Get(ctx, cartID, ownerOf(identity))
	change := c.AddItem(product)
	return m.afterMutation(ctx, c, change)
}

// RemoveItem は指定商品の明細を削除する。存在しない場合は何もしない。
func (m *Manager) RemoveItem(ctx context.Context, cartID string, identity *model.Identity, productID string) (Change, View) {
	c := m.store.Get(ctx, cartID, ownerOf(identity))
	change := c.RemoveItem(productID)
	return m.afterMutation(ctx, c, change)
}

// UpdateQuantity は指定商品の数量を置き換える。1未満の場合は削除する。
func (m *Manager) UpdateQuantity(ctx context.Context, cartID string, identity *model.Identity, productID string, quantity int) (Change, View) {
	c := m.store.Get(ctx, cartID, ownerOf(identity))
	change := c.UpdateQuantity(productID, quantity)
	return m.afterMutation(ctx, c, change)
}

// Clear はカートを空にする。
func (m *Manager) Clear(ctx context.Context, cartID string, identity *model.Identity) (Change, View) {
	c := m.store.Get(ctx, cartID, ownerOf(identity))
	change := c.Clear()
	return m.afterMutation(ctx, c, change)
}

// Rebind はログイン・ログアウトによる識別情報の変化をカートに反映する。
func (m *Manager) Rebind(ctx context.Context, cartID string, identity *model.Identity) {
	c := m.store.Get(ctx, cartID, ownerOf(identity))
	m.store.Save(ctx, c)
}

// Checkout はカートの内容で注文を作成する。
// 未ログインの場合はNotAuthenticated、カートが空の場合はEmptyCartを
// ネットワーク通信の前に返し、カートは変更しない。
// 注文作成に成功した場合のみカートを空にし、失敗した場合はカートをそのまま残す。
func (m *Manager) Checkout(ctx context.Context, cartID string, identity *model.Identity) (*model.OrderConfirmation, error) {
	if identity == nil || identity.UserID == "" {
		m.recordCheckout(CheckoutResultRejected)
		return nil, model.NewNotAuthenticatedError()
	}

	c, ok := m.store.Acquire(ctx, cartID, identity.UserID)
	if !ok {
		m.recordCheckout(CheckoutResultInProgress)
		return nil, model.NewCheckoutInProgressError()
	}
	defer m.store.Release(cartID)

	t, err := c.beginCheckout()
	if err != nil {
		if model.HasCode(err, model.ErrCodeCheckoutInProgress) {
			m.recordCheckout(CheckoutResultInProgress)
		} else {
			m.recordCheckout(CheckoutResultRejected)
		}
		return nil, err
	}

	completed := false
	defer func() {
		if !completed {
			c.abortCheckout()
		}
	}()

	confirmation, err := m.submitter.Submit(ctx, identity.UserID, t.orderLines())
	if err != nil {
		m.recordCheckout(CheckoutResultFailed)
		m.logger.Warn("checkout failed",
			slog.String("cart_id", cartID),
			slog.String("user_id", identity.UserID),
			slog.String("error", err.Error()),
		)
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, model.NewCheckoutFailedError("")
	}

	completed = true
	if !c.completeCheckout(t) {
		// 送信中にログアウト等で所有者が変わったため、応答をカートに適用しない
		m.recordCheckout(CheckoutResultStale)
		m.logger.Warn("discarding stale checkout response",
			slog.String("cart_id", cartID),
			slog.String("user_id", identity.UserID),
			slog.String("order_id", confirmation.OrderID),
		)
		return confirmation, nil
	}

	m.store.Save(ctx, c)
	m.recordCheckout(CheckoutResultSuccess)
	m.logger.Info("order placed",
		slog.String("cart_id", cartID),
		slog.String("user_id", identity.UserID),
		slog.String("order_id", confirmation.OrderID),
	)
	return confirmation, nil
}

// afterMutation は変更をメトリクスに記録し、変更があればスナップショットを保存する。
func (m *Manager) afterMutation(ctx context.Context, c *Cart, change Change) (Change, View) {
	if change.Kind != ChangeNone {
		m.store.Save(ctx, c)
		if m.metrics != nil {
			m.metrics.RecordCartChange(string(change.Kind))
		}
	}
	return change, c.View()
}

func (m *Manager) recordCheckout(result string) {
	if m.metrics != nil {
		m.metrics.RecordCheckout(result)
	}
}

// ownerOf は識別情報からカート所有者のユーザーIDを返す。ゲストの場合は空文字列。
func ownerOf(identity *model.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.UserID
}
