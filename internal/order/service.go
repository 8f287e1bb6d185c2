// Package order は注文の作成と注文履歴の取得機能を提供する。
package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
)

// defaultTimeout は注文作成リクエストのタイムアウト（デフォルト）。
const defaultTimeout = 10 * time.Second

// Backend は注文APIのインターフェース。
type Backend interface {
	CreateOrder(ctx context.Context, req model.OrderRequest, idempotencyKey string) (*model.OrderConfirmation, error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
}

// Service は注文の作成と注文履歴の取得を行う。
type Service struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
	newKey  func() string // テスト用に差し替え可能
}

// NewService はServiceを生成する。timeoutが0以下の場合はデフォルト値を使用する。
func NewService(b Backend, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: b,
		timeout: timeout,
		logger:  logger,
		newKey:  uuid.NewString,
	}
}

// Submit はユーザーIDと明細から注文作成リクエストを1回だけ送信する。
// 通信エラー、2xx以外の応答、タイムアウトはいずれもCheckoutFailedとして返す。
func (s *Service) Submit(ctx context.Context, userID string, lines []model.OrderLine) (*model.OrderConfirmation, error) {
	if userID == "" {
		return nil, model.NewNotAuthenticatedError()
	}
	if len(lines) == 0 {
		return nil, model.NewEmptyCartError()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := s.newKey()
	confirmation, err := s.backend.CreateOrder(ctx, model.OrderRequest{UserID: userID, Items: lines}, key)
	if err != nil {
		s.logger.Error("failed to create order",
			slog.String("user_id", userID),
			slog.String("idempotency_key", key),
			slog.Int("line_count", len(lines)),
			slog.String("error", err.Error()),
		)
		return nil, model.NewCheckoutFailedError(failureReason(ctx, err))
	}
	if confirmation.Message == "" {
		confirmation.Message = "ご注文ありがとうございます。"
	}
	return confirmation, nil
}

// History は指定ユーザーの注文履歴を返す。
func (s *Service) History(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, model.NewNotAuthenticatedError()
	}

	orders, err := s.backend.ListOrders(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list orders",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewOrdersUnavailableError()
	}
	return orders, nil
}

// failureReason はユーザーに表示する失敗理由を返す。
func failureReason(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return "タイムアウトしました"
	}
	return backend.MessageOf(err)
}
