package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// OrderHistoryInterface は注文履歴ハンドラーが必要とするサービスインターフェース。
type OrderHistoryInterface interface {
	History(ctx context.Context, userID string) ([]model.Order, error)
}

// OrderHandler は注文履歴のHTTPハンドラー。
type OrderHandler struct {
	service OrderHistoryInterface
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(service OrderHistoryInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

// ListOrders はログインユーザーの注文履歴を返す。
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, r, model.NewNotAuthenticatedError())
		return
	}

	orders, err := h.service.History(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"orders": toOrderResponses(orders),
	})
}
