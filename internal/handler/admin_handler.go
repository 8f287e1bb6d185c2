package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/admin"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// AdminServiceInterface は商品管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	CreateProduct(ctx context.Context, form admin.ProductForm) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, form admin.ProductForm) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// AdminHandler は管理者向け商品管理のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// CreateProduct は商品を登録する。
// POST /api/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var form admin.ProductForm
	if err := decodeJSON(w, r, &form); err != nil {
		handleServiceError(w, r, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), form)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.audit(r, "product created", product.ID)
	middleware.WriteJSON(w, http.StatusCreated, toProductResponse(*product))
}

// UpdateProduct は商品を更新する。
// PUT /api/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var form admin.ProductForm
	if err := decodeJSON(w, r, &form); err != nil {
		handleServiceError(w, r, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.audit(r, "product updated", product.ID)
	middleware.WriteJSON(w, http.StatusOK, toProductResponse(*product))
}

// DeleteProduct は商品を削除する。
// DELETE /api/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.audit(r, "product deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// audit は管理操作を実行者とともにログに残す。
func (h *AdminHandler) audit(r *http.Request, msg, productID string) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	slog.Info(msg,
		slog.String("product_id", productID),
		slog.String("user_id", userID),
	)
}
