package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// CartManagerInterface はカートハンドラーが必要とするカート操作のインターフェース。
type CartManagerInterface interface {
	View(ctx context.Context, cartID string, identity *model.Identity) cart.View
	AddItem(ctx context.Context, cartID string, identity *model.Identity, product model.Product) (cart.Change, cart.View)
	RemoveItem(ctx context.Context, cartID string, identity *model.Identity, productID string) (cart.Change, cart.View)
	UpdateQuantity(ctx context.Context, cartID string, identity *model.Identity, productID string, quantity int) (cart.Change, cart.View)
	Clear(ctx context.Context, cartID string, identity *model.Identity) (cart.Change, cart.View)
	Checkout(ctx context.Context, cartID string, identity *model.Identity) (*model.OrderConfirmation, error)
}

// ProductLookup はカート追加時に商品スナップショットを解決するインターフェース。
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

// CartHandler はカート操作とチェックアウトのHTTPハンドラー。
type CartHandler struct {
	carts    CartManagerInterface
	products ProductLookup
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(carts CartManagerInterface, products ProductLookup) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
	}
}

// addItemRequest はカート追加リクエストのボディ。
type addItemRequest struct {
	ProductID string `json:"product_id"`
}

// updateQuantityRequest は数量変更リクエストのボディ。
type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart は現在のカートを返す。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := h.carts.View(ctx, middleware.CartIDFromContext(ctx), middleware.IdentityFromContext(ctx))
	middleware.WriteJSON(w, http.StatusOK, toCartResponse(v))
}

// AddItem は商品をカートに追加する。同じ商品が既にあれば数量を1増やす。
// 在庫切れの商品は409 OUT_OF_STOCKで拒否する。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		handleServiceError(w, r, model.NewInvalidRequestError("商品IDを指定してください。"))
		return
	}

	ctx := r.Context()
	product, err := h.products.GetProduct(ctx, productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !product.InStock {
		handleServiceError(w, r, model.NewOutOfStockError(product.Name))
		return
	}

	change, v := h.carts.AddItem(ctx, middleware.CartIDFromContext(ctx), middleware.IdentityFromContext(ctx), *product)
	middleware.WriteJSON(w, http.StatusOK, toCartMutationResponse(change, v))
}

// UpdateQuantity は明細の数量を変更する。1未満を指定した場合は明細を削除する。
// PUT /api/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if req.Quantity == nil {
		handleServiceError(w, r, model.NewInvalidRequestError("数量を指定してください。"))
		return
	}

	ctx := r.Context()
	change, v := h.carts.UpdateQuantity(ctx, middleware.CartIDFromContext(ctx), middleware.IdentityFromContext(ctx),
		chi.URLParam(r, "id"), *req.Quantity)
	middleware.WriteJSON(w, http.StatusOK, toCartMutationResponse(change, v))
}

// RemoveItem は明細を削除する。存在しない商品IDの場合は何もしない。
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	change, v := h.carts.RemoveItem(ctx, middleware.CartIDFromContext(ctx), middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"))
	middleware.WriteJSON(w, http.StatusOK, toCartMutationResponse(change, v))
}

// Clear はカートを空にする。
// DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	change, v := h.carts.Clear(ctx, middleware.CartIDFromContext(ctx), middleware.IdentityFromContext(ctx))
	middleware.WriteJSON(w, http.StatusOK, toCartMutationResponse(change, v))
}

// Checkout はカートの内容で注文を確定する。
// 成功時は201で注文IDを返し、カートは空になる。失敗時はカートの内容を保持する。
// POST /api/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	confirmation, err := h.carts.Checkout(ctx, middleware.CartIDFromContext(ctx), middleware.IdentityFromContext(ctx))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, checkoutResponse{
		OrderID: confirmation.OrderID,
		Message: confirmation.Message,
	})
}
