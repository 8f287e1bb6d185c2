// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// productResponse は商品情報のAPIレスポンス。
// 金額は丸め誤差を避けるため文字列で返す。
type productResponse struct {
	ID          string  `json:"id"`
	SKU         string  `json:"sku,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
	InStock     bool    `json:"in_stock"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// lineItemResponse はカート明細のAPIレスポンス。
type lineItemResponse struct {
	Product   productResponse `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal string          `json:"line_total"`
}

// cartResponse はカートのAPIレスポンス。
type cartResponse struct {
	ID        string             `json:"id"`
	Items     []lineItemResponse `json:"items"`
	Subtotal  string             `json:"subtotal"`
	ItemCount int                `json:"item_count"`
}

// changeResponse はカート操作の結果と確認メッセージ。
type changeResponse struct {
	Kind        string `json:"kind"`
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	Message     string `json:"message,omitempty"`
}

// cartMutationResponse はカート変更系APIのレスポンス。
type cartMutationResponse struct {
	Change changeResponse `json:"change"`
	Cart   cartResponse   `json:"cart"`
}

// identityResponse はログインユーザー情報のAPIレスポンス。
type identityResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider"`
	IsAdmin  bool   `json:"is_admin"`
}

// orderLineResponse は注文明細のAPIレスポンス。
type orderLineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// orderResponse は注文履歴のAPIレスポンス。
type orderResponse struct {
	ID        string              `json:"id"`
	Items     []orderLineResponse `json:"items"`
	Total     string              `json:"total"`
	Status    string              `json:"status"`
	CreatedAt string              `json:"created_at,omitempty"`
}

// checkoutResponse は注文確定のAPIレスポンス。
type checkoutResponse struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Image:       p.Image,
		Category:    p.Category,
		Rating:      p.Rating,
		Reviews:     p.Reviews,
		InStock:     p.InStock,
		CreatedAt:   formatTime(p.CreatedAt),
	}
}

func toProductResponses(products []model.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return out
}

func toCartResponse(v cart.View) cartResponse {
	items := make([]lineItemResponse, len(v.Items))
	for i, it := range v.Items {
		items[i] = lineItemResponse{
			Product:   toProductResponse(it.Product),
			Quantity:  it.Quantity,
			LineTotal: it.Total().StringFixed(2),
		}
	}
	return cartResponse{
		ID:        v.ID,
		Items:     items,
		Subtotal:  v.Subtotal.StringFixed(2),
		ItemCount: v.ItemCount,
	}
}

func toCartMutationResponse(c cart.Change, v cart.View) cartMutationResponse {
	return cartMutationResponse{
		Change: changeResponse{
			Kind:        string(c.Kind),
			ProductID:   c.ProductID,
			ProductName: c.ProductName,
			Quantity:    c.Quantity,
			Message:     changeMessage(c),
		},
		Cart: toCartResponse(v),
	}
}

// changeMessage はカート操作の確認メッセージを組み立てる。変化がなければ空文字列。
func changeMessage(c cart.Change) string {
	switch c.Kind {
	case cart.ChangeAdded:
		return fmt.Sprintf("%s をカートに追加しました。", c.ProductName)
	case cart.ChangeIncremented, cart.ChangeUpdated:
		return fmt.Sprintf("%s の数量を %d に変更しました。", c.ProductName, c.Quantity)
	case cart.ChangeRemoved:
		return fmt.Sprintf("%s をカートから削除しました。", c.ProductName)
	case cart.ChangeCleared:
		return "カートを空にしました。"
	default:
		return ""
	}
}

func toIdentityResponse(identity *model.Identity, isAdmin bool) identityResponse {
	return identityResponse{
		ID:       identity.UserID,
		Name:     identity.Name,
		Email:    identity.Email,
		Provider: identity.Provider,
		IsAdmin:  isAdmin,
	}
}

func toOrderResponses(orders []model.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		lines := make([]orderLineResponse, len(o.Items))
		for j, l := range o.Items {
			lines[j] = orderLineResponse{
				ProductID: l.ProductID,
				Name:      l.Name,
				Price:     l.Price.StringFixed(2),
				Quantity:  l.Quantity,
			}
		}
		out[i] = orderResponse{
			ID:        o.ID,
			Items:     lines,
			Total:     o.Total.StringFixed(2),
			Status:    string(o.Status),
			CreatedAt: formatTime(o.CreatedAt),
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// decodeJSON はリクエストボディをJSONとしてデコードする。
// 失敗した場合はINVALID_REQUESTのAPIErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewInvalidRequestError("リクエストの形式が正しくありません。")
	}
	return nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorのコードからHTTPステータスコードを決定する。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidProduct, model.ErrCodeSignUpFailed:
		return http.StatusBadRequest
	case model.ErrCodeNotAuthenticated, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCSRFInvalid:
		return http.StatusForbidden
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeCheckoutInProgress, model.ErrCodeOutOfStock:
		return http.StatusConflict
	case model.ErrCodeEmptyCart:
		return http.StatusUnprocessableEntity
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeCheckoutFailed:
		return http.StatusBadGateway
	case model.ErrCodeCatalogUnavailable, model.ErrCodeAuthUnavailable, model.ErrCodeOrdersUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func notFoundError() *model.APIError {
	return &model.APIError{
		Code:     "NOT_FOUND",
		Message:  "指定されたAPIは存在しません。",
		Category: "system",
		Action:   "URLを確認してください。",
	}
}

func methodNotAllowedError() *model.APIError {
	return &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "このメソッドは利用できません。",
		Category: "system",
		Action:   "APIの利用方法を確認してください。",
	}
}
