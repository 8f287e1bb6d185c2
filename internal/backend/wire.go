package backend

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/shopspring/decimal"
)

const (
	// defaultRating は評価が未設定の商品に使う値。
	defaultRating = 4.5
)

// flexibleID は文字列・数値のどちらで返されても受け付けるID。
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// productPayload はバックエンドの商品表現。
type productPayload struct {
	ID          flexibleID      `json:"id"`
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Rating      *float64        `json:"rating"`
	Reviews     int             `json:"reviews"`
	InStock     *bool           `json:"in_stock"`
	CreatedAt   string          `json:"created_at"`
}

// toProduct は商品表現をドメインモデルに変換する。
// ratingが未設定の場合は4.5、in_stockが未設定の場合は在庫ありとして扱う。
func (p productPayload) toProduct() model.Product {
	rating := defaultRating
	if p.Rating != nil {
		rating = *p.Rating
	}
	inStock := true
	if p.InStock != nil {
		inStock = *p.InStock
	}
	return model.Product{
		ID:          string(p.ID),
		SKU:         p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		Rating:      rating,
		Reviews:     p.Reviews,
		InStock:     inStock,
		CreatedAt:   parseTime(p.CreatedAt),
	}
}

// productWritePayload は商品の作成・更新リクエストのボディ。
type productWritePayload struct {
	ProductID   string      `json:"product_id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Image       string      `json:"image"`
	Category    string      `json:"category"`
	Rating      float64     `json:"rating"`
	Reviews     int         `json:"reviews"`
	InStock     bool        `json:"in_stock"`
}

func newProductWritePayload(in model.ProductInput) productWritePayload {
	return productWritePayload{
		ProductID:   in.SKU,
		Name:        in.Name,
		Description: in.Description,
		Price:       json.Number(in.Price.String()),
		Image:       in.Image,
		Category:    in.Category,
		Rating:      in.Rating,
		Reviews:     in.Reviews,
		InStock:     in.InStock,
	}
}

// orderLinePayload は注文作成リクエストの明細。
type orderLinePayload struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Quantity  int         `json:"quantity"`
}

// orderRequestPayload は注文作成リクエストのボディ。
type orderRequestPayload struct {
	UserID string             `json:"userId"`
	Items  []orderLinePayload `json:"items"`
}

func newOrderRequestPayload(req model.OrderRequest) orderRequestPayload {
	items := make([]orderLinePayload, len(req.Items))
	for i, l := range req.Items {
		items[i] = orderLinePayload{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     json.Number(l.Price.String()),
			Quantity:  l.Quantity,
		}
	}
	return orderRequestPayload{UserID: req.UserID, Items: items}
}

// orderResponsePayload は注文作成レスポンス。IDはorderIdまたはidで返される。
type orderResponsePayload struct {
	OrderID flexibleID `json:"orderId"`
	ID      flexibleID `json:"id"`
	Message string     `json:"message"`
}

func (o orderResponsePayload) toConfirmation() *model.OrderConfirmation {
	id := o.OrderID
	if id == "" {
		id = o.ID
	}
	return &model.OrderConfirmation{OrderID: string(id), Message: o.Message}
}

// orderItemPayload は注文履歴の明細。
type orderItemPayload struct {
	ProductID flexibleID      `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// orderPayload は注文履歴の1件。
type orderPayload struct {
	ID        flexibleID         `json:"id"`
	OrderID   flexibleID         `json:"orderId"`
	Items     []orderItemPayload `json:"items"`
	Total     *decimal.Decimal   `json:"total"`
	Status    string             `json:"status"`
	CreatedAt string             `json:"createdAt"`
}

// toOrder は注文履歴の表現をドメインモデルに変換する。
// totalが返されない場合は明細から計算する。
func (o orderPayload) toOrder() model.Order {
	id := o.ID
	if id == "" {
		id = o.OrderID
	}
	items := make([]model.OrderLine, len(o.Items))
	sum := decimal.Zero
	for i, it := range o.Items {
		items[i] = model.OrderLine{
			ProductID: string(it.ProductID),
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	total := sum
	if o.Total != nil {
		total = *o.Total
	}
	status := model.OrderStatus(strings.ToLower(o.Status))
	if status == "" {
		status = model.OrderStatusPending
	}
	return model.Order{
		ID:        string(id),
		Items:     items,
		Total:     total,
		Status:    status,
		CreatedAt: parseTime(o.CreatedAt),
	}
}

// RegisterRequest は会員登録リクエスト。
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userPayload は会員登録・ログインのレスポンス。
type userPayload struct {
	UserID  flexibleID `json:"userId"`
	ID      flexibleID `json:"id"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Message string     `json:"message"`
}

func (u userPayload) userID() string {
	if u.UserID != "" {
		return string(u.UserID)
	}
	return string(u.ID)
}

// errorPayload はバックエンドのエラーレスポンス。
type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
