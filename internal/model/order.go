// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine は注文作成リクエストに含める明細を表す。
// カートの明細から商品ID・商品名・単価・数量を射影したもの。
type OrderLine struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// OrderRequest は注文作成リクエストを表す。
type OrderRequest struct {
	UserID string
	Items  []OrderLine
}

// OrderConfirmation はバックエンドが注文作成を受け付けた結果を表す。
type OrderConfirmation struct {
	OrderID string
	Message string
}

// OrderStatus は注文の処理状態を表す。
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// Order は注文履歴の1件を表す。
type Order struct {
	ID        string
	Items     []OrderLine
	Total     decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
}
