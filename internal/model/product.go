// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product はバックエンドが管理する商品を表す。
// クライアントからは読み取り専用として扱う。
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	Rating      float64
	Reviews     int
	InStock     bool
	CreatedAt   time.Time
}

// ProductInput は管理画面から送信される商品の登録・更新内容を表す。
type ProductInput struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	Rating      float64
	Reviews     int
	InStock     bool
}
