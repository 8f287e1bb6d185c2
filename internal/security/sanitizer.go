// Package security はアプリケーションのセキュリティ機能を提供する。
//
// 管理画面から登録される商品情報のサニタイズと、
// 商品画像URLのSSRF対策付き検証を含む。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ProductSanitizer は管理画面から送信された商品テキストをサニタイズする。
// bluemondayのポリシーはスレッドセーフのため、1インスタンスを共有して使う。
type ProductSanitizer struct {
	description *bluemonday.Policy
	plain       *bluemonday.Policy
}

// NewProductSanitizer はProductSanitizerを生成する。
// 説明文は段落・改行・リスト・強調のみを許可し、リンク・画像・スクリプトは除去する。
// 商品名やカテゴリはタグをすべて除去する。
func NewProductSanitizer() *ProductSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")

	return &ProductSanitizer{
		description: p,
		plain:       bluemonday.StrictPolicy(),
	}
}

// Description は商品説明文をサニタイズする。
func (s *ProductSanitizer) Description(raw string) string {
	return strings.TrimSpace(s.description.Sanitize(raw))
}

// PlainText はタグをすべて除去し、前後の空白を取り除く。
func (s *ProductSanitizer) PlainText(raw string) string {
	return strings.TrimSpace(s.plain.Sanitize(raw))
}
