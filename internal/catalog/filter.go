package catalog

import (
	"strings"

	"github.com/hitoshi/storefront/internal/model"
)

// CategoryAll はすべてのカテゴリに一致するカテゴリ指定。
const CategoryAll = "All"

// Criteria は商品一覧の絞り込み条件。
type Criteria struct {
	// Category はカテゴリの完全一致条件。空文字列またはCategoryAllは全カテゴリに一致する。
	Category string
	// SearchText は商品名または説明文に対する大文字小文字を区別しない部分一致条件。
	SearchText string
}

// Filter は条件に一致する商品を入力順のまま返す。
// カテゴリ条件と検索条件はANDで組み合わせる。入力スライスは変更しない。
func Filter(products []model.Product, c Criteria) []model.Product {
	search := strings.ToLower(c.SearchText)
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if !matchCategory(p, c.Category) {
			continue
		}
		if search != "" && !matchSearch(p, search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories は商品のカテゴリを初出順に重複なく返す。先頭は常にCategoryAll。
func Categories(products []model.Product) []string {
	seen := map[string]bool{CategoryAll: true}
	out := []string{CategoryAll}
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}

func matchCategory(p model.Product, category string) bool {
	return category == "" || category == CategoryAll || p.Category == category
}

func matchSearch(p model.Product, lowered string) bool {
	return strings.Contains(strings.ToLower(p.Name), lowered) ||
		strings.Contains(strings.ToLower(p.Description), lowered)
}
