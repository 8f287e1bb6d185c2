// Package catalog は商品カタログの取得と絞り込み機能を提供する。
// バックエンドからの取得結果は有効期限付きLRUキャッシュに保持する。
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hitoshi/storefront/internal/model"
)

const (
	// defaultCacheTTL はキャッシュの有効期限（デフォルト）。
	defaultCacheTTL = time.Minute
	// productCacheSize は個別商品キャッシュの最大件数。
	productCacheSize = 1024
	// listCacheKey は商品一覧キャッシュのキー。
	listCacheKey = "all"
)

// キャッシュ参照結果のメトリクスラベル。
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// ProductSource は商品の取得元インターフェース。
type ProductSource interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	// GetProduct は商品を取得する。存在しない場合はnilを返す。
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

// CacheRecorder はキャッシュ参照結果の記録インターフェース。
type CacheRecorder interface {
	RecordCatalogCache(result string)
}

// Service は商品カタログのアクセサ。
// 取得失敗はCatalogUnavailable、存在しない商品はProductNotFoundとして区別して返す。
type Service struct {
	source   ProductSource
	list     *expirable.LRU[string, []model.Product]
	products *expirable.LRU[string, model.Product]
	metrics  CacheRecorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。
// ttlが0以下の場合はデフォルト値を使用する。metricsはnilでもよい。
func NewService(source ProductSource, ttl time.Duration, metrics CacheRecorder, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:   source,
		list:     expirable.NewLRU[string, []model.Product](1, nil, ttl),
		products: expirable.NewLRU[string, model.Product](productCacheSize, nil, ttl),
		metrics:  metrics,
		logger:   logger,
	}
}

// ListProducts は全商品を返す。
// 取得に失敗した場合は空リストではなくCatalogUnavailableを返す。
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	if cached, ok := s.list.Get(listCacheKey); ok {
		s.record(CacheHit)
		return copyProducts(cached), nil
	}
	s.record(CacheMiss)

	products, err := s.source.ListProducts(ctx)
	if err != nil {
		s.logger.Error("failed to list products",
			slog.String("error", err.Error()),
		)
		return nil, model.NewCatalogUnavailableError()
	}

	s.list.Add(listCacheKey, products)
	for _, p := range products {
		s.products.Add(p.ID, p)
	}
	return copyProducts(products), nil
}

// GetProduct は指定IDの商品を返す。
// 存在しない場合はProductNotFound、取得に失敗した場合はCatalogUnavailableを返す。
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, model.NewProductNotFoundError(id)
	}
	if cached, ok := s.products.Get(id); ok {
		s.record(CacheHit)
		return &cached, nil
	}
	s.record(CacheMiss)

	p, err := s.source.GetProduct(ctx, id)
	if err != nil {
		s.logger.Error("failed to get product",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewCatalogUnavailableError()
	}
	if p == nil {
		return nil, model.NewProductNotFoundError(id)
	}

	s.products.Add(p.ID, *p)
	return p, nil
}

// Search は全商品を取得して条件で絞り込む。
func (s *Service) Search(ctx context.Context, c Criteria) ([]model.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(products, c), nil
}

// Categories は商品カテゴリの一覧を返す。先頭は常にCategoryAll。
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(products), nil
}

// Invalidate はキャッシュを破棄する。商品の登録・更新・削除後に呼び出す。
func (s *Service) Invalidate() {
	s.list.Purge()
	s.products.Purge()
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordCatalogCache(result)
	}
}

func copyProducts(in []model.Product) []model.Product {
	out := make([]model.Product, len(in))
	copy(out, in)
	return out
}
