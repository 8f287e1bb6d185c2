// Package admin は管理者向けの商品登録・更新・削除機能を提供する。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/storefront/internal/backend"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/shopspring/decimal"
)

const (
	// defaultRating は評価が未入力の場合の値。
	defaultRating = 4.5
	// maxRating は評価の上限。
	maxRating = 5.0
	// maxNameLength は商品名の最大文字数。
	maxNameLength = 200
	// maxDescriptionLength は説明文の最大文字数。
	maxDescriptionLength = 5000
)

// ProductBackend は商品の書き込みAPIのインターフェース。
type ProductBackend interface {
	CreateProduct(ctx context.Context, in model.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, in model.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// CatalogInvalidator は商品カタログのキャッシュ破棄インターフェース。
type CatalogInvalidator interface {
	Invalidate()
}

// TextSanitizer は管理画面から送信されたテキストのサニタイズインターフェース。
type TextSanitizer interface {
	Description(raw string) string
	PlainText(raw string) string
}

// ImageChecker は商品画像URLの検証インターフェース。
type ImageChecker interface {
	Validate(rawURL string) error
	Probe(ctx context.Context, rawURL string) error
}

// ProductForm は管理画面から送信される商品の入力内容。
// 未入力の項目はnilで表す。
type ProductForm struct {
	SKU         string   `json:"product_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Image       string   `json:"image"`
	Category    string   `json:"category"`
	Rating      *float64 `json:"rating"`
	Reviews     *int     `json:"reviews"`
	InStock     *bool    `json:"in_stock"`
}

// Service は商品の登録・更新・削除を行う。
// 書き込みに成功するたびにカタログのキャッシュを破棄する。
type Service struct {
	backend     ProductBackend
	catalog     CatalogInvalidator
	sanitizer   TextSanitizer
	images      ImageChecker
	probeImages bool
	logger      *slog.Logger
}

// NewService はServiceを生成する。
// probeImagesがtrueの場合、画像URLを実際に取得して画像であることを確認する。
func NewService(b ProductBackend, catalog CatalogInvalidator, sanitizer TextSanitizer, images ImageChecker, probeImages bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:     b,
		catalog:     catalog,
		sanitizer:   sanitizer,
		images:      images,
		probeImages: probeImages,
		logger:      logger,
	}
}

// CreateProduct は商品を登録する。
func (s *Service) CreateProduct(ctx context.Context, form ProductForm) (*model.Product, error) {
	in, err := s.normalize(ctx, form)
	if err != nil {
		return nil, err
	}

	p, err := s.backend.CreateProduct(ctx, in)
	if err != nil {
		return nil, s.mapBackendError("create", "", err)
	}

	s.catalog.Invalidate()
	s.logger.Info("product created",
		slog.String("product_id", p.ID),
		slog.String("name", p.Name),
	)
	return p, nil
}

// UpdateProduct は指定IDの商品を更新する。
func (s *Service) UpdateProduct(ctx context.Context, id string, form ProductForm) (*model.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.NewProductNotFoundError(id)
	}
	in, err := s.normalize(ctx, form)
	if err != nil {
		return nil, err
	}

	p, err := s.backend.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, s.mapBackendError("update", id, err)
	}

	s.catalog.Invalidate()
	s.logger.Info("product updated", slog.String("product_id", id))
	return p, nil
}

// DeleteProduct は指定IDの商品を削除する。
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return model.NewProductNotFoundError(id)
	}

	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		return s.mapBackendError("delete", id, err)
	}

	s.catalog.Invalidate()
	s.logger.Info("product deleted", slog.String("product_id", id))
	return nil
}

// normalize は入力内容を検証し、サニタイズとデフォルト値の補完を行う。
func (s *Service) normalize(ctx context.Context, form ProductForm) (model.ProductInput, error) {
	name := s.sanitizer.PlainText(form.Name)
	if name == "" {
		return model.ProductInput{}, model.NewInvalidProductError("商品名は必須です")
	}
	if len([]rune(name)) > maxNameLength {
		return model.ProductInput{}, model.NewInvalidProductError(fmt.Sprintf("商品名は%d文字以内で入力してください", maxNameLength))
	}

	price, err := decimal.NewFromString(strings.TrimSpace(form.Price))
	if err != nil {
		return model.ProductInput{}, model.NewInvalidProductError("価格は数値で入力してください")
	}
	if price.IsNegative() {
		return model.ProductInput{}, model.NewInvalidProductError("価格は0以上で入力してください")
	}

	category := s.sanitizer.PlainText(form.Category)
	if category == "" {
		return model.ProductInput{}, model.NewInvalidProductError("カテゴリは必須です")
	}

	description := s.sanitizer.Description(form.Description)
	if len([]rune(description)) > maxDescriptionLength {
		return model.ProductInput{}, model.NewInvalidProductError(fmt.Sprintf("説明文は%d文字以内で入力してください", maxDescriptionLength))
	}

	image := strings.TrimSpace(form.Image)
	if image != "" {
		if err := s.checkImage(ctx, image); err != nil {
			s.logger.Warn("rejected product image URL",
				slog.String("image", image),
				slog.String("error", err.Error()),
			)
			return model.ProductInput{}, model.NewInvalidProductError("画像URLが不正です")
		}
	}

	rating := defaultRating
	if form.Rating != nil {
		rating = *form.Rating
	}
	if rating < 0 || rating > maxRating {
		return model.ProductInput{}, model.NewInvalidProductError("評価は0から5の範囲で入力してください")
	}

	reviews := 0
	if form.Reviews != nil {
		reviews = *form.Reviews
	}
	if reviews < 0 {
		return model.ProductInput{}, model.NewInvalidProductError("レビュー数は0以上で入力してください")
	}

	inStock := true
	if form.InStock != nil {
		inStock = *form.InStock
	}

	return model.ProductInput{
		SKU:         s.sanitizer.PlainText(form.SKU),
		Name:        name,
		Description: description,
		Price:       price,
		Image:       image,
		Category:    category,
		Rating:      rating,
		Reviews:     reviews,
		InStock:     inStock,
	}, nil
}

func (s *Service) checkImage(ctx context.Context, image string) error {
	if s.probeImages {
		return s.images.Probe(ctx, image)
	}
	return s.images.Validate(image)
}

// mapBackendError はバックエンドのエラーをAPIErrorに変換する。
func (s *Service) mapBackendError(op, id string, err error) error {
	s.logger.Error("failed to write product",
		slog.String("operation", op),
		slog.String("product_id", id),
		slog.String("error", err.Error()),
	)

	if backend.IsNotFound(err) {
		return model.NewProductNotFoundError(id)
	}
	var se *backend.StatusError
	if errors.As(err, &se) && se.StatusCode >= http.StatusBadRequest && se.StatusCode < http.StatusInternalServerError {
		reason := se.Message
		if reason == "" {
			reason = "バックエンドが入力内容を受け付けませんでした"
		}
		return model.NewInvalidProductError(reason)
	}
	return model.NewCatalogUnavailableError()
}
