package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/shopspring/decimal"
)

// snapshotLine はcart_snapshots.itemsに保存する明細のJSON表現。
type snapshotLine struct {
	ProductID   string          `json:"product_id"`
	SKU         string          `json:"sku,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
	Rating      float64         `json:"rating,omitempty"`
	Reviews     int             `json:"reviews,omitempty"`
	InStock     bool            `json:"in_stock"`
	Quantity    int             `json:"quantity"`
}

// PostgresCartRepo はPostgreSQLを使用したカートスナップショットリポジトリ。
// 明細はJSONBカラムに商品スナップショットごと保存する。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// Load は指定カートのスナップショットを取得する。存在しない場合はnilを返す。
func (r *PostgresCartRepo) Load(ctx context.Context, cartID string) (*cart.Snapshot, error) {
	var (
		ownerID string
		raw     []byte
		updated time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id, items, updated_at FROM cart_snapshots WHERE cart_id = $1`,
		cartID,
	).Scan(&ownerID, &raw, &updated)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	var lines []snapshotLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart snapshot items: %w", err)
	}

	items := make([]cart.LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, cart.LineItem{
			Product: model.Product{
				ID:          l.ProductID,
				SKU:         l.SKU,
				Name:        l.Name,
				Description: l.Description,
				Price:       l.Price,
				Image:       l.Image,
				Category:    l.Category,
				Rating:      l.Rating,
				Reviews:     l.Reviews,
				InStock:     l.InStock,
			},
			Quantity: l.Quantity,
		})
	}

	return &cart.Snapshot{
		CartID:    cartID,
		OwnerID:   ownerID,
		Items:     items,
		UpdatedAt: updated,
	}, nil
}

// Save はスナップショットを保存する。
// 既存の行より古いスナップショットは上書きしない。
func (r *PostgresCartRepo) Save(ctx context.Context, s cart.Snapshot) error {
	lines := make([]snapshotLine, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, snapshotLine{
			ProductID:   it.Product.ID,
			SKU:         it.Product.SKU,
			Name:        it.Product.Name,
			Description: it.Product.Description,
			Price:       it.Product.Price,
			Image:       it.Product.Image,
			Category:    it.Product.Category,
			Rating:      it.Product.Rating,
			Reviews:     it.Product.Reviews,
			InStock:     it.Product.InStock,
			Quantity:    it.Quantity,
		})
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot items: %w", err)
	}

	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cart_snapshots (cart_id, owner_id, items, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cart_id) DO UPDATE
		 SET owner_id = EXCLUDED.owner_id, items = EXCLUDED.items, updated_at = EXCLUDED.updated_at
		 WHERE cart_snapshots.updated_at <= EXCLUDED.updated_at`,
		s.CartID, s.OwnerID, raw, updated,
	)
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

// Delete は指定カートのスナップショットを削除する。
func (r *PostgresCartRepo) Delete(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_snapshots WHERE cart_id = $1`,
		cartID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}

// DeleteUpdatedBefore は指定時刻より前に更新されたスナップショットを削除する。
func (r *PostgresCartRepo) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_snapshots WHERE updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale cart snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ CartSnapshotRepository = (*PostgresCartRepo)(nil)
