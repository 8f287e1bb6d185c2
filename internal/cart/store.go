package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultStoreSize はメモリ上に保持するカート数の上限（デフォルト）。
const defaultStoreSize = 10000

// Snapshot は永続化用のカートの写し。
// OwnerIDが現在の利用者と一致しないスナップショットは復元しない。
type Snapshot struct {
	CartID    string
	OwnerID   string
	Items     []LineItem
	UpdatedAt time.Time
}

// SnapshotRepository はカートスナップショットの永続化インターフェース。
type SnapshotRepository interface {
	// Load は指定カートのスナップショットを取得する。存在しない場合はnilを返す。
	Load(ctx context.Context, cartID string) (*Snapshot, error)
	// Save はスナップショットを保存する（既存があれば上書き）。
	Save(ctx context.Context, snapshot Snapshot) error
	// Delete は指定カートのスナップショットを削除する。
	Delete(ctx context.Context, cartID string) error
}

// Snapshot はカートの現在の状態を永続化用に写し取る。
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		CartID:    c.id,
		OwnerID:   c.ownerID,
		Items:     c.copyItems(),
		UpdatedAt: c.updatedAt,
	}
}

// Restore はスナップショットからカートを復元する。
// 数量が1未満の明細は捨て、同一商品の明細は数量を合算して1つにまとめる。
func Restore(s Snapshot) *Cart {
	c := New(s.CartID, s.OwnerID)
	for _, it := range s.Items {
		if it.Quantity < 1 || it.Product.ID == "" {
			continue
		}
		if i := c.indexOf(it.Product.ID); i >= 0 {
			c.items[i].Quantity += it.Quantity
			continue
		}
		c.items = append(c.items, it)
	}
	if !s.UpdatedAt.IsZero() {
		c.updatedAt = s.UpdatedAt
	}
	return c
}

// Store はカートIDごとのカートを保持する。
// メモリ上のカートはLRUで上限管理し、リポジトリが設定されていれば
// 変更のたびにスナップショットを書き込む。
// チェックアウト送信中のカートはLRUから追い出されても送信完了まで保持する。
// スナップショットの読み書きはmuを保持せずに行う。
type Store struct {
	mu       sync.Mutex
	carts    *lru.Cache[string, *Cart]
	inflight map[string]*Cart
	repo     SnapshotRepository // nilの場合は永続化しない
	logger   *slog.Logger
}

// NewStore はStoreを生成する。
// sizeが0以下の場合はデフォルト値を使用する。repoはnilでもよい。
func NewStore(size int, repo SnapshotRepository, logger *slog.Logger) (*Store, error) {
	if size <= 0 {
		size = defaultStoreSize
	}
	carts, err := lru.New[string, *Cart](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		carts:    carts,
		inflight: make(map[string]*Cart),
		repo:     repo,
		logger:   logger,
	}, nil
}

// Get は指定カートを取得する。存在しなければ空のカートを作成する。
// メモリにない場合は永続化済みスナップショットから復元を試みるが、
// 別のユーザーが所有するスナップショットは破棄する。
// 取得したカートの所有者が現在の利用者と異なる場合はRebindで切り替える。
func (s *Store) Get(ctx context.Context, cartID, ownerID string) *Cart {
	s.mu.Lock()
	c, cleared := s.lookupLocked(cartID, ownerID)
	s.mu.Unlock()

	if c == nil {
		restored := s.restore(ctx, cartID, ownerID)

		s.mu.Lock()
		// 復元中に別のリクエストが同じカートを登録していればそちらを使う
		c, cleared = s.lookupLocked(cartID, ownerID)
		if c == nil {
			c = restored
			s.carts.Add(cartID, c)
		}
		s.mu.Unlock()
	}

	if cleared {
		s.deleteSnapshot(ctx, cartID)
	}
	return c
}

// Acquire はチェックアウトの送信権を取得し、対象のカートを返す。
// 同じカートIDで送信中の場合はfalseを返す。
// 取得に成功した場合、呼び出し側は送信完了後に必ずReleaseを呼ぶ。
func (s *Store) Acquire(ctx context.Context, cartID, ownerID string) (*Cart, bool) {
	c := s.Get(ctx, cartID, ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[cartID]; busy {
		return nil, false
	}
	// Getの後に追い出され、別のリクエストで作り直されていればそちらを対象にする
	if cur, ok := s.carts.Peek(cartID); ok && cur != c {
		cur.Rebind(ownerID)
		c = cur
	} else if !ok {
		s.carts.Add(cartID, c)
	}
	s.inflight[cartID] = c
	return c, true
}

// Release はAcquireで取得した送信権を解放する。
func (s *Store) Release(cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, cartID)
}

// Save はカートのスナップショットを永続化する。
// 永続化の失敗はログに記録するのみで、メモリ上のカートには影響しない。
func (s *Store) Save(ctx context.Context, c *Cart) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, c.Snapshot()); err != nil {
		s.logger.Warn("failed to save cart snapshot",
			slog.String("cart_id", c.ID()),
			slog.String("error", err.Error()),
		)
	}
}

// Len はメモリ上に保持しているカート数を返す。
func (s *Store) Len() int {
	return s.carts.Len()
}

// lookupLocked はmu保持中にメモリ上のカートを探し、所有者を切り替える。
// 送信中のカートがLRUから追い出されていればLRUに戻す。
// 切り替えで明細が破棄された場合はclearedがtrueになる。
func (s *Store) lookupLocked(cartID, ownerID string) (c *Cart, cleared bool) {
	c, ok := s.carts.Get(cartID)
	if !ok {
		c, ok = s.inflight[cartID]
		if !ok {
			return nil, false
		}
		s.carts.Add(cartID, c)
	}
	return c, c.Rebind(ownerID).Kind == ChangeCleared
}

// restore はスナップショットからカートを復元する。復元できない場合は空のカートを返す。
func (s *Store) restore(ctx context.Context, cartID, ownerID string) *Cart {
	if s.repo == nil {
		return New(cartID, ownerID)
	}

	snap, err := s.repo.Load(ctx, cartID)
	if err != nil {
		s.logger.Warn("failed to load cart snapshot",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
		return New(cartID, ownerID)
	}
	if snap == nil {
		return New(cartID, ownerID)
	}

	// ゲストのスナップショットはログイン後も引き継ぐ（Rebindと同じ規則）
	if snap.OwnerID != ownerID && snap.OwnerID != "" {
		s.logger.Info("discarding cart snapshot of another identity",
			slog.String("cart_id", cartID),
		)
		s.deleteSnapshot(ctx, cartID)
		return New(cartID, ownerID)
	}

	c := Restore(*snap)
	c.Rebind(ownerID)
	return c
}

func (s *Store) deleteSnapshot(ctx context.Context, cartID string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Delete(ctx, cartID); err != nil {
		s.logger.Warn("failed to delete cart snapshot",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}
}
