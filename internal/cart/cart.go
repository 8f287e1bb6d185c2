// Package cart はブラウザセッションごとのショッピングカートを提供する。
// 明細の一意性と数量の不変条件を保つ状態遷移と、チェックアウトの調停を含む。
package cart

import (
	"sync"
	"time"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/shopspring/decimal"
)

// LineItem はカート内の1明細（商品スナップショットと数量の組）を表す。
// Quantityは常に1以上。
type LineItem struct {
	Product  model.Product
	Quantity int
}

// Total は明細の小計（単価 × 数量）を返す。
func (l LineItem) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ChangeKind はカート操作による変化の種別を表す。
type ChangeKind string

const (
	// ChangeNone は状態に変化がなかったことを示す。
	ChangeNone ChangeKind = "none"
	// ChangeAdded は新しい明細が追加されたことを示す。
	ChangeAdded ChangeKind = "added"
	// ChangeIncremented は既存明細の数量が1増えたことを示す。
	ChangeIncremented ChangeKind = "incremented"
	// ChangeUpdated は既存明細の数量が置き換えられたことを示す。
	ChangeUpdated ChangeKind = "updated"
	// ChangeRemoved は明細が削除されたことを示す。
	ChangeRemoved ChangeKind = "removed"
	// ChangeCleared はカートが空にされたことを示す。
	ChangeCleared ChangeKind = "cleared"
)

// Change はカート操作の結果。ユーザー向けの確認メッセージの組み立てに使う。
type Change struct {
	Kind        ChangeKind
	ProductID   string
	ProductName string
	Quantity    int
}

// View はカートのある時点の一貫したスナップショット。
// SubtotalとItemCountは明細から都度計算され、保存されない。
type View struct {
	ID        string
	Items     []LineItem
	Subtotal  decimal.Decimal
	ItemCount int
}

// Cart はショッピングカート。
// すべての変更はメソッド経由で行い、mutexにより同時に1つの書き込みのみを許可する。
// ネットワーク通信中にmutexを保持することはない。
type Cart struct {
	mu sync.Mutex

	id      string
	ownerID string // ゲストの場合は空文字列
	items   []LineItem

	// version は明細が変わるたびに増加する。
	version uint64
	// generation は利用者の識別情報が変わるたびに増加する。
	generation uint64
	// submitting はチェックアウトの送信中であることを示す。
	submitting bool

	updatedAt time.Time
}

// New は空のカートを生成する。
func New(id, ownerID string) *Cart {
	return &Cart{
		id:        id,
		ownerID:   ownerID,
		updatedAt: time.Now().Truncate(time.Microsecond),
	}
}

// ID はカートIDを返す。
func (c *Cart) ID() string {
	return c.id
}

// OwnerID はカートを所有するユーザーIDを返す。ゲストの場合は空文字列。
func (c *Cart) OwnerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ownerID
}

// AddItem は商品をカートに追加する。
// 同じ商品IDの明細が既にあれば数量を1増やし、なければ数量1の明細を末尾に追加する。
// 在庫状態による制限はこの層では行わない。
func (c *Cart) AddItem(product model.Product) Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(product.ID); i >= 0 {
		c.items[i].Quantity++
		c.touch()
		return Change{
			Kind:        ChangeIncremented,
			ProductID:   product.ID,
			ProductName: c.items[i].Product.Name,
			Quantity:    c.items[i].Quantity,
		}
	}

	c.items = append(c.items, LineItem{Product: product, Quantity: 1})
	c.touch()
	return Change{
		Kind:        ChangeAdded,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
	}
}

// RemoveItem は指定商品の明細を削除する。
// 明細が存在しない場合は何もしない（エラーにはしない）。
func (c *Cart) RemoveItem(productID string) Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(productID)
}

// UpdateQuantity は指定商品の明細の数量を置き換える。
// quantityが1未満の場合はRemoveItemと同じ動作をする。
// 明細が存在しない場合は何もしない。
func (c *Cart) UpdateQuantity(productID string, quantity int) Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity < 1 {
		return c.removeLocked(productID)
	}

	i := c.indexOf(productID)
	if i < 0 {
		return Change{Kind: ChangeNone, ProductID: productID}
	}
	if c.items[i].Quantity == quantity {
		return Change{
			Kind:        ChangeNone,
			ProductID:   productID,
			ProductName: c.items[i].Product.Name,
			Quantity:    quantity,
		}
	}

	c.items[i].Quantity = quantity
	c.touch()
	return Change{
		Kind:        ChangeUpdated,
		ProductID:   productID,
		ProductName: c.items[i].Product.Name,
		Quantity:    quantity,
	}
}

// Clear はカートを無条件に空にする。
func (c *Cart) Clear() Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	return Change{Kind: ChangeCleared}
}

// Subtotal は明細ごとの 単価 × 数量 の合計を返す。
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return subtotal(c.items)
}

// ItemCount は明細の数量の合計を返す。
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return itemCount(c.items)
}

// Items は明細のコピーを追加順に返す。
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyItems()
}

// IsSubmitting はチェックアウトの送信中かどうかを返す。
func (c *Cart) IsSubmitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// View は明細・小計・点数を同一時点の状態から計算して返す。
func (c *Cart) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		ID:        c.id,
		Items:     c.copyItems(),
		Subtotal:  subtotal(c.items),
		ItemCount: itemCount(c.items),
	}
}

// Rebind はカートの所有者を切り替える。
// ゲストからログインユーザーへの切り替えでは明細を引き継ぎ、
// それ以外の識別情報の変化（ログアウト、別ユーザーへの切り替え）では明細を破棄する。
// いずれの場合も世代を進め、送信中のチェックアウト応答が新しい所有者のカートに適用されないようにする。
func (c *Cart) Rebind(ownerID string) Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ownerID == ownerID {
		return Change{Kind: ChangeNone}
	}

	guest := c.ownerID == ""
	c.ownerID = ownerID
	c.generation++

	if guest {
		c.advanceUpdatedAt()
		return Change{Kind: ChangeNone}
	}

	c.clearLocked()
	return Change{Kind: ChangeCleared}
}

// removeLocked はmutex保持中に明細を削除する。
func (c *Cart) removeLocked(productID string) Change {
	i := c.indexOf(productID)
	if i < 0 {
		return Change{Kind: ChangeNone, ProductID: productID}
	}

	removed := c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.touch()
	return Change{
		Kind:        ChangeRemoved,
		ProductID:   productID,
		ProductName: removed.Product.Name,
		Quantity:    removed.Quantity,
	}
}

func (c *Cart) clearLocked() {
	c.items = nil
	c.touch()
}

// indexOf は商品IDに一致する明細の位置を返す。見つからない場合は-1。
func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) copyItems() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) touch() {
	c.version++
	c.advanceUpdatedAt()
}

// advanceUpdatedAt は更新時刻をマイクロ秒単位で単調に進める。
// スナップショットの保存順はこの時刻で判定する。
func (c *Cart) advanceUpdatedAt() {
	now := time.Now().Truncate(time.Microsecond)
	if !now.After(c.updatedAt) {
		now = c.updatedAt.Truncate(time.Microsecond).Add(time.Microsecond)
	}
	c.updatedAt = now
}

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total())
	}
	return sum
}

func itemCount(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
