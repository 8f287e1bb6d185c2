package cart

import (
	"testing"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/shopspring/decimal"
)

func newProduct(id, name, price string) model.Product {
	return model.Product{
		ID:      id,
		Name:    name,
		Price:   decimal.RequireFromString(price),
		InStock: true,
	}
}

// --- AddItem ---

func TestAddItem_NewProductAppendsLineWithQuantityOne(t *testing.T) {
	c := New("cart-1", "")

	change := c.AddItem(newProduct("p1", "Headphones", "99.99"))

	if change.Kind != ChangeAdded {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeAdded)
	}
	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", items[0].Quantity)
	}
}

func TestAddItem_ExistingProductIncrementsQuantity(t *testing.T) {
	c := New("cart-1", "")
	p := newProduct("p1", "Headphones", "99.99")

	c.AddItem(p)
	change := c.AddItem(p)

	if change.Kind != ChangeIncremented {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeIncremented)
	}
	if change.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", change.Quantity)
	}
	if len(c.Items()) != 1 {
		t.Errorf("同一商品は1明細にまとめられるべき: len = %d", len(c.Items()))
	}
	if !c.Subtotal().Equal(decimal.RequireFromString("199.98")) {
		t.Errorf("Subtotal = %s, want 199.98", c.Subtotal())
	}
}

func TestAddItem_PreservesInsertionOrder(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "1"))
	c.AddItem(newProduct("p2", "B", "2"))
	c.AddItem(newProduct("p1", "A", "1"))

	items := c.Items()
	if items[0].Product.ID != "p1" || items[1].Product.ID != "p2" {
		t.Errorf("明細の順序が追加順ではない: %s, %s", items[0].Product.ID, items[1].Product.ID)
	}
}

func TestAddItem_OutOfStockIsNotRejectedByCart(t *testing.T) {
	c := New("cart-1", "")
	p := newProduct("p1", "A", "10")
	p.InStock = false

	change := c.AddItem(p)

	if change.Kind != ChangeAdded {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeAdded)
	}
}

// --- RemoveItem ---

func TestRemoveItem_RemovesLine(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "10"))
	c.AddItem(newProduct("p2", "B", "20"))

	change := c.RemoveItem("p1")

	if change.Kind != ChangeRemoved {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeRemoved)
	}
	if change.ProductName != "A" {
		t.Errorf("ProductName = %q, want A", change.ProductName)
	}
	if c.ItemCount() != 1 {
		t.Errorf("ItemCount = %d, want 1", c.ItemCount())
	}
}

func TestRemoveItem_MissingIsNoOp(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "10"))

	change := c.RemoveItem("missing")

	if change.Kind != ChangeNone {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeNone)
	}
	if c.ItemCount() != 1 {
		t.Errorf("ItemCount = %d, want 1", c.ItemCount())
	}
}

// --- UpdateQuantity ---

func TestUpdateQuantity_ReplacesQuantity(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "2.50"))

	change := c.UpdateQuantity("p1", 4)

	if change.Kind != ChangeUpdated {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeUpdated)
	}
	if c.ItemCount() != 4 {
		t.Errorf("ItemCount = %d, want 4", c.ItemCount())
	}
	if !c.Subtotal().Equal(decimal.RequireFromString("10")) {
		t.Errorf("Subtotal = %s, want 10", c.Subtotal())
	}
}

func TestUpdateQuantity_BelowOneRemoves(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
	}{
		{name: "zero", quantity: 0},
		{name: "negative", quantity: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("cart-1", "")
			c.AddItem(newProduct("p1", "A", "10"))

			change := c.UpdateQuantity("p1", tt.quantity)

			if change.Kind != ChangeRemoved {
				t.Errorf("Kind = %q, want %q", change.Kind, ChangeRemoved)
			}
			if len(c.Items()) != 0 {
				t.Errorf("明細が削除されていない: len = %d", len(c.Items()))
			}
		})
	}
}

func TestUpdateQuantity_MissingIsNoOp(t *testing.T) {
	c := New("cart-1", "")

	change := c.UpdateQuantity("p1", 3)

	if change.Kind != ChangeNone {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeNone)
	}
	if len(c.Items()) != 0 {
		t.Errorf("存在しない明細が作られた: len = %d", len(c.Items()))
	}
}

func TestUpdateQuantity_SameQuantityIsNoOp(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "10"))
	before := c.version

	change := c.UpdateQuantity("p1", 1)

	if change.Kind != ChangeNone {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeNone)
	}
	if c.version != before {
		t.Errorf("version が変化した: %d -> %d", before, c.version)
	}
}

// --- Clear / View ---

func TestClear_EmptiesCart(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "10"))
	c.AddItem(newProduct("p2", "B", "20"))

	change := c.Clear()

	if change.Kind != ChangeCleared {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeCleared)
	}
	if c.ItemCount() != 0 || !c.Subtotal().IsZero() {
		t.Errorf("カートが空になっていない: count=%d subtotal=%s", c.ItemCount(), c.Subtotal())
	}
}

func TestView_DerivedValuesAreConsistent(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "0.10"))
	c.AddItem(newProduct("p2", "B", "0.20"))
	c.UpdateQuantity("p2", 3)

	v := c.View()

	if v.ID != "cart-1" {
		t.Errorf("ID = %q, want cart-1", v.ID)
	}
	if v.ItemCount != 4 {
		t.Errorf("ItemCount = %d, want 4", v.ItemCount)
	}
	// 10進数で計算するため浮動小数点の誤差は生じない
	if !v.Subtotal.Equal(decimal.RequireFromString("0.70")) {
		t.Errorf("Subtotal = %s, want 0.70", v.Subtotal)
	}
}

func TestSubtotal_MixedQuantities(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("a", "A", "100"))
	c.AddItem(newProduct("a", "A", "100"))
	c.AddItem(newProduct("b", "B", "50"))

	if !c.Subtotal().Equal(decimal.RequireFromString("250")) {
		t.Errorf("Subtotal = %s, want 250", c.Subtotal())
	}
	if c.ItemCount() != 3 {
		t.Errorf("ItemCount = %d, want 3", c.ItemCount())
	}
}

func TestView_ItemsAreCopied(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "10"))

	v := c.View()
	v.Items[0].Quantity = 99

	if c.ItemCount() != 1 {
		t.Errorf("Viewの変更がカートに影響した: ItemCount = %d", c.ItemCount())
	}
}

// --- Rebind ---

func TestRebind_GuestToUserKeepsItems(t *testing.T) {
	c := New("cart-1", "")
	c.AddItem(newProduct("p1", "A", "10"))

	change := c.Rebind("user-1")

	if change.Kind != ChangeNone {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeNone)
	}
	if c.OwnerID() != "user-1" {
		t.Errorf("OwnerID = %q, want user-1", c.OwnerID())
	}
	if c.ItemCount() != 1 {
		t.Errorf("ゲストの明細が引き継がれていない: ItemCount = %d", c.ItemCount())
	}
}

func TestRebind_UserToGuestClears(t *testing.T) {
	c := New("cart-1", "user-1")
	c.AddItem(newProduct("p1", "A", "10"))

	change := c.Rebind("")

	if change.Kind != ChangeCleared {
		t.Errorf("Kind = %q, want %q", change.Kind, ChangeCleared)
	}
	if c.ItemCount() != 0 {
		t.Errorf("ログアウト後に明細が残っている: ItemCount = %d", c.ItemCount())
	}
}

func TestRebind_UserToOtherUserClears(t *testing.T) {
	c := New("cart-1", "user-1")
	c.AddItem(newProduct("p1", "A", "10"))

	c.Rebind("user-2")

	if c.ItemCount() != 0 {
		t.Errorf("別ユーザーに明細が引き継がれた: ItemCount = %d", c.ItemCount())
	}
}

func TestRebind_SameOwnerIsNoOp(t *testing.T) {
	c := New("cart-1", "user-1")
	c.AddItem(newProduct("p1", "A", "10"))
	gen := c.generation

	c.Rebind("user-1")

	if c.generation != gen {
		t.Errorf("generation が変化した: %d -> %d", gen, c.generation)
	}
	if c.ItemCount() != 1 {
		t.Errorf("ItemCount = %d, want 1", c.ItemCount())
	}
}
