package cart

import (
	"github.com/hitoshi/storefront/internal/model"
)

// ticket はチェックアウト開始時点のカートの状態を記録する。
type ticket struct {
	version    uint64
	generation uint64
	lines      []LineItem
}

// orderLines は明細を注文作成リクエストの明細に射影する。
func (t ticket) orderLines() []model.OrderLine {
	lines := make([]model.OrderLine, len(t.lines))
	for i, it := range t.lines {
		lines[i] = model.OrderLine{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Quantity:  it.Quantity,
		}
	}
	return lines
}

// beginCheckout はチェックアウトの送信を開始する。
// 送信中の場合はCheckoutInProgress、明細が空の場合はEmptyCartを返し、状態は変更しない。
func (c *Cart) beginCheckout() (ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return ticket{}, model.NewCheckoutInProgressError()
	}
	if len(c.items) == 0 {
		return ticket{}, model.NewEmptyCartError()
	}

	c.submitting = true
	return ticket{
		version:    c.version,
		generation: c.generation,
		lines:      c.copyItems(),
	}, nil
}

// abortCheckout は送信失敗時に送信中フラグのみを解除する。明細は変更しない。
func (c *Cart) abortCheckout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
}

// completeCheckout は注文作成の成功をカートに反映する。
// 送信中に識別情報が変わっていた場合は応答を適用せずfalseを返す。
// 送信中に明細が変更されていなければカートを空にし、
// 変更されていた場合は送信した数量だけを差し引く。
func (c *Cart) completeCheckout(t ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.submitting = false

	if c.generation != t.generation {
		return false
	}

	if c.version == t.version {
		c.clearLocked()
		return true
	}

	for _, sent := range t.lines {
		i := c.indexOf(sent.Product.ID)
		if i < 0 {
			continue
		}
		remaining := c.items[i].Quantity - sent.Quantity
		if remaining < 1 {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			continue
		}
		c.items[i].Quantity = remaining
	}
	c.touch()
	return true
}
