package domain

// LineItem is one product entry of a cart. A cart holds at most one line per ProductID.
type LineItem struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

// LocalCart is the shopper's in-progress cart for a single vendor.
type LocalCart struct {
	VendorID string     `json:"vendorId"`
	Items    []LineItem `json:"items"`
}

// Add increments the quantity of an existing line for the product or appends a new line
// with quantity 1.
func (c *LocalCart) Add(item LineItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity++
			return
		}
	}
	item.Quantity = 1
	if item.UnitPriceCents < 0 {
		item.UnitPriceCents = 0
	}
	c.Items = append(c.Items, item)
}

// Remove deletes the line for productID. Missing products are ignored.
func (c *LocalCart) Remove(productID string) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// SetQuantity replaces the quantity of the line for productID; qty <= 0 removes it.
func (c *LocalCart) SetQuantity(productID string, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			return
		}
	}
}

// Total is the sum of unit price times quantity over all lines.
func (c LocalCart) Total() int64 {
	return TotalOf(c.Items)
}

// ItemCount is the sum of quantities over all lines.
func (c LocalCart) ItemCount() int {
	return ItemCountOf(c.Items)
}

func (c LocalCart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy safe to hand to other goroutines.
func (c LocalCart) Clone() LocalCart {
	return LocalCart{VendorID: c.VendorID, Items: CloneItems(c.Items)}
}

func TotalOf(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPriceCents * int64(it.Quantity)
	}
	return total
}

func ItemCountOf(items []LineItem) int {
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return count
}

// CloneItems copies items, dropping lines with a non-positive quantity and merging
// duplicate product ids so the result respects the cart invariants.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if idx, ok := index[it.ProductID]; ok {
			out[idx].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}
