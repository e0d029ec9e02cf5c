package cart

import "github.com/shopspring/decimal"

type Line struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Cart as returned by the cart service. The zero value is the empty cart.
type Cart struct {
	ID         string          `json:"id"`
	Lines      []Line          `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"total_items"`
}

func (c Cart) Empty() bool { return len(c.Lines) == 0 }

// LocalSubtotal sums quantity x unit price over the lines.
func (c Cart) LocalSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

func (c Cart) LocalItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Line(id string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// Totalled returns a copy with line totals, subtotal and item count derived
// from the lines. The cart service uses it to build authoritative carts.
func (c Cart) Totalled() Cart {
	out := c.clone()
	for i := range out.Lines {
		l := &out.Lines[i]
		l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	}
	out.Subtotal = out.LocalSubtotal()
	out.TotalItems = out.LocalItemCount()
	return out
}

func (c Cart) clone() Cart {
	out := c
	if c.Lines != nil {
		out.Lines = make([]Line, len(c.Lines))
		copy(out.Lines, c.Lines)
	}
	return out
}

func (c Cart) withQuantity(lineID string, qty int) Cart {
	out := c.clone()
	for i := range out.Lines {
		if out.Lines[i].ID == lineID {
			out.Lines[i].Quantity = qty
			out.Lines[i].LineTotal = out.Lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		}
	}
	return out
}

func (c Cart) without(lineID string) Cart {
	out := c.clone()
	lines := out.Lines[:0]
	for _, l := range out.Lines {
		if l.ID != lineID {
			lines = append(lines, l)
		}
	}
	out.Lines = lines
	return out
}
