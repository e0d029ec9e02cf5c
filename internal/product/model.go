package product

import (
	"strconv"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	// nil means the stock level is unknown
	Stock     *int `json:"stock,omitempty"`
	TopSeller bool `json:"top_seller"`
	// nil means no price is available for the product
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Price returns the unit price and whether one exists.
func (p Product) Price() (decimal.Decimal, bool) {
	if p.UnitPrice == nil {
		return decimal.Zero, false
	}
	return *p.UnitPrice, true
}

func (p Product) HasPrice() bool { return p.UnitPrice != nil }

// InStock is true only for a known, positive stock level.
func (p Product) InStock() bool { return p.Stock != nil && *p.Stock > 0 }

// StockDisplay is the stock count, or "Out of Stock" when unknown or empty.
func (p Product) StockDisplay() string {
	if !p.InStock() {
		return "Out of Stock"
	}
	return strconv.Itoa(*p.Stock)
}

// DisplayPrice formats the price as USD, or "" when unavailable.
func (p Product) DisplayPrice() string {
	if p.UnitPrice == nil {
		return ""
	}
	return FormatUSD(*p.UnitPrice)
}

// FormatUSD renders an amount as "$1,234.50".
func FormatUSD(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac := s[:len(s)-3], s[len(s)-2:]
	var out []byte
	for i := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, whole[i])
	}
	return sign + "$" + string(out) + "." + frac
}

// ListResponse is the catalog listing returned by the storefront API.
// swagger:model
type ListResponse struct {
	// search query applied
	Q string `json:"q,omitempty"`
	// total items returned
	Total int       `json:"total"`
	Items []Product `json:"items"`
}
