package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatusPlaced = "Placed"

type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	CustomerID    string          `json:"customer_id"`
	Status        string          `json:"status"`
	EffectiveDate time.Time       `json:"effective_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Contact       Contact         `json:"contact"`
	Shipping      Shipping        `json:"shipping"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Confirmation is returned by a successful checkout.
type Confirmation struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewOrderNumber formats the shopper-facing order number for t.
func NewOrderNumber(t time.Time) string {
	return "ORD-" + t.UTC().Format("20060102-150405.000")
}
