package order

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

type SortField string

const (
	SortOrderNumber   SortField = "OrderNumber"
	SortEffectiveDate SortField = "EffectiveDate"
	SortStatus        SortField = "Status"
	SortTotalAmount   SortField = "TotalAmount"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var ErrUnknownSortField = errors.New("unknown sort field")

// Lister returns the shopper's orders.
type Lister interface {
	ListOrders(ctx context.Context) ([]Order, error)
}

// Summary of an order list.
type Summary struct {
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
}

// Summarize totals the orders. The average is rounded to cents and zero for
// an empty list.
func Summarize(orders []Order) Summary {
	s := Summary{Count: len(orders), Total: decimal.Zero, Average: decimal.Zero}
	for _, o := range orders {
		s.Total = s.Total.Add(o.TotalAmount)
	}
	if s.Count > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}
	return s
}

// SortOrders returns a sorted copy. Ties keep the order id ascending.
func SortOrders(orders []Order, field SortField, dir Direction) ([]Order, error) {
	var compare func(a, b Order) int
	switch field {
	case SortOrderNumber:
		compare = func(a, b Order) int { return cmp.Compare(a.OrderNumber, b.OrderNumber) }
	case SortEffectiveDate:
		compare = func(a, b Order) int { return a.EffectiveDate.Compare(b.EffectiveDate) }
	case SortStatus:
		compare = func(a, b Order) int { return cmp.Compare(a.Status, b.Status) }
	case SortTotalAmount:
		compare = func(a, b Order) int { return a.TotalAmount.Cmp(b.TotalAmount) }
	default:
		return nil, ErrUnknownSortField
	}
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b Order) int {
		c := compare(a, b)
		if dir == Desc {
			c = -c
		}
		if c == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		return c
	})
	return out, nil
}

// History is the order history view: the loaded list, its sort and summary.
type History struct {
	src Lister
	log *zap.Logger

	mu     sync.Mutex
	orders []Order
	field  SortField
	dir    Direction
	err    error
}

// NewHistory sorts by effective date, newest first, until told otherwise.
func NewHistory(src Lister, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{src: src, log: log, field: SortEffectiveDate, dir: Desc}
}

// Refresh reloads the orders. A failure empties the list.
func (h *History) Refresh(ctx context.Context) error {
	orders, err := h.src.ListOrders(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.orders = nil
		h.err = rpc.Fetch("listOrders", err, "Unable to load orders")
		h.log.Warn("order history load failed", zap.Error(err))
		return h.err
	}
	sorted, _ := SortOrders(orders, h.field, h.dir)
	h.orders = sorted
	h.err = nil
	return nil
}

// Sort changes the sort of the loaded list.
func (h *History) Sort(field SortField, dir Direction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	sorted, err := SortOrders(h.orders, field, dir)
	if err != nil {
		return err
	}
	h.orders, h.field, h.dir = sorted, field, dir
	return nil
}

func (h *History) Orders() []Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Order, len(h.orders))
	copy(out, h.orders)
	return out
}

func (h *History) Summary() Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Summarize(h.orders)
}

func (h *History) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}
