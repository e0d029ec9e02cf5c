// Package quote lets a shopper turn the cart into a price quote and review
// the quotes already requested.
package quote

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

const (
	StatusDraft   = "Draft"
	StatusUnknown = "Unknown"
)

var ErrEmptyCart = errors.New("cart is empty")

type Quote struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	CreatedDate time.Time       `json:"created_date"`
}

// NewName names a quote created at t.
func NewName(t time.Time) string {
	return "Quote " + t.UTC().Format("2006-01-02 15:04")
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type Summary struct {
	TotalQuotes int             `json:"total_quotes"`
	TotalValue  decimal.Decimal `json:"total_value"`
	ByStatus    []StatusCount   `json:"by_status"`
}

// Summarize counts quotes per status, a blank status counting as Unknown.
// ByStatus is sorted by status.
func Summarize(quotes []Quote) Summary {
	s := Summary{TotalQuotes: len(quotes), TotalValue: decimal.Zero, ByStatus: []StatusCount{}}
	counts := map[string]int{}
	for _, q := range quotes {
		s.TotalValue = s.TotalValue.Add(q.GrandTotal)
		status := q.Status
		if status == "" {
			status = StatusUnknown
		}
		counts[status]++
	}
	for status, n := range counts {
		s.ByStatus = append(s.ByStatus, StatusCount{Status: status, Count: n})
	}
	sort.Slice(s.ByStatus, func(i, j int) bool { return s.ByStatus[i].Status < s.ByStatus[j].Status })
	return s
}

// Remote is the quote service.
type Remote interface {
	ListQuotes(ctx context.Context) ([]Quote, error)
	CreateQuote(ctx context.Context) (*Quote, error)
}

// Book is the shopper's quote list.
type Book struct {
	remote Remote
	log    *zap.Logger

	mu      sync.Mutex
	quotes  []Quote
	summary Summary
	err     error
}

func NewBook(remote Remote, log *zap.Logger) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{remote: remote, log: log, summary: Summarize(nil)}
}

// Refresh reloads the quotes and their summary.
func (b *Book) Refresh(ctx context.Context) error {
	quotes, err := b.remote.ListQuotes(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.err = rpc.Fetch("listQuotes", err, "Unable to load quotes.")
		b.log.Warn("quote load failed", zap.Error(err))
		return b.err
	}
	if quotes == nil {
		quotes = []Quote{}
	}
	b.quotes = quotes
	b.summary = Summarize(quotes)
	b.err = nil
	return nil
}

// Create converts the current cart into a quote and reloads the list.
func (b *Book) Create(ctx context.Context) (*Quote, error) {
	q, err := b.remote.CreateQuote(ctx)
	if err != nil {
		b.log.Warn("quote creation failed", zap.Error(err))
		return nil, rpc.Mutation("createQuote", err, "Unable to create quote.")
	}
	b.log.Info("quote created", zap.String("quote_id", q.ID))
	return q, b.Refresh(ctx)
}

func (b *Book) Quotes() []Quote {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Quote, len(b.quotes))
	copy(out, b.quotes)
	return out
}

func (b *Book) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}

func (b *Book) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
