package product

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/bus"
	"github.com/MikeMC777/enos-storefront/internal/clock"
	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

// Source is the remote catalog service.
type Source interface {
	FetchCatalog(ctx context.Context) ([]Product, error)
	SearchCatalog(ctx context.Context, term string) ([]Product, error)
}

// Catalog keeps the one local copy of the product list and derives filtered
// pages from it without further round-trips.
type Catalog struct {
	src      Source
	pageSize int
	log      *zap.Logger
	clk      clock.Clock
	alerts   *bus.Channel[bus.PerformanceAlert]
	slowCall time.Duration

	mu     sync.RWMutex
	all    []Product
	index  map[string]Product
	loaded bool
	err    error
}

type Option func(*Catalog)

func WithLogger(l *zap.Logger) Option { return func(c *Catalog) { c.log = l } }
func WithClock(clk clock.Clock) Option { return func(c *Catalog) { c.clk = clk } }

// WithSlowCallAlerts publishes a PerformanceAlert on ch for every remote call
// slower than threshold.
func WithSlowCallAlerts(ch *bus.Channel[bus.PerformanceAlert], threshold time.Duration) Option {
	return func(c *Catalog) {
		c.alerts = ch
		c.slowCall = threshold
	}
}

// NewCatalog rejects a non-positive page size.
func NewCatalog(src Source, pageSize int, opts ...Option) (*Catalog, error) {
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}
	c := &Catalog{
		src:      src,
		pageSize: pageSize,
		log:      zap.NewNop(),
		clk:      clock.Real{},
		index:    make(map[string]Product),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Catalog) PageSize() int { return c.pageSize }

// LoadAll fetches the whole catalog and replaces the local copy. On failure the
// local copy is emptied so every view is the well-defined empty state.
func (c *Catalog) LoadAll(ctx context.Context) ([]Product, error) {
	start := c.clk.Now()
	items, err := c.src.FetchCatalog(ctx)
	c.observe("fetchCatalog", start)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.all = nil
		c.index = make(map[string]Product)
		c.loaded = false
		c.err = rpc.Fetch("fetchCatalog", err, "Unable to load products")
		c.log.Warn("catalog load failed", zap.Error(err))
		return nil, c.err
	}
	c.all = cloneProducts(items)
	c.index = make(map[string]Product, len(items))
	for _, p := range items {
		c.index[p.ID] = p
	}
	c.loaded = true
	c.err = nil
	c.log.Info("catalog loaded", zap.Int("products", len(items)))
	return cloneProducts(items), nil
}

// Search runs the remote search for fs.Search and applies the category and
// top-seller predicates locally. An empty term is a local recompute.
func (c *Catalog) Search(ctx context.Context, fs FilterState) (View, error) {
	fs.PageSize = c.pageSize
	term := strings.TrimSpace(fs.Search)
	if term == "" {
		return c.Recompute(fs), nil
	}

	start := c.clk.Now()
	items, err := c.src.SearchCatalog(ctx, term)
	c.observe("searchCatalog", start)
	if err != nil {
		c.log.Warn("catalog search failed", zap.String("term", term), zap.Error(err))
		fs.Page = 0
		return Recompute(nil, fs), rpc.Fetch("searchCatalog", err, "Advanced search failed")
	}

	c.mu.Lock()
	for _, p := range items {
		c.index[p.ID] = p
	}
	c.mu.Unlock()

	local := fs
	local.Search = ""
	v := Recompute(items, local)
	v.State.Search = fs.Search
	return v, nil
}

// Recompute derives the page for fs from the local copy.
func (c *Catalog) Recompute(fs FilterState) View {
	fs.PageSize = c.pageSize
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Recompute(c.all, fs)
}

// Products returns a copy of the local catalog.
func (c *Catalog) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneProducts(c.all)
}

func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err is the error of the last LoadAll, if it failed.
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Lookup finds a product seen by the last load or any search since.
func (c *Catalog) Lookup(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.index[id]
	return p, ok
}

// Remember makes p known to Lookup and PriceOf without adding it to the
// browsable list. A later LoadAll replaces it.
func (c *Catalog) Remember(p Product) {
	c.mu.Lock()
	c.index[p.ID] = p
	c.mu.Unlock()
}

// PriceOf resolves the price snapshot used when adding id to the cart.
func (c *Catalog) PriceOf(id string) (decimal.Decimal, bool) {
	p, ok := c.Lookup(id)
	if !ok {
		return decimal.Zero, false
	}
	return p.Price()
}

func (c *Catalog) CategoryOptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CategoryOptions(c.all)
}

func (c *Catalog) observe(op string, start time.Time) {
	elapsed := c.clk.Now().Sub(start)
	if c.alerts == nil || c.slowCall <= 0 || elapsed <= c.slowCall {
		return
	}
	c.log.Warn("slow remote call", zap.String("op", op), zap.Duration("elapsed", elapsed))
	c.alerts.Publish(bus.PerformanceAlert{
		Operation: op,
		Elapsed:   elapsed,
		Threshold: c.slowCall,
		Timestamp: clock.Stamp(c.clk),
	})
}

func cloneProducts(in []Product) []Product {
	if in == nil {
		return nil
	}
	out := make([]Product, len(in))
	copy(out, in)
	return out
}
