package product

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

// RecentSource lists the caller's recently viewed products, newest first.
type RecentSource interface {
	FetchRecentlyViewed(ctx context.Context) ([]Product, error)
}

// Recent holds the shopper's recently viewed products.
type Recent struct {
	src RecentSource
	log *zap.Logger

	mu      sync.Mutex
	items   []Product
	loading bool
	err     error
}

func NewRecent(src RecentSource, log *zap.Logger) *Recent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recent{src: src, log: log}
}

// Refresh reloads the list. A failure empties it and keeps the error.
func (r *Recent) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	items, err := r.src.FetchRecentlyViewed(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	if err != nil {
		r.items = nil
		r.err = rpc.Fetch("fetchRecentlyViewed", err, "Unable to load recently viewed products")
		r.log.Warn("recently viewed load failed", zap.Error(err))
		return r.err
	}
	r.items = cloneProducts(items)
	r.err = nil
	return nil
}

func (r *Recent) Items() []Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneProducts(r.items)
}

func (r *Recent) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items) == 0
}

func (r *Recent) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

func (r *Recent) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
