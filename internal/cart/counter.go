package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/bus"
	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

// CountSource returns the number of items in the shopper's cart.
type CountSource interface {
	CartItemCount(ctx context.Context) (int, error)
}

// Counter is the mini-cart badge. It refetches the count on every cart update
// until closed.
type Counter struct {
	src CountSource
	ctx context.Context
	log *zap.Logger
	sub *bus.Subscription

	mu    sync.Mutex
	count int
	err   error
}

// NewCounter subscribes to updates right away. The first count is loaded by
// Refresh or by the first update received.
func NewCounter(ctx context.Context, src CountSource, updates *bus.Channel[bus.CartUpdateEvent], log *zap.Logger) *Counter {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Counter{src: src, ctx: ctx, log: log}
	c.sub = updates.Subscribe(func(ev bus.CartUpdateEvent) {
		c.log.Debug("cart update received", zap.String("source", ev.SourceTag))
		_ = c.Refresh(c.ctx)
	})
	return c
}

// Refresh reloads the count. On failure the last known count is kept.
func (c *Counter) Refresh(ctx context.Context) error {
	n, err := c.src.CartItemCount(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err = rpc.Fetch("cartItemCount", err, "Unable to load cart count")
		c.log.Warn("cart count failed", zap.Error(err))
		return c.err
	}
	c.count = n
	c.err = nil
	return nil
}

func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Counter) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close stops listening for updates.
func (c *Counter) Close() { c.sub.Unsubscribe() }
