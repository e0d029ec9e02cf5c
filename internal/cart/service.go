// Package cart keeps the shopper's local mirror of the server cart and runs
// every mutation through the optimistic-update-then-reconcile protocol.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/bus"
	"github.com/MikeMC777/enos-storefront/internal/clock"
	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrPricingUnavailable = errors.New("price unavailable")
	ErrUnknownLine        = errors.New("unknown cart line")
)

// Remote is the authoritative cart service. FetchCart returns nil, nil when
// the shopper has no cart.
type Remote interface {
	FetchCart(ctx context.Context) (*Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) error
	UpdateCartItemQuantity(ctx context.Context, lineID string, quantity int) error
	RemoveCartItem(ctx context.Context, lineID string) error
}

// PriceResolver returns the price snapshot for a product, if one is known.
type PriceResolver interface {
	PriceOf(productID string) (decimal.Decimal, bool)
}

const DefaultSourceTag = "cart-service"

// Service is the only writer of the cart mirror.
type Service struct {
	remote  Remote
	prices  PriceResolver
	updates *bus.Channel[bus.CartUpdateEvent]
	log     *zap.Logger
	clk     clock.Clock
	source  string

	serialize bool
	mutation  sync.Mutex

	mu        sync.Mutex
	mirror    Cart
	confirmed bool
	gen       uint64
	inflight  int
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }
func WithClock(c clock.Clock) Option { return func(s *Service) { s.clk = c } }
func WithSourceTag(tag string) Option { return func(s *Service) { s.source = tag } }

// WithSerializedMutations lets one mutation run at a time; later calls wait.
// Without it mutations may overlap and the last reconcile to finish wins.
func WithSerializedMutations() Option { return func(s *Service) { s.serialize = true } }

// NewService publishes cart changes on updates, which may be nil.
func NewService(remote Remote, prices PriceResolver, updates *bus.Channel[bus.CartUpdateEvent], opts ...Option) *Service {
	s := &Service{
		remote:  remote,
		prices:  prices,
		updates: updates,
		log:     zap.NewNop(),
		clk:     clock.Real{},
		source:  DefaultSourceTag,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddItem adds quantity units of productID. Nothing is inserted locally before
// the server confirms.
func (s *Service) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if s.prices == nil {
		return fmt.Errorf("%w: %s", ErrPricingUnavailable, productID)
	}
	if _, ok := s.prices.PriceOf(productID); !ok {
		return fmt.Errorf("%w: %s", ErrPricingUnavailable, productID)
	}

	return s.mutate(ctx, "addCartItem", func() error {
		if err := s.remote.AddCartItem(ctx, productID, quantity); err != nil {
			s.log.Warn("add to cart failed", zap.String("product_id", productID), zap.Error(err))
			return rpc.Mutation("addCartItem", err, "Unable to add item to cart")
		}
		return nil
	})
}

// UpdateQuantity sets the quantity of a line. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, lineID)
	}

	return s.mutate(ctx, "updateCartItemQuantity", func() error {
		u := s.apply(func(c Cart) Cart { return c.withQuantity(lineID, quantity) })
		if err := s.remote.UpdateCartItemQuantity(ctx, lineID, quantity); err != nil {
			s.rollback(u)
			s.log.Warn("quantity update failed", zap.String("line_id", lineID), zap.Error(err))
			return rpc.Mutation("updateCartItemQuantity", err, "Unable to update quantity")
		}
		return nil
	})
}

// RemoveItem removes a line known to the local mirror.
func (s *Service) RemoveItem(ctx context.Context, lineID string) error {
	return s.mutate(ctx, "removeCartItem", func() error {
		s.mu.Lock()
		_, ok := s.mirror.Line(lineID)
		s.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownLine, lineID)
		}

		u := s.apply(func(c Cart) Cart { return c.without(lineID) })
		if err := s.remote.RemoveCartItem(ctx, lineID); err != nil {
			s.rollback(u)
			s.log.Warn("remove from cart failed", zap.String("line_id", lineID), zap.Error(err))
			return rpc.Mutation("removeCartItem", err, "Unable to remove item")
		}
		return nil
	})
}

// Reconcile replaces the mirror with the server cart. An absent cart becomes
// the empty cart. On failure the mirror is left as it was.
func (s *Service) Reconcile(ctx context.Context) error {
	remote, err := s.remote.FetchCart(ctx)
	if err != nil {
		s.log.Warn("cart fetch failed", zap.Error(err))
		return rpc.Fetch("fetchCart", err, "Unable to load cart")
	}
	next := Cart{}
	if remote != nil {
		next = remote.clone()
	}

	s.mu.Lock()
	s.mirror = next
	s.confirmed = true
	s.gen++
	s.mu.Unlock()
	s.log.Debug("cart reconciled", zap.String("cart_id", next.ID), zap.Int("lines", len(next.Lines)))
	return nil
}

// PublishChange tells every subscriber that the cart changed.
func (s *Service) PublishChange(sourceTag string) {
	if s.updates == nil {
		return
	}
	s.updates.Publish(bus.NewCartUpdate(sourceTag, s.clk))
}

// Snapshot returns a copy of the mirror.
func (s *Service) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.clone()
}

// Totals prefers the server values once the mirror is confirmed and no
// mutation is in flight; otherwise it returns the local aggregates.
func (s *Service) Totals() (decimal.Decimal, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed && s.inflight == 0 {
		return s.mirror.Subtotal, s.mirror.TotalItems
	}
	return s.mirror.LocalSubtotal(), s.mirror.LocalItemCount()
}

// Confirmed reports whether the mirror matches the last server fetch.
func (s *Service) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// mutate runs change and, if it succeeded, the follow-up reconcile while the
// mutation counts as in flight. The change is published once the mutation is
// no longer in flight, so subscribers may start another one. It is published
// even when the follow-up fetch fails; that fetch error is returned.
func (s *Service) mutate(ctx context.Context, op string, change func() error) error {
	changed, err := s.guarded(ctx, change)
	if !changed {
		return err
	}
	s.PublishChange(s.source)
	s.log.Info("cart mutated", zap.String("op", op), zap.Bool("reconciled", err == nil))
	return err
}

func (s *Service) guarded(ctx context.Context, change func() error) (bool, error) {
	done := s.begin()
	defer done()
	if err := change(); err != nil {
		return false, err
	}
	return true, s.Reconcile(ctx)
}

func (s *Service) begin() func() {
	if s.serialize {
		s.mutation.Lock()
	}
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
		if s.serialize {
			s.mutation.Unlock()
		}
	}
}

type undo struct {
	prev      Cart
	confirmed bool
	gen       uint64
}

// apply changes the mirror locally and records how to undo it.
func (s *Service) apply(fn func(Cart) Cart) undo {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := undo{prev: s.mirror, confirmed: s.confirmed}
	s.mirror = fn(s.mirror)
	s.confirmed = false
	s.gen++
	u.gen = s.gen
	return u
}

// rollback restores the mirror unless something replaced it since the change.
func (s *Service) rollback(u undo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != u.gen {
		return
	}
	s.mirror = u.prev
	s.confirmed = u.confirmed
	s.gen++
}
