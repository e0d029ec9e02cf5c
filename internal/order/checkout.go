// Package order covers what happens after the cart: checkout, the order
// history view and the Postgres order store.
package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

// Placer submits a checkout to the storefront service.
type Placer interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*Confirmation, error)
}

// CartSync is the part of the cart service checkout needs.
type CartSync interface {
	Reconcile(ctx context.Context) error
	PublishChange(sourceTag string)
}

const checkoutSource = "checkout"

// Checkout validates the form, places the order, then brings the cart mirror
// back in line with the now empty server cart.
type Checkout struct {
	placer Placer
	cart   CartSync
	forms  *FormValidator
	log    *zap.Logger
}

func NewCheckout(placer Placer, cart CartSync, log *zap.Logger) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checkout{placer: placer, cart: cart, forms: NewFormValidator(), log: log}
}

// Place returns a *FormError before any remote call when the form is
// incomplete. When the order is placed but the cart fetch fails, the
// confirmation is returned together with the fetch error.
func (c *Checkout) Place(ctx context.Context, req CheckoutRequest) (*Confirmation, error) {
	if err := c.forms.Validate(req); err != nil {
		return nil, err
	}
	conf, err := c.placer.Checkout(ctx, req)
	if err != nil {
		c.log.Warn("checkout failed", zap.Error(err))
		return nil, rpc.Mutation("checkout", err, "Checkout failed. Please try again.")
	}
	c.log.Info("order placed", zap.String("order_number", conf.OrderNumber))

	var syncErr error
	if c.cart != nil {
		syncErr = c.cart.Reconcile(ctx)
		c.cart.PublishChange(checkoutSource)
	}
	return conf, syncErr
}
