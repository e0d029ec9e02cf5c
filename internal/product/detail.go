package product

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

var ErrNoProduct = errors.New("no product loaded")

// DetailSource fetches a single product.
type DetailSource interface {
	FetchProduct(ctx context.Context, id string) (*Product, error)
}

// CartAdder is the cart side of the detail page.
type CartAdder interface {
	AddItem(ctx context.Context, productID string, quantity int) error
}

// Detail shows one product and adds it to the cart. The loaded product is
// remembered by the catalog so the cart can resolve its price.
type Detail struct {
	src     DetailSource
	catalog *Catalog
	carts   CartAdder
	log     *zap.Logger

	mu      sync.Mutex
	product *Product
	err     error
}

func NewDetail(src DetailSource, catalog *Catalog, carts CartAdder, log *zap.Logger) *Detail {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detail{src: src, catalog: catalog, carts: carts, log: log}
}

// Load replaces the shown product. On failure nothing is shown.
func (d *Detail) Load(ctx context.Context, id string) (Product, error) {
	p, err := d.src.FetchProduct(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.product = nil
		d.err = rpc.Fetch("fetchProduct", err, "Unable to load product")
		d.log.Warn("product load failed", zap.String("product_id", id), zap.Error(err))
		return Product{}, d.err
	}
	d.product = p
	d.err = nil
	if d.catalog != nil {
		d.catalog.Remember(*p)
	}
	return *p, nil
}

// Product returns the shown product, if any.
func (d *Detail) Product() (Product, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.product == nil {
		return Product{}, false
	}
	return *d.product, true
}

// Err is the error of the last Load.
func (d *Detail) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// AddToCart adds quantity units of the shown product.
func (d *Detail) AddToCart(ctx context.Context, quantity int) error {
	p, ok := d.Product()
	if !ok {
		return ErrNoProduct
	}
	if err := d.carts.AddItem(ctx, p.ID, quantity); err != nil {
		return err
	}
	d.log.Info("added from detail", zap.String("product_id", p.ID), zap.Int("quantity", quantity))
	return nil
}
