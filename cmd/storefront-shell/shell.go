package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/bus"
	"github.com/MikeMC777/enos-storefront/internal/cart"
	"github.com/MikeMC777/enos-storefront/internal/clock"
	"github.com/MikeMC777/enos-storefront/internal/config"
	"github.com/MikeMC777/enos-storefront/internal/order"
	"github.com/MikeMC777/enos-storefront/internal/payment"
	"github.com/MikeMC777/enos-storefront/internal/product"
	"github.com/MikeMC777/enos-storefront/internal/quote"
	"github.com/MikeMC777/enos-storefront/internal/remote"
	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

// shell wires the storefront core to one remote client for a single command.
type shell struct {
	ext *remote.Ext
	cfg *config.Config
	log *zap.Logger
	out io.Writer

	bus      *bus.Bus
	catalog  *product.Catalog
	carts    *cart.Service
	checkout *order.Checkout
	history  *order.History
	quotes   *quote.Book
	gateway  *payment.Gateway
	detail   *product.Detail
	recent   *product.Recent

	alerts *bus.Subscription
}

func newShell(ext *remote.Ext, cfg *config.Config, log *zap.Logger, out io.Writer) (*shell, error) {
	b := bus.New(log)
	catalog, err := product.NewCatalog(ext, cfg.Catalog.PageSize,
		product.WithLogger(log.Named("catalog")),
		product.WithSlowCallAlerts(b.PerformanceAlerts, cfg.Catalog.SlowCall),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	carts := cart.NewService(ext, catalog, b.CartUpdates,
		cart.WithLogger(log.Named("cart")),
		cart.WithSourceTag("storefront-shell"),
	)
	sh := &shell{
		ext:      ext,
		cfg:      cfg,
		log:      log,
		out:      out,
		bus:      b,
		catalog:  catalog,
		carts:    carts,
		checkout: order.NewCheckout(ext, carts, log.Named("checkout")),
		history:  order.NewHistory(ext, log.Named("orders")),
		quotes:   quote.NewBook(ext, log.Named("quotes")),
		gateway: payment.NewGateway(payment.GatewayConfig{
			Latency:     cfg.Payment.Latency,
			FailureRate: cfg.Payment.FailureRate,
		}, clock.Real{}, log.Named("payment")),
	}
	sh.detail = product.NewDetail(ext, catalog, carts, log.Named("detail"))
	sh.recent = product.NewRecent(ext, log.Named("recent"))
	sh.alerts = b.PerformanceAlerts.Subscribe(func(a bus.PerformanceAlert) {
		fmt.Fprintf(out, "! slow call %s took %s (budget %s)\n", a.Operation, a.Elapsed, a.Threshold)
	})
	return sh, nil
}

func (s *shell) close() { s.alerts.Unsubscribe() }

func (s *shell) ping(ctx context.Context) error {
	if err := s.ext.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "storefront is serving")
	return nil
}

// browseOptions are the catalog command's filters.
type browseOptions struct {
	term     string
	category string
	top      bool
	advanced bool
	page     int
}

func (s *shell) browse(ctx context.Context, opts browseOptions) error {
	b := product.NewBrowser(ctx, s.catalog, product.BrowserConfig{
		SearchDelay: s.cfg.Catalog.SearchDebounce,
		FilterDelay: s.cfg.Catalog.FilterDebounce,
	}, s.log.Named("browser"))
	defer b.Close()

	b.SetSearch(opts.term)
	b.SetCategory(opts.category)
	b.SetTopSellersOnly(opts.top)
	b.Refresh()
	if opts.advanced {
		b.SetAdvancedSearch(true)
	}
	for i := 1; i < opts.page; i++ {
		b.NextPage()
		b.Refresh()
	}
	if err := b.Err(); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load products"))
	}

	v := b.View()
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range v.Items {
		price := p.DisplayPrice()
		if price == "" {
			price = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, price, p.StockDisplay())
	}
	_ = tw.Flush()
	fmt.Fprintf(s.out, "%s (page %d/%d)\n", v.PageInfo(), v.State.Page+1, max(v.TotalPages, 1))
	if cats := s.catalog.CategoryOptions(); len(cats) > 0 && opts.category == "" {
		fmt.Fprintf(s.out, "categories: %v\n", cats)
	}
	return nil
}

func (s *shell) showCart(ctx context.Context) error {
	if err := s.carts.Reconcile(ctx); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load cart"))
	}
	s.printCart()
	return nil
}

func (s *shell) printCart() {
	c := s.carts.Snapshot()
	if c.Empty() {
		fmt.Fprintln(s.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tQTY\tUNIT\tTOTAL")
	for _, l := range c.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.ID, l.ProductName, l.Quantity,
			product.FormatUSD(l.UnitPrice), product.FormatUSD(l.LineTotal))
	}
	_ = tw.Flush()
	subtotal, items := s.carts.Totals()
	fmt.Fprintf(s.out, "%d item(s), subtotal %s\n", items, product.FormatUSD(subtotal))
}

// mutate runs fn with a counter listening to cart updates, then prints the
// cart and the badge count.
func (s *shell) mutate(ctx context.Context, fn func() error) error {
	counter := cart.NewCounter(ctx, s.ext, s.bus.CartUpdates, s.log.Named("counter"))
	defer counter.Close()

	if err := fn(); err != nil {
		return errors.New(rpc.MessageOf(err, ""))
	}
	s.printCart()
	if err := counter.Err(); err != nil {
		fmt.Fprintln(s.out, "cart count:", rpc.MessageOf(err, ""))
		return nil
	}
	fmt.Fprintf(s.out, "cart count: %d\n", counter.Count())
	return nil
}

func (s *shell) add(ctx context.Context, productID string, qty int) error {
	if _, err := s.catalog.LoadAll(ctx); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load products"))
	}
	return s.mutate(ctx, func() error { return s.carts.AddItem(ctx, productID, qty) })
}

func (s *shell) set(ctx context.Context, lineID string, qty int) error {
	if err := s.carts.Reconcile(ctx); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load cart"))
	}
	return s.mutate(ctx, func() error { return s.carts.UpdateQuantity(ctx, lineID, qty) })
}

func (s *shell) remove(ctx context.Context, lineID string) error {
	if err := s.carts.Reconcile(ctx); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load cart"))
	}
	return s.mutate(ctx, func() error { return s.carts.RemoveItem(ctx, lineID) })
}

// showProduct prints one product and, when addQty is positive, adds it to
// the cart from the detail view.
func (s *shell) showProduct(ctx context.Context, productID string, addQty int) error {
	p, err := s.detail.Load(ctx, productID)
	if err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load product"))
	}
	price := p.DisplayPrice()
	if price == "" {
		price = "price unavailable"
	}
	fmt.Fprintf(s.out, "%s (%s)\n", p.Name, p.ID)
	if p.Description != "" {
		fmt.Fprintln(s.out, p.Description)
	}
	fmt.Fprintf(s.out, "category: %s  price: %s  stock: %s\n", p.Category, price, p.StockDisplay())
	if addQty <= 0 {
		return nil
	}
	return s.mutate(ctx, func() error { return s.detail.AddToCart(ctx, addQty) })
}

func (s *shell) recentlyViewed(ctx context.Context) error {
	if err := s.recent.Refresh(ctx); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load recently viewed products"))
	}
	if s.recent.Empty() {
		fmt.Fprintln(s.out, "no recently viewed products")
		return nil
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE")
	for _, p := range s.recent.Items() {
		price := p.DisplayPrice()
		if price == "" {
			price = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, price)
	}
	return tw.Flush()
}

// placeOrder confirms the card, if one is given, and places the order.
func (s *shell) placeOrder(ctx context.Context, req order.CheckoutRequest, card payment.Form) error {
	if card.CardNumber != "" {
		// billing defaults to the shipping address
		card.BillingStreet = req.Shipping.Street
		card.BillingCity = req.Shipping.City
		card.BillingState = req.Shipping.State
		card.BillingPostalCode = req.Shipping.PostalCode
		card.BillingCountry = req.Shipping.Country
		if card.CardholderName == "" {
			card.CardholderName = req.Contact.FirstName + " " + req.Contact.LastName
		}
		conf, err := s.gateway.Confirm(ctx, card)
		if err != nil {
			return err
		}
		req.PaymentToken = conf.Token
		fmt.Fprintf(s.out, "card %s confirmed\n", payment.MaskCardNumber(card.CardNumber))
	}

	conf, err := s.checkout.Place(ctx, req)
	var fe *order.FormError
	if errors.As(err, &fe) {
		return fmt.Errorf("%w: %s", order.ErrIncompleteForm, fe.Error())
	}
	if conf == nil {
		return errors.New(rpc.MessageOf(err, "Checkout failed. Please try again."))
	}
	fmt.Fprintf(s.out, "order %s placed, total %s\n", conf.OrderNumber, product.FormatUSD(conf.TotalAmount))
	if err != nil {
		fmt.Fprintln(s.out, "cart refresh failed:", rpc.MessageOf(err, ""))
	}
	return nil
}

func (s *shell) orders(ctx context.Context, field order.SortField, dir order.Direction) error {
	if err := s.history.Refresh(ctx); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load orders"))
	}
	if err := s.history.Sort(field, dir); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tDATE\tSTATUS\tTOTAL")
	for _, o := range s.history.Orders() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.OrderNumber, o.EffectiveDate.Format("2006-01-02"), o.Status, product.FormatUSD(o.TotalAmount))
	}
	_ = tw.Flush()
	sum := s.history.Summary()
	fmt.Fprintf(s.out, "%d order(s), total %s, average %s\n", sum.Count, product.FormatUSD(sum.Total), product.FormatUSD(sum.Average))
	return nil
}

func (s *shell) listQuotes(ctx context.Context) error {
	if err := s.quotes.Refresh(ctx); err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to load quotes."))
	}
	s.printQuotes()
	return nil
}

func (s *shell) createQuote(ctx context.Context) error {
	q, err := s.quotes.Create(ctx)
	if err != nil {
		return errors.New(rpc.MessageOf(err, "Unable to create quote."))
	}
	fmt.Fprintf(s.out, "created %q for %s\n", q.Name, product.FormatUSD(q.GrandTotal))
	s.printQuotes()
	return nil
}

func (s *shell) printQuotes() {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUOTE\tSTATUS\tTOTAL\tCREATED")
	for _, q := range s.quotes.Quotes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.Name, q.Status, product.FormatUSD(q.GrandTotal), q.CreatedDate.Format("2006-01-02"))
	}
	_ = tw.Flush()
	sum := s.quotes.Summary()
	fmt.Fprintf(s.out, "%d quote(s), total %s\n", sum.TotalQuotes, product.FormatUSD(sum.TotalValue))
	for _, sc := range sum.ByStatus {
		fmt.Fprintf(s.out, "  %s: %d\n", sc.Status, sc.Count)
	}
}
