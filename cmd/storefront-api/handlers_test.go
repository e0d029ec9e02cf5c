package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/enos-storefront/internal/cart"
	"github.com/MikeMC777/enos-storefront/internal/clock"
	"github.com/MikeMC777/enos-storefront/internal/httpx"
	ord "github.com/MikeMC777/enos-storefront/internal/order"
	prod "github.com/MikeMC777/enos-storefront/internal/product"
	"github.com/MikeMC777/enos-storefront/internal/quote"
	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

func init() { gin.SetMode(gin.TestMode) }

//
// ---------- STUBS ----------
//

type stubProducts struct {
	items map[string]prod.Product
	// views holds product ids per customer, newest last
	views map[string][]string
}

func (s *stubProducts) List(ctx context.Context, q prod.Query) ([]prod.Product, error) {
	out := []prod.Product{}
	for _, p := range s.items {
		if q.Q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProducts) GetByID(ctx context.Context, id string) (*prod.Product, error) {
	p, ok := s.items[id]
	if !ok {
		return nil, prod.ErrNotFound
	}
	return &p, nil
}

func (s *stubProducts) RecordView(ctx context.Context, customerID, productID string) error {
	seen := s.views[customerID]
	for i, id := range seen {
		if id == productID {
			seen = append(seen[:i], seen[i+1:]...)
			break
		}
	}
	s.views[customerID] = append(seen, productID)
	return nil
}

func (s *stubProducts) RecentlyViewed(ctx context.Context, customerID string, limit int) ([]prod.Product, error) {
	out := []prod.Product{}
	seen := s.views[customerID]
	for i := len(seen) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.items[seen[i]])
	}
	return out, nil
}

// stubCarts keeps one cart per customer in memory.
type stubCarts struct {
	mu    sync.Mutex
	carts map[string]*cart.Cart
}

func newStubCarts() *stubCarts { return &stubCarts{carts: map[string]*cart.Cart{}} }

func (s *stubCarts) GetByCustomer(ctx context.Context, customerID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[customerID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	out := c.Totalled()
	return &out, nil
}

func (s *stubCarts) AddItem(ctx context.Context, customerID, productID string, quantity int, unitPrice decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[customerID]
	if !ok {
		c = &cart.Cart{ID: uuid.NewString()}
		s.carts[customerID] = c
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity += quantity
			return nil
		}
	}
	c.Lines = append(c.Lines, cart.Line{ID: uuid.NewString(), ProductID: productID, Quantity: quantity, UnitPrice: unitPrice})
	return nil
}

func (s *stubCarts) UpdateQuantity(ctx context.Context, customerID, lineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[customerID]; ok {
		for i := range c.Lines {
			if c.Lines[i].ID == lineID {
				c.Lines[i].Quantity = quantity
				return nil
			}
		}
	}
	return cart.ErrLineNotFound
}

func (s *stubCarts) RemoveItem(ctx context.Context, customerID, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[customerID]; ok {
		for i := range c.Lines {
			if c.Lines[i].ID == lineID {
				c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
				return nil
			}
		}
	}
	return cart.ErrLineNotFound
}

func (s *stubCarts) ItemCount(ctx context.Context, customerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[customerID]; ok {
		return c.LocalItemCount(), nil
	}
	return 0, nil
}

// stubOrders places orders from stubCarts.
type stubOrders struct {
	carts  *stubCarts
	orders map[string]ord.Order
}

func (s *stubOrders) PlaceFromCart(ctx context.Context, customerID string, req ord.CheckoutRequest, now time.Time) (*ord.Confirmation, error) {
	s.carts.mu.Lock()
	defer s.carts.mu.Unlock()
	c, ok := s.carts.carts[customerID]
	if !ok || c.Empty() {
		return nil, ord.ErrEmptyCart
	}
	o := ord.Order{
		ID:            uuid.NewString(),
		OrderNumber:   ord.NewOrderNumber(now),
		CustomerID:    customerID,
		Status:        ord.StatusPlaced,
		EffectiveDate: now,
		TotalAmount:   c.LocalSubtotal(),
		Contact:       req.Contact,
		Shipping:      req.Shipping,
	}
	s.orders[o.ID] = o
	c.Lines = nil
	return &ord.Confirmation{OrderID: o.ID, OrderNumber: o.OrderNumber, TotalAmount: o.TotalAmount}, nil
}

func (s *stubOrders) GetByID(ctx context.Context, customerID, id string) (*ord.Order, []ord.Item, error) {
	o, ok := s.orders[id]
	if !ok || o.CustomerID != customerID {
		return nil, nil, ord.ErrNotFound
	}
	return &o, []ord.Item{}, nil
}

func (s *stubOrders) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]ord.Order, error) {
	out := []ord.Order{}
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubQuotes struct {
	carts  *stubCarts
	quotes []quote.Quote
}

func (s *stubQuotes) ListByCustomer(ctx context.Context, customerID string) ([]quote.Quote, error) {
	return s.quotes, nil
}

func (s *stubQuotes) CreateFromCart(ctx context.Context, customerID string, now time.Time) (*quote.Quote, error) {
	c, err := s.carts.GetByCustomer(ctx, customerID)
	if err != nil || c.Empty() {
		return nil, quote.ErrEmptyCart
	}
	q := quote.Quote{ID: uuid.NewString(), Name: quote.NewName(now), Status: quote.StatusDraft, GrandTotal: c.Subtotal, CreatedDate: now}
	s.quotes = append(s.quotes, q)
	return &q, nil
}

//
// ---------- HELPERS ----------
//

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	router *gin.Engine
	carts  *stubCarts
	orders *stubOrders
	quotes *stubQuotes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	price := decimal.RequireFromString("10.00")
	products := &stubProducts{items: map[string]prod.Product{
		"p1": {ID: "p1", Name: "Widget", UnitPrice: &price},
		"p2": {ID: "p2", Name: "Gadget"},
	}, views: map[string][]string{}}
	carts := newStubCarts()
	f := &fixture{
		carts:  carts,
		orders: &stubOrders{carts: carts, orders: map[string]ord.Order{}},
		quotes: &stubQuotes{carts: carts},
	}
	f.router = gin.New()
	registerRoutes(f.router, repos{products: products, carts: carts, orders: f.orders, quotes: f.quotes}, clock.NewMock(testNow))
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpx.CustomerHeader, "cust-1")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) rpc.Body {
	t.Helper()
	var b rpc.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), w.Body.String())
	return b
}

//
// ---------- TESTS ----------
//

func TestProducts_ListAndSearch(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list prod.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	w = f.do(http.MethodGet, "/api/v1/products/search?q=widg", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, "widg", list.Q)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "p1", list.Items[0].ID)

	w = f.do(http.MethodGet, "/api/v1/products/search?q=%20", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"q is required"}, decodeBody(t, w).FieldErrors["q"])
}

func TestProducts_DetailRecordsView(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/products/p2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p prod.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Gadget", p.Name)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/products/p1", "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/products/p2", "").Code)

	w = f.do(http.MethodGet, "/api/v1/products/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decodeBody(t, w).Message)

	// anonymous views are served but not recorded
	anon := httptest.NewRecorder()
	f.router.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/api/v1/products/p1", nil))
	assert.Equal(t, http.StatusOK, anon.Code)

	w = f.do(http.MethodGet, "/api/v1/recently-viewed", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list prod.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "p2", list.Items[0].ID, "newest first")
	assert.Equal(t, "p1", list.Items[1].ID)

	w = f.do(http.MethodGet, "/api/v1/products/search?q=gadg", "")
	require.Equal(t, http.StatusOK, w.Code, "search is not taken for a product id")
}

func TestRecentlyViewed_RequiresCustomer(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/recently-viewed", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCart_RequiresCustomer(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCart_AbsentIsNoContent(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/v1/cart", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCart_AddUpdateRemove(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"p1","quantity":2}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	w = f.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"p1","quantity":1}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	var c cart.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.TotalItems)
	assert.Equal(t, "30.00", c.Subtotal.StringFixed(2))
	lineID := c.Lines[0].ID

	w = f.do(http.MethodPut, "/api/v1/cart/items/"+lineID, `{"quantity":5}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, "/api/v1/cart/count", "")
	assert.JSONEq(t, `{"count":5}`, w.Body.String())

	// zero quantity removes the line
	w = f.do(http.MethodPut, "/api/v1/cart/items/"+lineID, `{"quantity":0}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, "/api/v1/cart/count", "")
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	w = f.do(http.MethodDelete, "/api/v1/cart/items/"+lineID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_AddRejections(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"p1","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w).FieldErrors, "quantity")

	w = f.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"nope","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"p2","quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "No price is available for Gadget", decodeBody(t, w).Text())

	w = f.do(http.MethodPut, "/api/v1/cart/items/L9", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w).FieldErrors, "quantity")
}

func TestCheckout_PlacesOrderAndEmptiesCart(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"p1","quantity":2}`).Code)

	body := `{"contact":{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"},
		"shipping":{"street":"1 Main St","city":"Springfield","postalCode":"62701"}}`
	w := f.do(http.MethodPost, "/api/v1/checkout", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var conf ord.Confirmation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conf))
	assert.Equal(t, "ORD-20260301-120000.000", conf.OrderNumber)
	assert.Equal(t, "20.00", conf.TotalAmount.StringFixed(2))
	assert.Equal(t, ord.DefaultCountry, f.orders.orders[conf.OrderID].Shipping.Country)

	w = f.do(http.MethodGet, "/api/v1/cart/count", "")
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/v1/orders/"+conf.OrderID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail ord.DetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, conf.OrderNumber, detail.Order.OrderNumber)

	w = f.do(http.MethodGet, "/api/v1/orders", "")
	var list ord.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	// the cart is now empty
	w = f.do(http.MethodPost, "/api/v1/checkout", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cart is empty", decodeBody(t, w).Message)
}

func TestCheckout_InvalidForm(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/v1/checkout", `{"contact":{"firstName":"Ada","email":"not-an-email"}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	b := decodeBody(t, w)
	assert.Contains(t, b.FieldErrors, "contact.email")
	assert.Contains(t, b.FieldErrors, "contact.lastName")
	assert.Contains(t, b.FieldErrors, "shipping.city")

	w = f.do(http.MethodPost, "/api/v1/checkout", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders_NotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuotes_CreateKeepsCart(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/quotes", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/v1/cart/items", `{"product_id":"p1","quantity":3}`).Code)
	w = f.do(http.MethodPost, "/api/v1/quotes", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q quote.Quote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "Quote 2026-03-01 12:00", q.Name)
	assert.Equal(t, "30.00", q.GrandTotal.StringFixed(2))

	w = f.do(http.MethodGet, "/api/v1/cart/count", "")
	assert.JSONEq(t, `{"count":3}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/v1/quotes", "")
	var list quote.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}
