// Package remote is the storefront's client side of the RPC boundary: every
// remote operation the core consumes, spoken as JSON over HTTP to the
// storefront API, plus a gRPC health check.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/enos-storefront/internal/cart"
	"github.com/MikeMC777/enos-storefront/internal/order"
	"github.com/MikeMC777/enos-storefront/internal/product"
	"github.com/MikeMC777/enos-storefront/internal/quote"
	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

// CustomerHeader carries the caller identity. There is no authentication.
const CustomerHeader = "X-Customer-ID"

const maxErrorBody = 1 << 20

type Ext struct {
	HTTP       *http.Client
	Health     healthpb.HealthClient
	BaseURL    string
	CustomerID string

	conn *grpc.ClientConn
}

// NewExt does not connect; the gRPC channel is established on first use.
func NewExt(healthAddr, baseURL, customerID string, timeout time.Duration) (*Ext, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := grpc.NewClient(healthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("health client: %w", err)
	}
	return &Ext{
		HTTP:       &http.Client{Timeout: timeout},
		Health:     healthpb.NewHealthClient(conn),
		BaseURL:    baseURL,
		CustomerID: customerID,
		conn:       conn,
	}, nil
}

func (e *Ext) Close() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// Ping asks the storefront's gRPC health service whether it is serving.
func (e *Ext) Ping(ctx context.Context) error {
	out, err := e.Health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if out.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("storefront not serving: %s", out.GetStatus())
	}
	return nil
}

func (e *Ext) FetchCatalog(ctx context.Context) ([]product.Product, error) {
	var out product.ListResponse
	if _, err := e.do(ctx, http.MethodGet, "/api/v1/products", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (e *Ext) SearchCatalog(ctx context.Context, term string) ([]product.Product, error) {
	var out product.ListResponse
	if _, err := e.do(ctx, http.MethodGet, "/api/v1/products/search?q="+url.QueryEscape(term), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (e *Ext) FetchProduct(ctx context.Context, id string) (*product.Product, error) {
	var out product.Product
	if _, err := e.do(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Ext) FetchRecentlyViewed(ctx context.Context) ([]product.Product, error) {
	var out product.ListResponse
	if _, err := e.do(ctx, http.MethodGet, "/api/v1/recently-viewed", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// FetchCart returns nil, nil when the caller has no cart.
func (e *Ext) FetchCart(ctx context.Context) (*cart.Cart, error) {
	var out cart.Cart
	status, err := e.do(ctx, http.MethodGet, "/api/v1/cart", nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &out, nil
}

func (e *Ext) AddCartItem(ctx context.Context, productID string, quantity int) error {
	_, err := e.do(ctx, http.MethodPost, "/api/v1/cart/items",
		cart.AddItemRequest{ProductID: productID, Quantity: quantity}, nil)
	return err
}

func (e *Ext) UpdateCartItemQuantity(ctx context.Context, lineID string, quantity int) error {
	_, err := e.do(ctx, http.MethodPut, "/api/v1/cart/items/"+url.PathEscape(lineID),
		cart.UpdateQuantityRequest{Quantity: &quantity}, nil)
	return err
}

func (e *Ext) RemoveCartItem(ctx context.Context, lineID string) error {
	_, err := e.do(ctx, http.MethodDelete, "/api/v1/cart/items/"+url.PathEscape(lineID), nil, nil)
	return err
}

func (e *Ext) CartItemCount(ctx context.Context) (int, error) {
	var out cart.CountResponse
	if _, err := e.do(ctx, http.MethodGet, "/api/v1/cart/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (e *Ext) Checkout(ctx context.Context, req order.CheckoutRequest) (*order.Confirmation, error) {
	var out order.Confirmation
	if _, err := e.do(ctx, http.MethodPost, "/api/v1/checkout", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Ext) ListOrders(ctx context.Context) ([]order.Order, error) {
	var out order.ListResponse
	if _, err := e.do(ctx, http.MethodGet, "/api/v1/orders", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (e *Ext) ListQuotes(ctx context.Context) ([]quote.Quote, error) {
	var out quote.ListResponse
	if _, err := e.do(ctx, http.MethodGet, "/api/v1/quotes", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (e *Ext) CreateQuote(ctx context.Context) (*quote.Quote, error) {
	var out quote.Quote
	if _, err := e.do(ctx, http.MethodPost, "/api/v1/quotes", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends in as JSON and decodes a 2xx answer into out. Any other status
// becomes a *rpc.StatusError carrying the decoded error body, if there is one.
func (e *Ext) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.BaseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.CustomerID != "" {
		req.Header.Set(CustomerHeader, e.CustomerID)
	}

	res, err := e.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		se := &rpc.StatusError{Status: res.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		_ = json.Unmarshal(raw, &se.Body)
		return res.StatusCode, se
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return res.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return res.StatusCode, nil
}
