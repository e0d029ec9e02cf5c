package main

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/MikeMC777/enos-storefront/internal/cart"
	"github.com/MikeMC777/enos-storefront/internal/clock"
	"github.com/MikeMC777/enos-storefront/internal/httpx"
	ord "github.com/MikeMC777/enos-storefront/internal/order"
	prod "github.com/MikeMC777/enos-storefront/internal/product"
	"github.com/MikeMC777/enos-storefront/internal/quote"
	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

const (
	defaultLimit = 50
	maxLimit     = 200
	recentLimit  = 10
)

// repos groups the stores the handlers read and write.
type repos struct {
	products prod.Repository
	carts    cart.Repository
	orders   ord.Repository
	quotes   quote.Repository
}

var bindingNames sync.Once

// useJSONNames makes gin's binding errors report json field names.
func useJSONNames() {
	bindingNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
		}
	})
}

// bindBody maps a gin binding failure to an error body.
func bindBody(err error) rpc.Body {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return rpc.Body{Message: "invalid json"}
	}
	out := rpc.Body{FieldErrors: make(map[string][]string, len(verrs))}
	for _, fe := range verrs {
		msg := fe.Field() + " is required"
		if fe.Tag() == "min" {
			msg = fe.Field() + " must be at least " + fe.Param()
		}
		out.FieldErrors[fe.Field()] = append(out.FieldErrors[fe.Field()], msg)
	}
	return out
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ===== catalog =====

// listProductsHandler returns the whole catalog unless limit is given.
func listProductsHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := prod.Query{
			Category:       c.Query("category"),
			TopSellersOnly: c.Query("top_sellers") == "true",
		}
		if v := c.Query("limit"); v != "" {
			q.Limit, q.Offset = pageParams(c)
		}
		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load products")
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Total: len(items), Items: items})
	}
}

func searchProductsHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		term := strings.TrimSpace(c.Query("q"))
		if term == "" {
			httpx.WriteError(c, http.StatusBadRequest, rpc.Body{
				FieldErrors: map[string][]string{"q": {"q is required"}},
			})
			return
		}
		items, err := repo.List(c.Request.Context(), prod.Query{Q: term})
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to search products")
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Q: term, Total: len(items), Items: items})
	}
}

// getProductHandler serves the product detail. A view by a known customer is
// recorded for their recently viewed list.
func getProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p, err := repo.GetByID(ctx, c.Param("id"))
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Fail(c, http.StatusNotFound, "Product not found")
			return
		}
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load product")
			return
		}
		if customer := strings.TrimSpace(c.GetHeader(httpx.CustomerHeader)); customer != "" {
			if err := repo.RecordView(ctx, customer, p.ID); err != nil {
				c.Error(err)
			}
		}
		c.JSON(http.StatusOK, p)
	}
}

func recentlyViewedHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(recentLimit)))
		if limit <= 0 || limit > maxLimit {
			limit = recentLimit
		}
		items, err := repo.RecentlyViewed(c.Request.Context(), httpx.CustomerID(c), limit)
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load recently viewed products")
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Total: len(items), Items: items})
	}
}

// ===== cart =====

func getCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := repo.GetByCustomer(c.Request.Context(), httpx.CustomerID(c))
		if errors.Is(err, cart.ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load cart")
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func cartCountHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := repo.ItemCount(c.Request.Context(), httpx.CustomerID(c))
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load cart count")
			return
		}
		c.JSON(http.StatusOK, cart.CountResponse{Count: n})
	}
}

// addCartItemHandler snapshots the catalog price onto the new line; the
// client never sends one.
func addCartItemHandler(r repos) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, bindBody(err))
			return
		}
		p, err := r.products.GetByID(c.Request.Context(), req.ProductID)
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Fail(c, http.StatusNotFound, "Product not found")
			return
		}
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to add item to cart")
			return
		}
		price, ok := p.Price()
		if !ok {
			httpx.WriteError(c, http.StatusUnprocessableEntity, rpc.Body{
				FieldErrors: map[string][]string{"product_id": {"No price is available for " + p.Name}},
			})
			return
		}
		if err := r.carts.AddItem(c.Request.Context(), httpx.CustomerID(c), p.ID, req.Quantity, price); err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to add item to cart")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func updateCartItemHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cart.UpdateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, bindBody(err))
			return
		}
		ctx, customer, line := c.Request.Context(), httpx.CustomerID(c), c.Param("id")
		var err error
		if *req.Quantity == 0 {
			err = repo.RemoveItem(ctx, customer, line)
		} else {
			err = repo.UpdateQuantity(ctx, customer, line, *req.Quantity)
		}
		writeLineResult(c, err, "Unable to update quantity")
	}
}

func removeCartItemHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := repo.RemoveItem(c.Request.Context(), httpx.CustomerID(c), c.Param("id"))
		writeLineResult(c, err, "Unable to remove item")
	}
}

func writeLineResult(c *gin.Context, err error, fallback string) {
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, cart.ErrLineNotFound):
		httpx.Fail(c, http.StatusNotFound, "Cart item not found")
	default:
		c.Error(err)
		httpx.Fail(c, http.StatusInternalServerError, fallback)
	}
}

// ===== checkout & orders =====

func checkoutHandler(repo ord.Repository, forms *ord.FormValidator, clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ord.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		if req.Shipping.Country == "" {
			req.Shipping.Country = ord.DefaultCountry
		}
		if err := forms.Validate(req); err != nil {
			var fe *ord.FormError
			if errors.As(err, &fe) {
				httpx.WriteError(c, http.StatusBadRequest, rpc.Body{Message: "Please fill in all required fields", FieldErrors: fe.Fields})
				return
			}
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Checkout failed. Please try again.")
			return
		}
		conf, err := repo.PlaceFromCart(c.Request.Context(), httpx.CustomerID(c), req, clk.Now())
		if errors.Is(err, ord.ErrEmptyCart) {
			httpx.Fail(c, http.StatusBadRequest, "Cart is empty")
			return
		}
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Checkout failed. Please try again.")
			return
		}
		c.JSON(http.StatusCreated, conf)
	}
}

func listOrdersHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		items, err := repo.ListByCustomer(c.Request.Context(), httpx.CustomerID(c), limit, offset)
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load orders")
			return
		}
		c.JSON(http.StatusOK, ord.ListResponse{Total: len(items), Items: items})
	}
}

func getOrderHandler(repo ord.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, items, err := repo.GetByID(c.Request.Context(), httpx.CustomerID(c), c.Param("id"))
		if errors.Is(err, ord.ErrNotFound) {
			httpx.Fail(c, http.StatusNotFound, "Order not found")
			return
		}
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load order")
			return
		}
		c.JSON(http.StatusOK, ord.DetailResponse{Order: *o, Items: items})
	}
}

// ===== quotes =====

func listQuotesHandler(repo quote.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.ListByCustomer(c.Request.Context(), httpx.CustomerID(c))
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to load quotes.")
			return
		}
		c.JSON(http.StatusOK, quote.ListResponse{Total: len(items), Items: items})
	}
}

func createQuoteHandler(repo quote.Repository, clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := repo.CreateFromCart(c.Request.Context(), httpx.CustomerID(c), clk.Now())
		if errors.Is(err, quote.ErrEmptyCart) {
			httpx.Fail(c, http.StatusBadRequest, "Cart is empty")
			return
		}
		if err != nil {
			c.Error(err)
			httpx.Fail(c, http.StatusInternalServerError, "Unable to create quote.")
			return
		}
		c.JSON(http.StatusCreated, q)
	}
}

// registerRoutes mounts the storefront API on r.
func registerRoutes(r gin.IRouter, rs repos, clk clock.Clock) {
	useJSONNames()
	forms := ord.NewFormValidator()

	api := r.Group("/api/v1")
	api.GET("/products", listProductsHandler(rs.products))
	api.GET("/products/search", searchProductsHandler(rs.products))
	api.GET("/products/:id", getProductHandler(rs.products))

	shopper := api.Group("", httpx.Customer())
	shopper.GET("/recently-viewed", recentlyViewedHandler(rs.products))
	shopper.GET("/cart", getCartHandler(rs.carts))
	shopper.GET("/cart/count", cartCountHandler(rs.carts))
	shopper.POST("/cart/items", addCartItemHandler(rs))
	shopper.PUT("/cart/items/:id", updateCartItemHandler(rs.carts))
	shopper.DELETE("/cart/items/:id", removeCartItemHandler(rs.carts))

	shopper.POST("/checkout", checkoutHandler(rs.orders, forms, clk))
	shopper.GET("/orders", listOrdersHandler(rs.orders))
	shopper.GET("/orders/:id", getOrderHandler(rs.orders))

	shopper.GET("/quotes", listQuotesHandler(rs.quotes))
	shopper.POST("/quotes", createQuoteHandler(rs.quotes, clk))
}
