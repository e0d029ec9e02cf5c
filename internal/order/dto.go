package order

// DefaultCountry pre-fills the shipping form.
const DefaultCountry = "United States"

// Contact of the shopper placing the order.
// swagger:model Contact
type Contact struct {
	FirstName string `json:"firstName" validate:"notblank" example:"Ada"`
	LastName  string `json:"lastName" validate:"notblank" example:"Lovelace"`
	Email     string `json:"email" validate:"required,email" example:"ada@example.com"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Shipping address of the order.
// swagger:model Shipping
type Shipping struct {
	Street     string `json:"street" validate:"notblank" example:"1 Main St"`
	City       string `json:"city" validate:"notblank" example:"Springfield"`
	State      string `json:"state,omitempty" example:"IL"`
	PostalCode string `json:"postalCode" validate:"notblank" example:"62701"`
	Country    string `json:"country,omitempty" example:"United States"`
}

// CheckoutRequest turns the shopper's cart into an order.
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	Contact      Contact  `json:"contact"`
	Shipping     Shipping `json:"shipping"`
	PaymentToken string   `json:"paymentToken,omitempty" example:"tok_m1x2y3_4f9a1c2b7"`
}

// NewCheckoutRequest returns the empty form with its defaults.
func NewCheckoutRequest() CheckoutRequest {
	return CheckoutRequest{Shipping: Shipping{Country: DefaultCountry}}
}

// ListResponse is the order history returned by the storefront API.
// swagger:model OrderList
type ListResponse struct {
	Total int     `json:"total"`
	Items []Order `json:"items"`
}

// DetailResponse is one order with its items.
// swagger:model OrderDetail
type DetailResponse struct {
	Order Order  `json:"order"`
	Items []Item `json:"items"`
}
