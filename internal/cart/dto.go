package cart

// AddItemRequest adds a product to the caller's cart.
// swagger:model AddItemRequest
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required" example:"01t5g000004XyZAAA0"`
	Quantity  int    `json:"quantity" binding:"required,min=1" example:"2"`
}

// UpdateQuantityRequest sets a line quantity; 0 removes the line.
// swagger:model UpdateQuantityRequest
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0" example:"3"`
}

// CountResponse is the mini-cart badge value.
// swagger:model CountResponse
type CountResponse struct {
	Count int `json:"count"`
}
