package quote

// ListResponse is the quote list returned by the storefront API.
// swagger:model QuoteList
type ListResponse struct {
	Total int     `json:"total"`
	Items []Quote `json:"items"`
}
