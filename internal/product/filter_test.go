package product

import (
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func pricePtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fixtureProducts() []Product {
	return []Product{
		{ID: "p1", Name: "Studio Headphones", Description: "Closed-back monitors", Category: "Audio", TopSeller: true, Stock: intPtr(4), UnitPrice: pricePtr("199.00")},
		{ID: "p2", Name: "Bluetooth Speaker", Description: "Portable HEADPHONE alternative", Category: "audio", Stock: intPtr(0), UnitPrice: pricePtr("59.90")},
		{ID: "p3", Name: "Gaming Laptop", Description: "RTX graphics", Category: "Computing", TopSeller: true, UnitPrice: pricePtr("1899.00")},
		{ID: "p4", Name: "USB Cable", Category: "", Stock: intPtr(100)},
		{ID: "p5", Name: "Smart Bulb", Description: "Wi-Fi colour bulb", Category: "Smart Home"},
	}
}

func catalogOf(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		out[i] = Product{ID: fmt.Sprintf("p%02d", i), Name: fmt.Sprintf("Product %02d", i), Category: "General"}
	}
	return out
}

func ids(ps []Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	products := fixtureProducts()

	tests := []struct {
		name string
		fs   FilterState
		want []string
	}{
		{"no filters", FilterState{}, []string{"p1", "p2", "p3", "p4", "p5"}},
		{"search matches name or description, case folded and trimmed", FilterState{Search: "  headphone "}, []string{"p1", "p2"}},
		{"category exact case-insensitive", FilterState{Category: "AUDIO"}, []string{"p1", "p2"}},
		{"category is not a substring match", FilterState{Category: "Aud"}, []string{}},
		{"top sellers", FilterState{TopSellersOnly: true}, []string{"p1", "p3"}},
		{"predicates combine with AND", FilterState{Search: "headphone", Category: "audio", TopSellersOnly: true}, []string{"p1"}},
		{"missing fields never match a search but never panic", FilterState{Search: "rtx"}, []string{"p3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ApplyFilters(products, tt.fs)))
		})
	}
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	products := fixtureProducts()
	before := ids(products)

	out := ApplyFilters(products, FilterState{Category: "Computing"})
	require.Len(t, out, 1)
	out[0].Name = "changed"

	assert.Equal(t, before, ids(products))
	assert.Equal(t, "Gaming Laptop", products[2].Name)
}

func TestApplyFilters_EmptySearchIsNoOp(t *testing.T) {
	products := fixtureProducts()
	for _, fs := range []FilterState{
		{},
		{Category: "audio"},
		{TopSellersOnly: true},
		{Category: "computing", TopSellersOnly: true},
	} {
		withBlank := fs
		withBlank.Search = "   "
		assert.Equal(t, len(ApplyFilters(products, fs)), len(ApplyFilters(products, withBlank)))
	}
}

func TestPaginate(t *testing.T) {
	all := catalogOf(25)

	assert.Len(t, Paginate(all, FilterState{Page: 0, PageSize: 12}), 12)
	assert.Len(t, Paginate(all, FilterState{Page: 2, PageSize: 12}), 1)
	assert.Empty(t, Paginate(all, FilterState{Page: 3, PageSize: 12}))
	assert.Empty(t, Paginate(all, FilterState{Page: -1, PageSize: 12}))
	assert.Empty(t, Paginate(all, FilterState{Page: 0, PageSize: 0}))
	assert.Equal(t, "p12", Paginate(all, FilterState{Page: 1, PageSize: 12})[0].ID)
}

func TestPaginate_HugePageDoesNotWrap(t *testing.T) {
	all := catalogOf(25)

	// Page*PageSize wraps to exactly zero in int arithmetic
	assert.Empty(t, Paginate(all, FilterState{Page: math.MaxInt/2 + 1, PageSize: 4}))
	assert.Empty(t, Paginate(all, FilterState{Page: math.MaxInt, PageSize: 12}))
	assert.Len(t, Paginate(all, FilterState{Page: 0, PageSize: math.MaxInt}), 25)
}

func TestRecompute_PageInvariants(t *testing.T) {
	for _, n := range []int{0, 1, 11, 12, 13, 25, 48} {
		for _, page := range []int{-3, 0, 1, 2, 5, 100} {
			v := Recompute(catalogOf(n), FilterState{Page: page, PageSize: 12})
			assert.GreaterOrEqual(t, v.TotalPages, 1, "n=%d page=%d", n, page)
			assert.GreaterOrEqual(t, v.State.Page, 0, "n=%d page=%d", n, page)
			assert.Less(t, v.State.Page, v.TotalPages, "n=%d page=%d", n, page)
			assert.Equal(t, n, v.TotalCount)
		}
	}
}

func TestRecompute_ClampsAfterFilterShrinksResults(t *testing.T) {
	all := catalogOf(25)
	for i := 0; i < 5; i++ {
		all[i].TopSeller = true
	}

	v := Recompute(all, FilterState{PageSize: 12})
	assert.Equal(t, 3, v.TotalPages)

	fs := v.State
	fs.Page = 2
	v = Recompute(all, fs)
	assert.Equal(t, 2, v.State.Page)
	assert.Len(t, v.Items, 1)

	fs = v.State
	fs.TopSellersOnly = true
	v = Recompute(all, fs)
	assert.Equal(t, 0, v.State.Page)
	assert.Equal(t, 5, v.TotalCount)
	assert.Equal(t, 1, v.TotalPages)
	assert.Len(t, v.Items, 5)
}

func TestRecompute_EmptyIsPageOneOfOne(t *testing.T) {
	v := Recompute(nil, FilterState{Page: 4, PageSize: 12})
	assert.Equal(t, 1, v.TotalPages)
	assert.Equal(t, 0, v.State.Page)
	assert.Empty(t, v.Items)
	assert.Equal(t, "0-0 of 0", v.PageInfo())
	assert.False(t, v.HasNext())
	assert.False(t, v.HasPrevious())
}

func TestView_PageInfo(t *testing.T) {
	v := Recompute(catalogOf(25), FilterState{Page: 2, PageSize: 12})
	assert.Equal(t, "25-25 of 25", v.PageInfo())
	assert.True(t, v.HasPrevious())
	assert.False(t, v.HasNext())

	v = Recompute(catalogOf(25), FilterState{Page: 1, PageSize: 12})
	assert.Equal(t, "13-24 of 25", v.PageInfo())
	assert.True(t, v.HasNext())
}

func TestCategoryOptions(t *testing.T) {
	assert.Equal(t, []string{"Audio", "Computing", "Smart Home", "audio"}, CategoryOptions(fixtureProducts()))
	assert.Empty(t, CategoryOptions(nil))
}

func TestProduct_Display(t *testing.T) {
	p := fixtureProducts()
	assert.True(t, p[0].InStock())
	assert.Equal(t, "4", p[0].StockDisplay())
	assert.False(t, p[1].InStock())
	assert.Equal(t, "Out of Stock", p[1].StockDisplay())
	assert.Equal(t, "Out of Stock", p[2].StockDisplay(), "unknown stock")

	assert.Equal(t, "$1,899.00", p[2].DisplayPrice())
	assert.Equal(t, "", p[3].DisplayPrice())
	_, ok := p[3].Price()
	assert.False(t, ok)

	assert.Equal(t, "$0.50", FormatUSD(decimal.RequireFromString("0.5")))
	assert.Equal(t, "-$1,234,567.89", FormatUSD(decimal.RequireFromString("-1234567.891")))
}

func TestFilterState_ActiveAndCleared(t *testing.T) {
	assert.False(t, FilterState{Search: "  "}.Active())
	assert.True(t, FilterState{Category: "Audio"}.Active())
	fs := FilterState{Search: "x", Category: "y", TopSellersOnly: true, Page: 3, PageSize: 12}
	assert.Equal(t, FilterState{PageSize: 12}, fs.Cleared())
}
