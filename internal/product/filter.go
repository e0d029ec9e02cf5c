package product

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultPageSize is the catalog grid size.
const DefaultPageSize = 12

var ErrInvalidPageSize = errors.New("page size must be positive")

// FilterState is what the shopper has selected in the catalog.
type FilterState struct {
	Search         string `json:"search"`
	Category       string `json:"category"`
	TopSellersOnly bool   `json:"top_sellers_only"`
	Page           int    `json:"page"`
	PageSize       int    `json:"page_size"`
}

func (f FilterState) term() string { return strings.ToLower(strings.TrimSpace(f.Search)) }

// Active reports whether any predicate narrows the catalog.
func (f FilterState) Active() bool {
	return f.term() != "" || f.Category != "" || f.TopSellersOnly
}

// Cleared drops every predicate and goes back to the first page.
func (f FilterState) Cleared() FilterState {
	return FilterState{PageSize: f.PageSize}
}

// ApplyFilters returns the products matching every predicate of fs. The input
// slice is never modified.
func ApplyFilters(products []Product, fs FilterState) []Product {
	term := fs.term()
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if fs.Category != "" && !strings.EqualFold(p.Category, fs.Category) {
			continue
		}
		if fs.TopSellersOnly && !p.TopSeller {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Paginate returns the page fs.Page of filtered.
func Paginate(filtered []Product, fs FilterState) []Product {
	if fs.PageSize <= 0 {
		return []Product{}
	}
	// compare before multiplying so a huge page cannot wrap around
	if fs.Page < 0 || fs.Page > len(filtered)/fs.PageSize {
		return []Product{}
	}
	start := fs.Page * fs.PageSize
	if start >= len(filtered) {
		return []Product{}
	}
	end := len(filtered)
	if fs.PageSize < end-start {
		end = start + fs.PageSize
	}
	out := make([]Product, end-start)
	copy(out, filtered[start:end])
	return out
}

// TotalPages is never less than one, so an empty result is "page 1 of 1".
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// View is one rendered page of the catalog.
type View struct {
	Items      []Product   `json:"items"`
	TotalCount int         `json:"total_count"`
	TotalPages int         `json:"total_pages"`
	State      FilterState `json:"state"`
}

func (v View) HasNext() bool     { return v.State.Page < v.TotalPages-1 }
func (v View) HasPrevious() bool { return v.State.Page > 0 }

// PageInfo renders "13-24 of 25".
func (v View) PageInfo() string {
	if v.TotalCount == 0 {
		return "0-0 of 0"
	}
	start := v.State.Page*v.State.PageSize + 1
	end := (v.State.Page + 1) * v.State.PageSize
	if end > v.TotalCount {
		end = v.TotalCount
	}
	return fmt.Sprintf("%d-%d of %d", start, end, v.TotalCount)
}

// Recompute filters and paginates products, clamping fs.Page to the last
// valid page. The clamped state is returned in View.State.
func Recompute(products []Product, fs FilterState) View {
	filtered := ApplyFilters(products, fs)
	pages := TotalPages(len(filtered), fs.PageSize)
	if fs.Page > pages-1 {
		fs.Page = pages - 1
	}
	if fs.Page < 0 {
		fs.Page = 0
	}
	return View{
		Items:      Paginate(filtered, fs),
		TotalCount: len(filtered),
		TotalPages: pages,
		State:      fs,
	}
}

// CategoryOptions lists the distinct categories of products, sorted.
func CategoryOptions(products []Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}
