package product

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/bus"
	"github.com/MikeMC777/enos-storefront/internal/debounce"
)

const (
	DefaultSearchDelay = 300 * time.Millisecond
	DefaultFilterDelay = 200 * time.Millisecond
)

// Update is what Browser observers receive after every refresh.
type Update struct {
	View View
	Err  error
}

type BrowserConfig struct {
	SearchDelay time.Duration
	FilterDelay time.Duration
}

// Browser owns the shopper's FilterState. Keystrokes go through one debounce
// scheduler, filter toggles and paging through another.
type Browser struct {
	catalog *Catalog
	cfg     BrowserConfig
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	search  *debounce.Scheduler
	filters *debounce.Scheduler
	updates *bus.Channel[Update]

	mu       sync.Mutex
	state    FilterState
	advanced bool
	view     View
	err      error
	seq      uint64
	applied  uint64
}

// NewBrowser binds a browser to catalog for the lifetime of ctx.
func NewBrowser(ctx context.Context, catalog *Catalog, cfg BrowserConfig, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SearchDelay <= 0 {
		cfg.SearchDelay = DefaultSearchDelay
	}
	if cfg.FilterDelay <= 0 {
		cfg.FilterDelay = DefaultFilterDelay
	}
	ctx, cancel := context.WithCancel(ctx)
	fs := FilterState{PageSize: catalog.PageSize()}
	return &Browser{
		catalog: catalog,
		cfg:     cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		search:  debounce.New("catalog-search", log),
		filters: debounce.New("catalog-filters", log),
		updates: bus.NewChannel[Update]("catalog-view", log),
		state:   fs,
		view:    Recompute(nil, fs),
	}
}

// Subscribe registers fn for every refreshed view.
func (b *Browser) Subscribe(fn func(Update)) *bus.Subscription {
	return b.updates.Subscribe(fn)
}

func (b *Browser) SetSearch(term string) {
	b.mutate(func(fs *FilterState) { fs.Search = term; fs.Page = 0 })
	b.search.Schedule(b.Refresh, b.cfg.SearchDelay)
}

func (b *Browser) SetCategory(category string) {
	b.mutate(func(fs *FilterState) { fs.Category = category; fs.Page = 0 })
	b.filters.Schedule(b.Refresh, b.cfg.FilterDelay)
}

func (b *Browser) SetTopSellersOnly(on bool) {
	b.mutate(func(fs *FilterState) { fs.TopSellersOnly = on; fs.Page = 0 })
	b.filters.Schedule(b.Refresh, b.cfg.FilterDelay)
}

// NextPage is ignored on the last page.
func (b *Browser) NextPage() {
	b.mu.Lock()
	if !b.view.HasNext() {
		b.mu.Unlock()
		return
	}
	b.state.Page++
	b.mu.Unlock()
	b.filters.Schedule(b.Refresh, b.cfg.FilterDelay)
}

// PreviousPage is ignored on the first page.
func (b *Browser) PreviousPage() {
	b.mu.Lock()
	if b.state.Page <= 0 {
		b.mu.Unlock()
		return
	}
	b.state.Page--
	b.mu.Unlock()
	b.filters.Schedule(b.Refresh, b.cfg.FilterDelay)
}

// SetAdvancedSearch switches between local filtering and remote search and
// refreshes immediately.
func (b *Browser) SetAdvancedSearch(on bool) {
	b.mu.Lock()
	b.advanced = on
	b.state.Page = 0
	b.mu.Unlock()
	b.filters.RunNow(b.Refresh)
}

// ShowAll clears every filter and refreshes immediately, dropping pending input.
func (b *Browser) ShowAll() {
	b.mutate(func(fs *FilterState) { *fs = fs.Cleared() })
	b.search.CancelPending()
	b.filters.RunNow(b.Refresh)
}

// Refresh recomputes the view from the current state. It is the action every
// debounced input ends in.
func (b *Browser) Refresh() {
	b.mu.Lock()
	fs := b.state
	advanced := b.advanced
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	var (
		v   View
		err error
	)
	switch {
	case advanced && strings.TrimSpace(fs.Search) != "":
		v, err = b.catalog.Search(b.ctx, fs)
	case !b.catalog.Loaded():
		// a failed load leaves the empty view
		_, err = b.catalog.LoadAll(b.ctx)
		v = b.catalog.Recompute(fs)
	default:
		v = b.catalog.Recompute(fs)
	}

	b.mu.Lock()
	if seq < b.applied {
		b.mu.Unlock()
		return
	}
	b.applied = seq
	b.view = v
	b.err = err
	if b.state == fs {
		b.state.Page = v.State.Page
	}
	b.mu.Unlock()

	b.updates.Publish(Update{View: v, Err: err})
}

func (b *Browser) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

func (b *Browser) State() FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err is the error of the last refresh.
func (b *Browser) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Close drops pending input and cancels in-flight refreshes.
func (b *Browser) Close() {
	b.search.CancelPending()
	b.filters.CancelPending()
	b.cancel()
}

func (b *Browser) mutate(fn func(*FilterState)) {
	b.mu.Lock()
	fn(&b.state)
	b.mu.Unlock()
}
