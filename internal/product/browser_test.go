package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBrowser(t *testing.T, src *fakeSource) (*Browser, chan Update) {
	t.Helper()
	c, err := NewCatalog(src, 12)
	require.NoError(t, err)
	b := NewBrowser(context.Background(), c, BrowserConfig{
		SearchDelay: 30 * time.Millisecond,
		FilterDelay: 20 * time.Millisecond,
	}, nil)
	t.Cleanup(b.Close)

	updates := make(chan Update, 16)
	sub := b.Subscribe(func(u Update) { updates <- u })
	t.Cleanup(sub.Unsubscribe)
	return b, updates
}

func next(t *testing.T, ch chan Update) Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("no view update")
		return Update{}
	}
}

func TestBrowser_FirstRefreshLoadsCatalog(t *testing.T) {
	src := &fakeSource{products: catalogOf(25)}
	b, updates := newTestBrowser(t, src)

	b.Refresh()
	u := next(t, updates)
	require.NoError(t, u.Err)
	assert.Equal(t, 25, u.View.TotalCount)
	assert.Equal(t, 3, u.View.TotalPages)
	assert.Equal(t, 1, src.fetchCount())

	b.Refresh()
	next(t, updates)
	assert.Equal(t, 1, src.fetchCount(), "later refreshes stay local")
}

func TestBrowser_SearchKeystrokesAreCoalesced(t *testing.T) {
	src := &fakeSource{products: fixtureProducts()}
	b, updates := newTestBrowser(t, src)

	for _, term := range []string{"h", "he", "head"} {
		b.SetSearch(term)
	}
	u := next(t, updates)
	assert.Equal(t, []string{"p1", "p2"}, ids(u.View.Items))

	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra refresh: %+v", extra)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestBrowser_FilterChangeClampsPage(t *testing.T) {
	all := catalogOf(25)
	for i := 0; i < 5; i++ {
		all[i].TopSeller = true
	}
	src := &fakeSource{products: all}
	b, updates := newTestBrowser(t, src)
	b.Refresh()
	next(t, updates)

	b.NextPage()
	next(t, updates)
	b.NextPage()
	u := next(t, updates)
	assert.Equal(t, 2, u.View.State.Page)

	b.NextPage() // already on the last page
	assert.Equal(t, 2, b.State().Page)

	b.SetTopSellersOnly(true)
	u = next(t, updates)
	assert.Equal(t, 0, u.View.State.Page)
	assert.Equal(t, 5, u.View.TotalCount)
	assert.Equal(t, 0, b.State().Page)

	b.PreviousPage() // already on the first page
	assert.Equal(t, 0, b.State().Page)
}

func TestBrowser_ShowAllRunsImmediately(t *testing.T) {
	src := &fakeSource{products: fixtureProducts()}
	b, updates := newTestBrowser(t, src)

	b.SetCategory("Audio")
	b.SetSearch("laptop")
	b.ShowAll()

	u := next(t, updates)
	assert.Equal(t, 5, u.View.TotalCount)
	assert.Equal(t, FilterState{PageSize: 12}, b.State())

	select {
	case extra := <-updates:
		t.Fatalf("pending input should have been dropped: %+v", extra)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestBrowser_AdvancedSearchUsesRemote(t *testing.T) {
	src := &fakeSource{products: fixtureProducts()}
	b, updates := newTestBrowser(t, src)

	b.SetAdvancedSearch(true)
	next(t, updates)

	b.SetSearch("laptop")
	u := next(t, updates)
	assert.Equal(t, []string{"p3"}, ids(u.View.Items))
	assert.Equal(t, []string{"laptop"}, src.searches)
}

func TestBrowser_LoadFailureSurfacesErrorAndEmptyView(t *testing.T) {
	src := &fakeSource{fetchErr: errors.New("service unavailable")}
	b, updates := newTestBrowser(t, src)

	b.Refresh()
	u := next(t, updates)
	require.Error(t, u.Err)
	assert.Equal(t, 0, u.View.TotalCount)
	assert.Equal(t, 1, u.View.TotalPages)
	assert.Equal(t, u.Err, b.Err())

	src.fetchErr = nil
	src.products = catalogOf(2)
	b.Refresh()
	u = next(t, updates)
	require.NoError(t, u.Err)
	assert.Equal(t, 2, b.View().TotalCount)
}

func TestBrowser_AdvancedFiltersWithoutTermKeepLoadFailure(t *testing.T) {
	src := &fakeSource{fetchErr: errors.New("boom")}
	b, updates := newTestBrowser(t, src)

	b.SetAdvancedSearch(true)
	u := next(t, updates)
	require.Error(t, u.Err)
	assert.Equal(t, 1, src.fetchCount())

	b.SetCategory("Audio")
	u = next(t, updates)
	require.Error(t, u.Err, "a category-only filter must not hide the failed load")
	assert.Equal(t, 2, src.fetchCount(), "an unloaded catalog is fetched again")
	assert.Empty(t, src.searches)

	src.mu.Lock()
	src.fetchErr = nil
	src.products = fixtureProducts()
	src.mu.Unlock()
	b.SetTopSellersOnly(false)
	u = next(t, updates)
	require.NoError(t, u.Err)
	assert.NoError(t, b.Err())
}
