package browse

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/debounce"
	"github.com/handsomefox/cinebrowse/internal/mocks"
	"github.com/handsomefox/cinebrowse/internal/query"
)

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock holds scheduled funcs until Advance runs them.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance() {
	c.mu.Lock()
	due := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range due {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

type queryLog struct {
	mu     sync.Mutex
	writes []url.Values
}

func (l *queryLog) set(v url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes = append(l.writes, v)
}

func (l *queryLog) all() []url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]url.Values(nil), l.writes...)
}

type searchCall struct {
	query string
	page  int
}

func searchCatalog(calls *[]searchCall, mu *sync.Mutex) *mocks.Catalog {
	return &mocks.Catalog{
		SearchFunc: func(_ context.Context, q string, page int) (catalog.Page, error) {
			mu.Lock()
			*calls = append(*calls, searchCall{q, page})
			mu.Unlock()
			return catalog.Page{Page: page, TotalPages: 3, Results: []catalog.MovieSummary{
				{ID: 1, Title: "Batman", GenreIDs: []int{28}, VoteAverage: 7.2},
				{ID: 2, Title: "Batman Returns", GenreIDs: []int{14}, VoteAverage: 6.9},
			}}, nil
		},
	}
}

func TestSearchViewTyping(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []searchCall
		clock manualClock
		urls  queryLog
	)
	svc := newService(t, searchCatalog(&calls, &mu))
	v, err := NewSearchView(svc, ViewConfig{SetQuery: urls.set, AfterFunc: clock.AfterFunc}, nil)
	require.NoError(t, err)
	defer v.Close()

	v.Type("B")
	v.Type("Ba")
	v.Type("Bat ")
	assert.Equal(t, debounce.StatusPending, v.Snapshot().Status)
	assert.Empty(t, calls, "nothing is sent while typing")

	clock.Advance()
	assert.Equal(t, []searchCall{{"Bat", 1}}, calls)
	snap := v.Snapshot()
	assert.Equal(t, debounce.StatusIdle, snap.Status)
	assert.Len(t, snap.Results.Items, 2)
	assert.Equal(t, url.Values{"q": {"Bat"}}, urls.all()[0])

	v.Store().SetGenre(28)
	require.Len(t, calls, 2, "filter change refreshes the search")
	assert.Equal(t, searchCall{"Bat", 1}, calls[1])
	assert.Equal(t, []int{1}, ids(v.Snapshot().Results.Items))

	v.Store().NextPage()
	require.Len(t, calls, 3)
	assert.Equal(t, searchCall{"Bat", 2}, calls[2])
}

func TestSearchViewMountsFromURL(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []searchCall
		urls  queryLog
	)
	svc := newService(t, searchCatalog(&calls, &mu))

	var renders []SearchRender
	v, err := NewSearchView(svc, ViewConfig{
		Current:   url.Values{"q": {"Alien"}, "page": {"2"}},
		SetQuery:  urls.set,
		AfterFunc: (&manualClock{}).AfterFunc,
	}, func(r SearchRender) { renders = append(renders, r) })
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, []searchCall{{"Alien", 2}}, calls, "URL text searches at once and keeps its page")
	assert.Empty(t, urls.all(), "loading from the URL does not rewrite it")
	require.NotEmpty(t, renders)
	last := renders[len(renders)-1]
	assert.Equal(t, debounce.StatusIdle, last.Search.Status)
	assert.Equal(t, 2, last.State.Page)

	require.NoError(t, v.Load(url.Values{"q": {"Aliens"}}))
	require.Len(t, calls, 2)
	assert.Equal(t, searchCall{"Aliens", 1}, calls[1])
}

func TestSearchViewFilterBeforeSearch(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []searchCall
	)
	v, err := NewSearchView(newService(t, searchCatalog(&calls, &mu)), ViewConfig{
		AfterFunc: (&manualClock{}).AfterFunc,
	}, nil)
	require.NoError(t, err)
	defer v.Close()

	v.Store().SetSort(query.SortTitleAsc)
	assert.Empty(t, calls)
	assert.False(t, v.Snapshot().HasSearched)
}

func TestSearchViewFilterWhileTyping(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []searchCall
		clock manualClock
	)
	v, err := NewSearchView(newService(t, searchCatalog(&calls, &mu)), ViewConfig{
		AfterFunc: clock.AfterFunc,
	}, nil)
	require.NoError(t, err)
	defer v.Close()

	v.Type("Bat")
	clock.Advance()
	v.Type("Alien")
	v.Store().SetSort(query.SortTitleAsc)
	assert.Len(t, calls, 1, "the pending keystroke is not replaced by a refresh")

	clock.Advance()
	assert.Equal(t, []searchCall{{"Bat", 1}, {"Alien", 1}}, calls)
	snap := v.Snapshot()
	assert.Equal(t, "Alien", snap.Query)
	assert.Equal(t, "Alien", snap.Text)
	assert.Equal(t, debounce.StatusIdle, snap.Status)
	assert.Equal(t, query.SortTitleAsc, v.Store().State().Sort)
}

func TestSearchViewIgnoresStaleTotal(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   []searchCall
		clock   manualClock
		entered = make(chan struct{})
		release = make(chan struct{})
	)
	cat := &mocks.Catalog{
		SearchFunc: func(_ context.Context, q string, page int) (catalog.Page, error) {
			mu.Lock()
			calls = append(calls, searchCall{q, page})
			mu.Unlock()
			total := 50
			if q == "Ba" {
				close(entered)
				<-release
				total = 1
			}
			return catalog.Page{Page: page, TotalPages: total, Results: []catalog.MovieSummary{
				{ID: page, Title: q},
			}}, nil
		},
	}
	v, err := NewSearchView(newService(t, cat), ViewConfig{AfterFunc: clock.AfterFunc}, nil)
	require.NoError(t, err)
	defer v.Close()

	v.Type("Ba")
	done := make(chan struct{})
	go func() {
		defer close(done)
		clock.Advance()
	}()
	<-entered

	v.Type("Bat")
	clock.Advance()
	require.Equal(t, "Bat", v.Snapshot().Query)

	close(release)
	<-done
	assert.Equal(t, "Bat", v.Snapshot().Query, "the slow response is dropped")

	v.Store().NextPage()
	assert.Equal(t, 2, v.Store().State().Page)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, searchCall{"Bat", 2}, calls[len(calls)-1])
}

func TestListingView(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []int
		fail  bool
	)
	cat := &mocks.Catalog{
		PopularFunc: func(_ context.Context, page int) (catalog.Page, error) {
			mu.Lock()
			defer mu.Unlock()
			pages = append(pages, page)
			if fail {
				return catalog.Page{}, errors.New("connection reset")
			}
			return catalog.Page{Page: page, TotalPages: 10, Results: []catalog.MovieSummary{
				{ID: page, GenreIDs: []int{28}},
				{ID: page + 100, GenreIDs: []int{35}},
			}}, nil
		},
	}
	var urls queryLog
	v, err := NewListingView(newService(t, cat), KindPopular, ViewConfig{SetQuery: urls.set}, nil)
	require.NoError(t, err)
	defer v.Close()

	last := v.Last()
	assert.False(t, last.Loading)
	assert.Equal(t, []int{1, 101}, ids(last.Results.Items))
	assert.Equal(t, 10, last.Results.TotalPages)

	v.Store().SetPage(3)
	v.Store().SetGenre(35)
	assert.Equal(t, []int{1, 3, 3}, pages, "genre change keeps the page")
	assert.Equal(t, []int{103}, ids(v.Last().Results.Items))
	assert.Equal(t, url.Values{"genre": {"35"}, "page": {"3"}}, urls.all()[1])

	mu.Lock()
	fail = true
	mu.Unlock()
	v.Store().NextPage()
	last = v.Last()
	assert.Equal(t, MessageListing, last.Message)
	require.Error(t, last.Err)
	assert.Equal(t, []int{103}, ids(last.Results.Items), "earlier results stay")

	mu.Lock()
	fail = false
	mu.Unlock()
	v.Submit("heat")
	assert.Empty(t, v.Last().Message)
	assert.Equal(t, 1, cat.Calls("Search"))
	assert.Equal(t, 1, v.Last().State.Page)
}

func TestListingViewUnknownKind(t *testing.T) {
	v, err := NewListingView(newService(t, &mocks.Catalog{}), ListKind("top"), ViewConfig{}, nil)
	require.NoError(t, err)
	defer v.Close()
	assert.Equal(t, KindPopular, v.Kind())
}
