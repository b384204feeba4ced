package browse

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/debounce"
	"github.com/handsomefox/cinebrowse/internal/logger"
	"github.com/handsomefox/cinebrowse/internal/query"
)

// ViewConfig wires a view to its surroundings. Current is the query string
// the view mounts with; SetQuery receives every user-driven rewrite.
type ViewConfig struct {
	Current  url.Values
	SetQuery func(url.Values)
	Logger   *slog.Logger

	// Search view only.
	Delay     time.Duration
	AfterFunc debounce.AfterFunc
}

type SearchRender struct {
	State  query.State
	Query  url.Values
	Search debounce.Snapshot
}

// SearchView is the search-as-you-type page: typing goes through the
// debounced trigger, filters and paging re-run the last search, and URL
// loads search immediately.
type SearchView struct {
	svc     *Service
	store   *query.Store
	trigger *debounce.Trigger
	unsub   func()
	render  func(SearchRender)
}

func NewSearchView(svc *Service, cfg ViewConfig, render func(SearchRender)) (*SearchView, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	v := &SearchView{
		svc:    svc,
		store:  query.NewStore(query.ModeSearch, cfg.Current, cfg.SetQuery),
		render: render,
	}
	trigger, err := debounce.NewTrigger(debounce.TriggerConfig{
		Delay:     cfg.Delay,
		Search:    v.search,
		Sink:      v.store,
		OnChange:  v.onSearch,
		Logger:    cfg.Logger,
		AfterFunc: cfg.AfterFunc,
	})
	if err != nil {
		return nil, err
	}
	v.trigger = trigger
	v.unsub = v.store.Subscribe(v.onChange)

	if text := v.store.State().SearchText; text != "" {
		v.trigger.Submit(text)
	}
	return v, nil
}

func (v *SearchView) Store() *query.Store { return v.store }

func (v *SearchView) Snapshot() debounce.Snapshot { return v.trigger.Snapshot() }

// Type feeds the full current contents of the search box.
func (v *SearchView) Type(text string) { v.trigger.Keystroke(text) }

// Load applies a URL change such as back/forward navigation.
func (v *SearchView) Load(values url.Values) error { return v.store.Load(values) }

func (v *SearchView) Close() {
	v.unsub()
	v.trigger.Close()
}

func (v *SearchView) search(ctx context.Context, text string) (catalog.ResultPage, error) {
	st := v.store.State()
	st.SearchText = text
	return v.svc.Search(ctx, st)
}

func (v *SearchView) onChange(c query.Change) {
	switch {
	case c.Has(query.FieldSearch):
		// Typed text reaches the store through the trigger; only URL loads
		// need a search started here.
		if c.Origin == query.OriginURL {
			v.trigger.Submit(c.State.SearchText)
			return
		}
	case c.FiltersChanged() || c.Has(query.FieldPage):
		if v.trigger.Refresh() {
			return
		}
	}
	v.emit(v.trigger.Snapshot())
}

// onSearch only sees responses that survived the trigger's generation check,
// so the reported total is recorded here rather than inside search.
func (v *SearchView) onSearch(snap debounce.Snapshot) {
	if snap.Status == debounce.StatusIdle && snap.HasSearched {
		if cur := v.trigger.Snapshot(); cur.Status == debounce.StatusIdle && cur.Query == snap.Query {
			v.store.SetTotalPages(snap.Results.TotalPages)
		}
		// Clamping the page may have started and rendered a newer search.
		snap = v.trigger.Snapshot()
	}
	v.emit(snap)
}

func (v *SearchView) emit(snap debounce.Snapshot) {
	if v.render == nil {
		return
	}
	v.render(SearchRender{State: v.store.State(), Query: v.store.Query(), Search: snap})
}

type ListingRender struct {
	Kind    ListKind
	State   query.State
	Query   url.Values
	Loading bool
	Results catalog.ResultPage
	Err     error
	Message string
}

// ListingView shows one of the popular, now-playing or upcoming lists. It
// reloads on every state change; filter changes keep the current page.
type ListingView struct {
	svc    *Service
	kind   ListKind
	store  *query.Store
	logger *slog.Logger
	unsub  func()

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	inflight context.CancelFunc
	last     ListingRender
	render   func(ListingRender)
}

func NewListingView(svc *Service, kind ListKind, cfg ViewConfig, render func(ListingRender)) (*ListingView, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if _, ok := ParseListKind(string(kind)); !ok {
		kind = KindPopular
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	v := &ListingView{
		svc:    svc,
		kind:   kind,
		store:  query.NewStore(query.ModeListing, cfg.Current, cfg.SetQuery),
		logger: log,
		base:   base,
		cancel: cancel,
		render: render,
	}
	v.unsub = v.store.Subscribe(func(query.Change) { v.Reload() })
	v.Reload()
	return v, nil
}

func (v *ListingView) Kind() ListKind { return v.kind }

func (v *ListingView) Store() *query.Store { return v.store }

func (v *ListingView) Last() ListingRender {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

// Submit applies the search box contents on form submit.
func (v *ListingView) Submit(text string) { v.store.SetSearchText(text) }

func (v *ListingView) Load(values url.Values) error { return v.store.Load(values) }

// Reload fetches the page for the current state. A reload started later
// supersedes any still in flight.
func (v *ListingView) Reload() {
	ctx, cancel := context.WithCancel(v.base)
	st := v.store.State()

	v.mu.Lock()
	if v.inflight != nil {
		v.inflight()
	}
	v.gen++
	gen := v.gen
	v.inflight = cancel
	v.last.Kind = v.kind
	v.last.State = st
	v.last.Query = v.store.Query()
	v.last.Loading = true
	loading := v.last
	v.mu.Unlock()
	v.emit(loading)

	page, err := v.svc.Listing(ctx, v.kind, st)
	cancel()

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.inflight = nil
	v.last.Loading = false
	if err != nil {
		// Earlier results stay on screen next to the message.
		v.last.Err = err
		v.last.Message = MessageListing
	} else {
		v.last.Err = nil
		v.last.Message = ""
		v.last.Results = page
	}
	done := v.last
	v.mu.Unlock()

	if err != nil {
		v.logger.Warn("listing load failed", slog.String("kind", string(v.kind)), logger.Error(err))
	} else {
		v.store.SetTotalPages(page.TotalPages)
	}
	v.emit(done)
}

func (v *ListingView) Close() {
	v.unsub()
	v.cancel()
}

func (v *ListingView) emit(r ListingRender) {
	if v.render != nil {
		v.render(r)
	}
}
