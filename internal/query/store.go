package query

import (
	"net/url"
	"slices"
	"strings"
	"sync"
)

type Field uint8

const (
	FieldSearch Field = 1 << iota
	FieldGenre
	FieldSort
	FieldRating
	FieldPage
)

type Origin int

const (
	OriginUser Origin = iota
	OriginURL
)

// Change is published to subscribers after every state transition.
type Change struct {
	State    State
	Previous State
	Fields   Field
	Origin   Origin
}

func (c Change) Has(f Field) bool { return c.Fields&f != 0 }

// FiltersChanged reports a genre, sort or rating change.
func (c Change) FiltersChanged() bool {
	return c.Has(FieldGenre | FieldSort | FieldRating)
}

type subscriber struct {
	id int
	fn func(Change)
}

// Store owns the State of one view. The URL is a projection of it: user
// actions rewrite the URL through setQuery, and Load lets the URL win on
// mount or history navigation.
type Store struct {
	// writeMu orders URL writes; mu guards the fields below it.
	writeMu sync.Mutex

	mu         sync.Mutex
	mode       Mode
	state      State
	totalPages int
	setQuery   func(url.Values)
	subs       []subscriber
	nextID     int
}

// NewStore builds a store from the current URL query. setQuery may be nil
// when nothing mirrors the state.
func NewStore(mode Mode, current url.Values, setQuery func(url.Values)) *Store {
	st, _ := Parse(current, mode)
	return &Store{
		mode:     mode,
		state:    st,
		setQuery: setQuery,
	}
}

func (s *Store) Mode() Mode { return s.mode }

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Query() url.Values {
	return Encode(s.State(), s.mode)
}

// Subscribe registers fn for every published Change and returns a func
// that removes it.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

// Load overwrites the state from URL values. The URL is not rewritten.
func (s *Store) Load(values url.Values) error {
	st, err := Parse(values, s.mode)
	s.update(OriginURL, func(cur *State) { *cur = st })
	return err
}

// SetSearchText always returns to page 1.
func (s *Store) SetSearchText(text string) {
	text = strings.TrimSpace(text)
	s.update(OriginUser, func(cur *State) {
		cur.SearchText = text
		cur.Page = 1
	})
}

// SetGenre selects a genre; id <= 0 clears the filter.
func (s *Store) SetGenre(id int) {
	s.update(OriginUser, func(cur *State) {
		if id <= 0 {
			cur.GenreID = nil
		} else {
			cur.GenreID = ptr(id)
		}
		s.filterPageRule(cur)
	})
}

// SetSort falls back to the default order for unknown keys.
func (s *Store) SetSort(key SortKey) {
	if !key.Valid() {
		key = DefaultSort
	}
	s.update(OriginUser, func(cur *State) {
		cur.Sort = key
		s.filterPageRule(cur)
	})
}

// SetMinRating sets the inclusive rating threshold; rating <= 0 clears it.
func (s *Store) SetMinRating(rating float64) {
	s.update(OriginUser, func(cur *State) {
		if rating <= 0 {
			cur.MinRating = nil
		} else {
			cur.MinRating = ptr(min(rating, 10))
		}
		s.filterPageRule(cur)
	})
}

func (s *Store) SetPage(page int) {
	s.update(OriginUser, func(cur *State) { cur.Page = page })
}

func (s *Store) NextPage() {
	s.update(OriginUser, func(cur *State) { cur.Page++ })
}

func (s *Store) PrevPage() {
	s.update(OriginUser, func(cur *State) { cur.Page-- })
}

// SetTotalPages records the total reported by the last response and
// re-clamps the current page against it.
func (s *Store) SetTotalPages(total int) {
	s.mu.Lock()
	s.totalPages = total
	s.mu.Unlock()
	s.update(OriginUser, func(*State) {})
}

// ResetFilters clears genre, rating and sort in one update. Only the search
// text survives, so the URL keeps at most the search key.
func (s *Store) ResetFilters() {
	s.update(OriginUser, func(cur *State) {
		cur.GenreID = nil
		cur.MinRating = nil
		cur.Sort = DefaultSort
		cur.Page = 1
	})
}

// filterPageRule is called with s.mu held.
func (s *Store) filterPageRule(cur *State) {
	if s.mode == ModeSearch {
		cur.Page = 1
	}
}

// update applies mutate and publishes the result. URL writes happen in the
// same order as the state transitions; subscribers run after writeMu is
// released so they may update the store again.
func (s *Store) update(origin Origin, mutate func(*State)) {
	s.writeMu.Lock()
	s.mu.Lock()
	prev := s.state
	next := prev
	mutate(&next)
	next.Page = ClampPage(next.Page, s.totalPages)

	fields := prev.diff(next)
	if fields == 0 {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return
	}
	s.state = next
	values := Encode(next, s.mode)
	subs := slices.Clone(s.subs)
	setQuery := s.setQuery
	s.mu.Unlock()

	if origin == OriginUser && setQuery != nil {
		setQuery(values)
	}
	s.writeMu.Unlock()

	change := Change{State: next, Previous: prev, Fields: fields, Origin: origin}
	for _, sub := range subs {
		sub.fn(change)
	}
}
