// Package query holds the user-chosen search/filter/sort/page state and
// keeps it in sync with the URL query string.
package query

import (
	"github.com/handsomefox/cinebrowse/internal/catalog"
)

type SortKey string

const (
	SortPopularityDesc SortKey = "popularity.desc"
	SortRatingDesc     SortKey = "rating.desc"
	SortRatingAsc      SortKey = "rating.asc"
	SortReleaseDesc    SortKey = "release.desc"
	SortReleaseAsc     SortKey = "release.asc"
	SortTitleAsc       SortKey = "title.asc"

	DefaultSort = SortPopularityDesc
)

var SortKeys = []SortKey{
	SortPopularityDesc,
	SortRatingDesc,
	SortRatingAsc,
	SortReleaseDesc,
	SortReleaseAsc,
	SortTitleAsc,
}

func (k SortKey) Valid() bool {
	switch k {
	case SortPopularityDesc, SortRatingDesc, SortRatingAsc,
		SortReleaseDesc, SortReleaseAsc, SortTitleAsc:
		return true
	}
	return false
}

func (k SortKey) String() string { return string(k) }

// Mode selects the URL key for the search text and the page-reset rule
// applied when a filter changes.
type Mode int

const (
	// ModeListing keeps the current page when genre, sort or rating change.
	ModeListing Mode = iota
	// ModeSearch returns to page 1 on any filter change.
	ModeSearch
)

func (m Mode) SearchKey() string {
	if m == ModeSearch {
		return KeyQ
	}
	return KeySearch
}

func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "listing"
}

type State struct {
	SearchText string   `validate:"max=200"`
	GenreID    *int     `validate:"omitempty,gt=0"`
	Sort       SortKey  `validate:"sortkey"`
	MinRating  *float64 `validate:"omitempty,gte=0,lte=10"`
	Page       int      `validate:"gte=1"`
}

func Default() State {
	return State{Sort: DefaultSort, Page: 1}
}

func (s State) HasFilters() bool {
	return s.GenreID != nil || s.MinRating != nil || s.Sort != DefaultSort
}

func (s State) Equal(o State) bool {
	return s.diff(o) == 0
}

func (s State) diff(o State) Field {
	var f Field
	if s.SearchText != o.SearchText {
		f |= FieldSearch
	}
	if !equalPtr(s.GenreID, o.GenreID) {
		f |= FieldGenre
	}
	if s.Sort != o.Sort {
		f |= FieldSort
	}
	if !equalPtr(s.MinRating, o.MinRating) {
		f |= FieldRating
	}
	if s.Page != o.Page {
		f |= FieldPage
	}
	return f
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ClampPage bounds page to [1, min(totalPages, catalog.MaxPages)]. An
// unknown total (<= 0) only applies the catalog ceiling.
func ClampPage(page, totalPages int) int {
	limit := catalog.MaxPages
	if totalPages > 0 && totalPages < limit {
		limit = totalPages
	}
	return min(max(page, 1), limit)
}

func ptr[T any](v T) *T { return &v }
