// Package refine narrows and orders one fetched catalog page according to
// the current query state.
package refine

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/query"
)

const releaseLayout = "2006-01-02"

// Pipeline applies genre filter, rating filter and sort, in that order.
// Collators are not safe for concurrent use, so each Refine call takes one
// from a pool.
type Pipeline struct {
	locale    language.Tag
	collators sync.Pool
}

func New(locale language.Tag) *Pipeline {
	p := &Pipeline{locale: locale}
	p.collators.New = func() any {
		return collate.New(locale)
	}
	return p
}

var defaultPipeline = New(language.Und)

// Default returns the shared pipeline that collates with root-locale rules.
func Default() *Pipeline { return defaultPipeline }

// Refine runs the default root-locale pipeline.
func Refine(page catalog.Page, state query.State) catalog.ResultPage {
	return defaultPipeline.Refine(page, state)
}

func (p *Pipeline) Locale() language.Tag { return p.locale }

// Refine never mutates page.Results. Total pages come from the catalog
// response, capped at catalog.MaxPages; they are not recomputed from the
// filtered count.
func (p *Pipeline) Refine(page catalog.Page, state query.State) catalog.ResultPage {
	totalPages := min(max(page.TotalPages, 0), catalog.MaxPages)
	current := page.Page
	if current < 1 {
		current = state.Page
	}
	out := catalog.ResultPage{
		Items:       []catalog.MovieSummary{},
		CurrentPage: query.ClampPage(current, totalPages),
		TotalPages:  totalPages,
	}
	if len(page.Results) == 0 {
		return out
	}

	items := make([]catalog.MovieSummary, 0, len(page.Results))
	for i := range page.Results {
		item := &page.Results[i]
		if state.GenreID != nil && !item.HasGenre(*state.GenreID) {
			continue
		}
		if state.MinRating != nil && item.VoteAverage < *state.MinRating {
			continue
		}
		items = append(items, *item)
	}

	p.sort(items, state.Sort)
	out.Items = items
	out.Filtered = len(page.Results) - len(items)
	return out
}

func (p *Pipeline) sort(items []catalog.MovieSummary, key query.SortKey) {
	if len(items) < 2 {
		return
	}

	switch key {
	case query.SortRatingDesc:
		slices.SortStableFunc(items, func(a, b catalog.MovieSummary) int {
			return cmp.Compare(b.VoteAverage, a.VoteAverage)
		})
	case query.SortRatingAsc:
		slices.SortStableFunc(items, func(a, b catalog.MovieSummary) int {
			return cmp.Compare(a.VoteAverage, b.VoteAverage)
		})
	case query.SortReleaseDesc:
		slices.SortStableFunc(items, func(a, b catalog.MovieSummary) int {
			return compareRelease(a.ReleaseDate, b.ReleaseDate, true)
		})
	case query.SortReleaseAsc:
		slices.SortStableFunc(items, func(a, b catalog.MovieSummary) int {
			return compareRelease(a.ReleaseDate, b.ReleaseDate, false)
		})
	case query.SortTitleAsc:
		c := p.collators.Get().(*collate.Collator)
		defer p.collators.Put(c)
		slices.SortStableFunc(items, func(a, b catalog.MovieSummary) int {
			return c.CompareString(a.Title, b.Title)
		})
	default:
		// Popularity keeps the catalog's order.
	}
}

// compareRelease orders by release date; undated items go last in either
// direction.
func compareRelease(a, b string, desc bool) int {
	ta, okA := parseRelease(a)
	tb, okB := parseRelease(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	if desc {
		return tb.Compare(ta)
	}
	return ta.Compare(tb)
}

func parseRelease(date string) (time.Time, bool) {
	if date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(releaseLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
