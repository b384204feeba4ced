// Package mocks holds hand-written test doubles shared across packages.
package mocks

import (
	"context"
	"sync"

	"github.com/handsomefox/cinebrowse/internal/catalog"
)

// Catalog implements catalog.Catalog with one overridable func per method.
// Unset funcs return zero values. Calls are recorded by method name.
type Catalog struct {
	PopularFunc      func(ctx context.Context, page int) (catalog.Page, error)
	NowPlayingFunc   func(ctx context.Context, page int) (catalog.Page, error)
	UpcomingFunc     func(ctx context.Context, page int) (catalog.Page, error)
	ByGenreFunc      func(ctx context.Context, genreID, page int) (catalog.Page, error)
	SearchFunc       func(ctx context.Context, query string, page int) (catalog.Page, error)
	GenresFunc       func(ctx context.Context) (catalog.GenreCatalog, error)
	MovieFunc        func(ctx context.Context, id int) (catalog.MovieSummary, error)
	CreditsFunc      func(ctx context.Context, movieID int) ([]catalog.CastMember, error)
	ActorFunc        func(ctx context.Context, id int) (catalog.Actor, error)
	ActorCreditsFunc func(ctx context.Context, actorID int) ([]catalog.MovieSummary, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ catalog.Catalog = (*Catalog)(nil)

func (m *Catalog) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

// Calls reports how many times method was invoked.
func (m *Catalog) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Catalog) Popular(ctx context.Context, page int) (catalog.Page, error) {
	m.record("Popular")
	if m.PopularFunc != nil {
		return m.PopularFunc(ctx, page)
	}
	return catalog.Page{}, nil
}

func (m *Catalog) NowPlaying(ctx context.Context, page int) (catalog.Page, error) {
	m.record("NowPlaying")
	if m.NowPlayingFunc != nil {
		return m.NowPlayingFunc(ctx, page)
	}
	return catalog.Page{}, nil
}

func (m *Catalog) Upcoming(ctx context.Context, page int) (catalog.Page, error) {
	m.record("Upcoming")
	if m.UpcomingFunc != nil {
		return m.UpcomingFunc(ctx, page)
	}
	return catalog.Page{}, nil
}

func (m *Catalog) ByGenre(ctx context.Context, genreID, page int) (catalog.Page, error) {
	m.record("ByGenre")
	if m.ByGenreFunc != nil {
		return m.ByGenreFunc(ctx, genreID, page)
	}
	return catalog.Page{}, nil
}

func (m *Catalog) Search(ctx context.Context, query string, page int) (catalog.Page, error) {
	m.record("Search")
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, page)
	}
	return catalog.Page{}, nil
}

func (m *Catalog) Genres(ctx context.Context) (catalog.GenreCatalog, error) {
	m.record("Genres")
	if m.GenresFunc != nil {
		return m.GenresFunc(ctx)
	}
	return catalog.GenreCatalog{}, nil
}

func (m *Catalog) Movie(ctx context.Context, id int) (catalog.MovieSummary, error) {
	m.record("Movie")
	if m.MovieFunc != nil {
		return m.MovieFunc(ctx, id)
	}
	return catalog.MovieSummary{}, nil
}

func (m *Catalog) Credits(ctx context.Context, movieID int) ([]catalog.CastMember, error) {
	m.record("Credits")
	if m.CreditsFunc != nil {
		return m.CreditsFunc(ctx, movieID)
	}
	return nil, nil
}

func (m *Catalog) Actor(ctx context.Context, id int) (catalog.Actor, error) {
	m.record("Actor")
	if m.ActorFunc != nil {
		return m.ActorFunc(ctx, id)
	}
	return catalog.Actor{}, nil
}

func (m *Catalog) ActorCredits(ctx context.Context, actorID int) ([]catalog.MovieSummary, error) {
	m.record("ActorCredits")
	if m.ActorCreditsFunc != nil {
		return m.ActorCreditsFunc(ctx, actorID)
	}
	return nil, nil
}
