// Package catalog defines the movie catalog data model and the
// fetch-by-criteria contract the rest of the app depends on.
package catalog

import (
	"context"
	"errors"
)

// MaxPages is the hard page ceiling enforced by the catalog regardless of
// the total it reports.
const MaxPages = 500

var ErrNotFound = errors.New("not found")

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type MovieSummary struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int   `json:"genre_ids"`
	Genres           []Genre `json:"genres,omitempty"`
	Runtime          int     `json:"runtime,omitempty"`
	OriginalLanguage string  `json:"original_language"`
}

// HasGenre reports whether id is one of the movie's genres. Detail records
// carry full Genre values instead of bare ids, so both are checked.
func (m *MovieSummary) HasGenre(id int) bool {
	for _, g := range m.GenreIDs {
		if g == id {
			return true
		}
	}
	for _, g := range m.Genres {
		if g.ID == id {
			return true
		}
	}
	return false
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type Actor struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	ProfilePath        string `json:"profile_path"`
	Biography          string `json:"biography"`
	Birthday           string `json:"birthday"`
	PlaceOfBirth       string `json:"place_of_birth"`
	KnownForDepartment string `json:"known_for_department"`
}

// Page is one raw page of results as reported by the catalog.
type Page struct {
	Results      []MovieSummary `json:"results"`
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// ResultPage is the refined output handed to views. It is replaced
// wholesale on every change and never mutated in place.
type ResultPage struct {
	Items       []MovieSummary `json:"items"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
	// Filtered counts raw items dropped by client-side filters on this page.
	Filtered int `json:"filtered"`
}

func (p ResultPage) Empty() bool { return len(p.Items) == 0 }

func (p ResultPage) HasPrev() bool { return p.CurrentPage > 1 }

func (p ResultPage) HasNext() bool { return p.CurrentPage < p.TotalPages }

type GenreCatalog struct {
	List  []Genre
	names map[int]string
}

func NewGenreCatalog(list []Genre) GenreCatalog {
	names := make(map[int]string, len(list))
	for _, g := range list {
		names[g.ID] = g.Name
	}
	return GenreCatalog{List: list, names: names}
}

func (c GenreCatalog) Name(id int) (string, bool) {
	name, ok := c.names[id]
	return name, ok
}

func (c GenreCatalog) Len() int { return len(c.List) }

// Catalog is the remote collaborator. All calls may fail with a network or
// decode error; unknown ids fail with ErrNotFound.
type Catalog interface {
	Popular(ctx context.Context, page int) (Page, error)
	NowPlaying(ctx context.Context, page int) (Page, error)
	Upcoming(ctx context.Context, page int) (Page, error)
	ByGenre(ctx context.Context, genreID, page int) (Page, error)
	Search(ctx context.Context, query string, page int) (Page, error)
	Genres(ctx context.Context) (GenreCatalog, error)
	Movie(ctx context.Context, id int) (MovieSummary, error)
	Credits(ctx context.Context, movieID int) ([]CastMember, error)
	Actor(ctx context.Context, id int) (Actor, error)
	ActorCredits(ctx context.Context, actorID int) ([]MovieSummary, error)
}
