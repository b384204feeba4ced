package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/cinebrowse/internal/browse"
	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/imageurl"
	"github.com/handsomefox/cinebrowse/internal/mocks"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, cat *mocks.Catalog, health Pinger) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := browse.New(browse.Config{Catalog: cat, Logger: logger})
	require.NoError(t, err)
	h, err := New(&Config{
		Service:  svc,
		Images:   imageurl.New("https://img.test/t/p"),
		Health:   health,
		Language: "fr-FR",
		Debounce: 500 * time.Millisecond,
		Logger:   logger,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/healthz", h.Healthz)
	r.Route("/api", h.RegisterRoutes)
	return r
}

func get(t *testing.T, h http.Handler, target string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func samplePage(page, total int) catalog.Page {
	return catalog.Page{Page: page, TotalPages: total, Results: []catalog.MovieSummary{
		{ID: 1, Title: "Heat", PosterPath: "/heat.jpg", ReleaseDate: "1995-12-15", VoteAverage: 7.9, GenreIDs: []int{28, 80}},
		{ID: 2, Title: "Ronin", ReleaseDate: "1998-09-25", VoteAverage: 6.9, GenreIDs: []int{28}},
		{ID: 3, Title: "Amélie", ReleaseDate: "2001-04-25", VoteAverage: 7.9, GenreIDs: []int{35}},
	}}
}

func TestNewRequiresService(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)
}

func TestGetConfig(t *testing.T) {
	var resp configResponse
	rec := get(t, newTestRouter(t, &mocks.Catalog{}, nil), "/api/config", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "fr-FR", resp.Language)
	assert.Equal(t, "https://img.test/t/p", resp.ImageBase)
	assert.Equal(t, 500, resp.MaxPages)
	assert.EqualValues(t, 500, resp.DebounceMS)
	assert.Contains(t, resp.SortKeys, "title.asc")
	assert.Equal(t, []string{"w45", "w185", "h632", "original"}, resp.ImageSizes[imageurl.Profile])
}

func TestGetListing(t *testing.T) {
	var gotPage int
	cat := &mocks.Catalog{
		PopularFunc: func(_ context.Context, page int) (catalog.Page, error) {
			gotPage = page
			return samplePage(page, 40), nil
		},
	}
	var resp listResponse
	rec := get(t, newTestRouter(t, cat, nil), "/api/movies/popular?genre=28&sort=rating.asc&page=2", &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, 2, gotPage)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Ronin", resp.Items[0].Title)
	assert.Equal(t, "https://img.test/t/p/w500/heat.jpg", resp.Items[1].PosterURL)
	assert.Equal(t, imageurl.PlaceholderMovie, resp.Items[0].PosterURL)
	assert.Equal(t, "1998", resp.Items[0].Year)
	assert.Equal(t, 1, resp.Filtered)
	assert.True(t, resp.HasPrev)
	assert.True(t, resp.HasNext)
	assert.Equal(t, "genre=28&page=2&sort=rating.asc", resp.Query)
	assert.Empty(t, resp.Warnings)
}

func TestGetListingWarnings(t *testing.T) {
	cat := &mocks.Catalog{
		NowPlayingFunc: func(_ context.Context, page int) (catalog.Page, error) {
			return samplePage(page, 3), nil
		},
	}
	var resp listResponse
	rec := get(t, newTestRouter(t, cat, nil), "/api/movies/now-playing?sort=bogus&rating=abc", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Warnings, 2)
	assert.Equal(t, "popularity.desc", resp.State.Sort)
	assert.Empty(t, resp.Query)
}

func TestGetListingUnknownKind(t *testing.T) {
	var resp errorResponse
	rec := get(t, newTestRouter(t, &mocks.Catalog{}, nil), "/api/movies/top-rated", &resp)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown list", resp.Error)
}

func TestGetSearch(t *testing.T) {
	cat := &mocks.Catalog{
		SearchFunc: func(_ context.Context, q string, page int) (catalog.Page, error) {
			assert.Equal(t, "heat", q)
			return samplePage(page, 1), nil
		},
	}
	r := newTestRouter(t, cat, nil)

	var resp listResponse
	rec := get(t, r, "/api/search?q=heat&sort=title.asc", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	titles := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"Amélie", "Heat", "Ronin"}, titles)
	assert.Equal(t, "q=heat&sort=title.asc", resp.Query)

	rec = get(t, r, "/api/search", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 1, cat.Calls("Search"), "blank text never reaches the catalog")
}

func TestCatalogFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"upstream", errors.New("connection refused"), http.StatusBadGateway, browse.MessageMovie},
		{"not found", fmt.Errorf("movie 9: %w", catalog.ErrNotFound), http.StatusNotFound, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &mocks.Catalog{
				MovieFunc: func(context.Context, int) (catalog.MovieSummary, error) {
					return catalog.MovieSummary{}, tt.err
				},
			}
			var resp errorResponse
			rec := get(t, newTestRouter(t, cat, nil), "/api/movie/9", &resp)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, resp.Error)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestGetMovie(t *testing.T) {
	cat := &mocks.Catalog{
		MovieFunc: func(_ context.Context, id int) (catalog.MovieSummary, error) {
			return catalog.MovieSummary{ID: id, Title: "Heat", Runtime: 170, BackdropPath: "/b.jpg"}, nil
		},
		CreditsFunc: func(context.Context, int) ([]catalog.CastMember, error) {
			return []catalog.CastMember{{ID: 1158, Name: "Al Pacino", Character: "Vincent Hanna"}}, nil
		},
	}
	var resp movieResponse
	rec := get(t, newTestRouter(t, cat, nil), "/api/movie/949", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 949, resp.Movie.ID)
	assert.Equal(t, "2h 50min", resp.Movie.Runtime)
	assert.Equal(t, "https://img.test/t/p/w1280/b.jpg", resp.Movie.BackdropURL)
	require.Len(t, resp.Cast, 1)
	assert.Equal(t, imageurl.PlaceholderActor, resp.Cast[0].ProfileURL)
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	r := newTestRouter(t, &mocks.Catalog{}, nil)
	targets := []string{
		"/api/movie/abc", "/api/movie/0", "/api/movie/1.5",
		"/api/actor/0", "/api/actor/x",
		"/api/genre/-3", "/api/genre/abc",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			var resp errorResponse
			rec := get(t, r, target, &resp)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "not found", resp.Error)
		})
	}
}

func TestGetCategory(t *testing.T) {
	cat := &mocks.Catalog{
		ByGenreFunc: func(_ context.Context, id, page int) (catalog.Page, error) {
			return samplePage(page, 2), nil
		},
		GenresFunc: func(context.Context) (catalog.GenreCatalog, error) {
			return catalog.NewGenreCatalog([]catalog.Genre{{ID: 28, Name: "Action"}}), nil
		},
	}
	var resp categoryResponse
	rec := get(t, newTestRouter(t, cat, nil), "/api/genre/28?rating=7.5", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Action", resp.Genre.Name)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, "rating=7.5", resp.Query)
}

func TestGetActor(t *testing.T) {
	cat := &mocks.Catalog{
		ActorFunc: func(_ context.Context, id int) (catalog.Actor, error) {
			return catalog.Actor{ID: id, Name: "Robert De Niro", ProfilePath: "/rdn.jpg"}, nil
		},
		ActorCreditsFunc: func(context.Context, int) ([]catalog.MovieSummary, error) {
			return samplePage(1, 1).Results, nil
		},
	}
	var resp actorResponse
	rec := get(t, newTestRouter(t, cat, nil), "/api/actor/380", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://img.test/t/p/w185/rdn.jpg", resp.ProfileURL)
	require.Len(t, resp.Filmography, 3)
	assert.Equal(t, "Ronin", resp.Filmography[2].Title)
}

func TestGetHome(t *testing.T) {
	page := func(_ context.Context, p int) (catalog.Page, error) { return samplePage(p, 1), nil }
	cat := &mocks.Catalog{PopularFunc: page, NowPlayingFunc: page, UpcomingFunc: page}

	var resp homeResponse
	rec := get(t, newTestRouter(t, cat, nil), "/api/home", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.Featured)
	assert.Equal(t, "Heat", resp.Featured.Title)
	assert.Len(t, resp.Upcoming, 3)
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestRouter(t, &mocks.Catalog{}, nil), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := pingFunc(func(context.Context) error { return errors.New("db locked") })
	var resp healthResponse
	rec = get(t, newTestRouter(t, &mocks.Catalog{}, down), "/healthz", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", resp.Status)
}
