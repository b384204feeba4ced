// Package browse assembles what each view shows from catalog calls and the
// refinement pipeline, and holds the stateful search and listing views.
package browse

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/logger"
	"github.com/handsomefox/cinebrowse/internal/query"
	"github.com/handsomefox/cinebrowse/internal/refine"
)

const (
	HomeSectionSize  = 12
	HomeGenreCount   = 8
	CastLimit        = 12
	FilmographyLimit = 20
	DefaultGenreTTL  = 24 * time.Hour
)

// User-facing failure messages, one per view.
const (
	MessageHome     = "error loading home page"
	MessageListing  = "error loading movies"
	MessageSearch   = "error loading search results"
	MessageCategory = "error loading category"
	MessageMovie    = "error loading movie details"
	MessageActor    = "error loading actor details"
	MessageGenres   = "error loading genres"
)

type ListKind string

const (
	KindPopular    ListKind = "popular"
	KindNowPlaying ListKind = "now-playing"
	KindUpcoming   ListKind = "upcoming"
)

func ParseListKind(s string) (ListKind, bool) {
	switch k := ListKind(strings.TrimSpace(s)); k {
	case KindPopular, KindNowPlaying, KindUpcoming:
		return k, true
	}
	return "", false
}

type Home struct {
	Featured   *catalog.MovieSummary  `json:"featured"`
	Popular    []catalog.MovieSummary `json:"popular"`
	NowPlaying []catalog.MovieSummary `json:"now_playing"`
	Upcoming   []catalog.MovieSummary `json:"upcoming"`
	Genres     []catalog.Genre        `json:"genres"`
}

type Category struct {
	Genre   catalog.Genre      `json:"genre"`
	Results catalog.ResultPage `json:"results"`
}

type MovieDetail struct {
	Movie catalog.MovieSummary `json:"movie"`
	Cast  []catalog.CastMember `json:"cast"`
}

type ActorDetail struct {
	Actor       catalog.Actor          `json:"actor"`
	Filmography []catalog.MovieSummary `json:"filmography"`
}

type Config struct {
	Catalog  catalog.Catalog
	Pipeline *refine.Pipeline
	GenreTTL time.Duration
	Logger   *slog.Logger
}

// Service is safe for concurrent use; it shares one genre cache across
// callers.
type Service struct {
	catalog  catalog.Catalog
	pipeline *refine.Pipeline
	logger   *slog.Logger
	genres   genreCache
	now      func() time.Time
}

type genreCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	catalog   catalog.GenreCatalog
	fetchedAt time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = refine.Default()
	}
	if cfg.GenreTTL <= 0 {
		cfg.GenreTTL = DefaultGenreTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		catalog:  cfg.Catalog,
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger.With(slog.String("component", "browse")),
		genres:   genreCache{ttl: cfg.GenreTTL},
		now:      time.Now,
	}, nil
}

// Genres returns the genre catalog, fetching it at most once per TTL.
func (s *Service) Genres(ctx context.Context) (catalog.GenreCatalog, error) {
	s.genres.mu.RLock()
	if s.genres.catalog.Len() > 0 && s.now().Sub(s.genres.fetchedAt) < s.genres.ttl {
		gc := s.genres.catalog
		s.genres.mu.RUnlock()
		return gc, nil
	}
	s.genres.mu.RUnlock()

	gc, err := s.catalog.Genres(ctx)
	if err != nil {
		return catalog.GenreCatalog{}, fmt.Errorf("fetch genres: %w", err)
	}

	s.genres.mu.Lock()
	s.genres.catalog = gc
	s.genres.fetchedAt = s.now()
	s.genres.mu.Unlock()
	return gc, nil
}

// Home fetches the three lists and the genres concurrently; any failure
// fails the whole view.
func (s *Service) Home(ctx context.Context) (Home, error) {
	var out Home
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page, err := s.catalog.Popular(ctx, 1)
		if err != nil {
			return fmt.Errorf("popular: %w", err)
		}
		out.Popular = head(page.Results, HomeSectionSize)
		return nil
	})
	g.Go(func() error {
		page, err := s.catalog.NowPlaying(ctx, 1)
		if err != nil {
			return fmt.Errorf("now playing: %w", err)
		}
		out.NowPlaying = head(page.Results, HomeSectionSize)
		return nil
	})
	g.Go(func() error {
		page, err := s.catalog.Upcoming(ctx, 1)
		if err != nil {
			return fmt.Errorf("upcoming: %w", err)
		}
		out.Upcoming = head(page.Results, HomeSectionSize)
		return nil
	})
	g.Go(func() error {
		gc, err := s.Genres(ctx)
		if err != nil {
			return err
		}
		out.Genres = head(gc.List, HomeGenreCount)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Home{}, err
	}
	if len(out.Popular) > 0 {
		featured := out.Popular[0]
		out.Featured = &featured
	}
	return out, nil
}

// Listing loads one page of kind, or of the search results when the state
// carries search text, and refines it.
func (s *Service) Listing(ctx context.Context, kind ListKind, st query.State) (catalog.ResultPage, error) {
	var (
		page catalog.Page
		err  error
	)
	switch {
	case strings.TrimSpace(st.SearchText) != "":
		page, err = s.catalog.Search(ctx, st.SearchText, st.Page)
	case kind == KindNowPlaying:
		page, err = s.catalog.NowPlaying(ctx, st.Page)
	case kind == KindUpcoming:
		page, err = s.catalog.Upcoming(ctx, st.Page)
	default:
		page, err = s.catalog.Popular(ctx, st.Page)
	}
	if err != nil {
		return catalog.ResultPage{}, err
	}
	return s.pipeline.Refine(page, st), nil
}

// Search returns an empty page for blank text without calling the catalog.
func (s *Service) Search(ctx context.Context, st query.State) (catalog.ResultPage, error) {
	text := strings.TrimSpace(st.SearchText)
	if text == "" {
		return catalog.ResultPage{Items: []catalog.MovieSummary{}, CurrentPage: 1}, nil
	}
	page, err := s.catalog.Search(ctx, text, st.Page)
	if err != nil {
		return catalog.ResultPage{}, err
	}
	return s.pipeline.Refine(page, st), nil
}

// Category discovers movies of one genre. An unknown genre id still lists
// whatever the catalog returns, with an empty name.
func (s *Service) Category(ctx context.Context, genreID int, st query.State) (Category, error) {
	if genreID <= 0 {
		return Category{}, fmt.Errorf("genre %d: %w", genreID, catalog.ErrNotFound)
	}
	st.Page = query.ClampPage(st.Page, 0)

	var (
		page catalog.Page
		gc   catalog.GenreCatalog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = s.catalog.ByGenre(gctx, genreID, st.Page)
		return err
	})
	g.Go(func() error {
		var err error
		if gc, err = s.Genres(gctx); err != nil {
			// The name is decoration; the list still renders.
			s.logger.Warn("genre names unavailable", logger.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Category{}, err
	}

	name, _ := gc.Name(genreID)
	// The listing is already restricted to the genre.
	st.GenreID = nil
	return Category{
		Genre:   catalog.Genre{ID: genreID, Name: name},
		Results: s.pipeline.Refine(page, st),
	}, nil
}

func (s *Service) Movie(ctx context.Context, id int) (MovieDetail, error) {
	var out MovieDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.catalog.Movie(gctx, id)
		out.Movie = m
		return err
	})
	g.Go(func() error {
		cast, err := s.catalog.Credits(gctx, id)
		out.Cast = head(cast, CastLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return MovieDetail{}, err
	}
	return out, nil
}

// Actor returns the actor with their best-rated films first.
func (s *Service) Actor(ctx context.Context, id int) (ActorDetail, error) {
	var (
		actor catalog.Actor
		films []catalog.MovieSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actor, err = s.catalog.Actor(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		films, err = s.catalog.ActorCredits(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return ActorDetail{}, err
	}

	films = slices.Clone(films)
	slices.SortStableFunc(films, func(a, b catalog.MovieSummary) int {
		return cmp.Compare(b.VoteAverage, a.VoteAverage)
	})
	return ActorDetail{Actor: actor, Filmography: head(films, FilmographyLimit)}, nil
}

// head returns a copy of at most n leading items, never nil.
func head[T any](items []T, n int) []T {
	out := make([]T, 0, min(len(items), n))
	return append(out, items[:min(len(items), n)]...)
}
