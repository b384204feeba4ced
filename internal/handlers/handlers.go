// Package handlers wires HTTP routing and API handlers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/handsomefox/cinebrowse/internal/browse"
	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/imageurl"
	"github.com/handsomefox/cinebrowse/internal/logger"
	"github.com/handsomefox/cinebrowse/internal/query"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc      *browse.Service
	images   imageurl.Resolver
	health   Pinger
	language string
	debounce time.Duration
	logger   *slog.Logger
}

type Config struct {
	Service  *browse.Service
	Images   imageurl.Resolver
	Health   Pinger
	Language string
	Debounce time.Duration
	Logger   *slog.Logger
}

func New(cfg *Config) (*Handler, error) {
	if cfg.Service == nil {
		return nil, errors.New("browse service is required")
	}
	images := cfg.Images
	if images.Base() == "" {
		images = imageurl.New("")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc:      cfg.Service,
		images:   images,
		health:   cfg.Health,
		language: strings.TrimSpace(cfg.Language),
		debounce: cfg.Debounce,
		logger:   log,
	}, nil
}

// RegisterRoutes mounts the JSON API under r. The caller picks the prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(MiddlewareNoStore)

		r.Method(http.MethodGet, "/config", Adapt(h.getConfig))
		r.Method(http.MethodGet, "/home", Adapt(h.getHome))
		r.Method(http.MethodGet, "/genres", Adapt(h.getGenres))
		r.Method(http.MethodGet, "/movies/{kind}", Adapt(h.getListing))
		r.Method(http.MethodGet, "/search", Adapt(h.getSearch))
		r.Method(http.MethodGet, "/genre/{id}", Adapt(h.getCategory))
		r.Method(http.MethodGet, "/movie/{id}", Adapt(h.getMovie))
		r.Method(http.MethodGet, "/actor/{id}", Adapt(h.getActor))
	})
}

// Healthz answers 200 when the cache backend, if any, responds to a ping.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) error {
	keys := make([]string, 0, len(query.SortKeys))
	for _, k := range query.SortKeys {
		keys = append(keys, string(k))
	}
	writeJSON(w, http.StatusOK, configResponse{
		Language:   h.language,
		ImageBase:  h.images.Base(),
		SortKeys:   keys,
		MaxPages:   catalog.MaxPages,
		DebounceMS: h.debounce.Milliseconds(),
		ImageSizes: map[imageurl.Kind][]string{
			imageurl.Poster:   imageurl.Sizes(imageurl.Poster),
			imageurl.Backdrop: imageurl.Sizes(imageurl.Backdrop),
			imageurl.Profile:  imageurl.Sizes(imageurl.Profile),
		},
	})
	return nil
}

func (h *Handler) getHome(w http.ResponseWriter, r *http.Request) error {
	home, err := h.svc.Home(r.Context())
	if err != nil {
		return h.catalogError(r, err, browse.MessageHome)
	}

	resp := homeResponse{
		Popular:    h.toCards(home.Popular),
		NowPlaying: h.toCards(home.NowPlaying),
		Upcoming:   h.toCards(home.Upcoming),
		Genres:     home.Genres,
	}
	if home.Featured != nil {
		resp.Featured = ptr(h.toCard(*home.Featured))
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *Handler) getGenres(w http.ResponseWriter, r *http.Request) error {
	gc, err := h.svc.Genres(r.Context())
	if err != nil {
		return h.catalogError(r, err, browse.MessageGenres)
	}
	writeJSON(w, http.StatusOK, gc.List)
	return nil
}

func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) error {
	kind, ok := browse.ParseListKind(chi.URLParam(r, "kind"))
	if !ok {
		return notFound("unknown list")
	}
	st, warnings := parseState(r, query.ModeListing)

	page, err := h.svc.Listing(r.Context(), kind, st)
	if err != nil {
		return h.catalogError(r, err, browse.MessageListing)
	}
	writeJSON(w, http.StatusOK, h.toListResponse(st, query.ModeListing, page, warnings))
	return nil
}

func (h *Handler) getSearch(w http.ResponseWriter, r *http.Request) error {
	st, warnings := parseState(r, query.ModeSearch)

	page, err := h.svc.Search(r.Context(), st)
	if err != nil {
		return h.catalogError(r, err, browse.MessageSearch)
	}
	writeJSON(w, http.StatusOK, h.toListResponse(st, query.ModeSearch, page, warnings))
	return nil
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}
	st, warnings := parseState(r, query.ModeListing)

	cat, err := h.svc.Category(r.Context(), id, st)
	if err != nil {
		return h.catalogError(r, err, browse.MessageCategory)
	}
	writeJSON(w, http.StatusOK, categoryResponse{
		Genre:        cat.Genre,
		listResponse: h.toListResponse(st, query.ModeListing, cat.Results, warnings),
	})
	return nil
}

func (h *Handler) getMovie(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	detail, err := h.svc.Movie(r.Context(), id)
	if err != nil {
		return h.catalogError(r, err, browse.MessageMovie)
	}

	cast := make([]castCard, 0, len(detail.Cast))
	for _, c := range detail.Cast {
		cast = append(cast, castCard{
			ID:         c.ID,
			Name:       c.Name,
			Character:  c.Character,
			ProfileURL: h.images.Profile(c.ProfilePath),
		})
	}
	writeJSON(w, http.StatusOK, movieResponse{
		Movie: h.toCard(detail.Movie),
		Cast:  cast,
	})
	return nil
}

func (h *Handler) getActor(w http.ResponseWriter, r *http.Request) error {
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	detail, err := h.svc.Actor(r.Context(), id)
	if err != nil {
		return h.catalogError(r, err, browse.MessageActor)
	}
	a := detail.Actor
	writeJSON(w, http.StatusOK, actorResponse{
		ID:           a.ID,
		Name:         a.Name,
		ProfileURL:   h.images.Profile(a.ProfilePath),
		Biography:    a.Biography,
		Birthday:     a.Birthday,
		PlaceOfBirth: a.PlaceOfBirth,
		Department:   a.KnownForDepartment,
		Filmography:  h.toCards(detail.Filmography),
	})
	return nil
}

// catalogError maps a failed catalog call onto the view's message. The
// underlying error is logged, never sent to the client.
func (h *Handler) catalogError(r *http.Request, err error, message string) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return notFound("not found")
	case errors.Is(err, context.Canceled):
		return &Error{Status: statusClientClosed, Message: message}
	}
	h.logger.ErrorContext(r.Context(), message,
		slog.String("path", r.URL.Path),
		logger.Error(err),
	)
	return &Error{Status: http.StatusBadGateway, Message: message}
}

// parseState reads the query string leniently. Ignored keys come back as
// warnings so the client can drop them from its URL.
func parseState(r *http.Request, mode query.Mode) (query.State, []string) {
	st, err := query.Parse(r.URL.Query(), mode)
	if err == nil {
		return st, nil
	}
	var perr *query.ParseError
	if !errors.As(err, &perr) {
		return st, []string{err.Error()}
	}
	warnings := make([]string, 0, len(perr.Fields))
	for _, f := range perr.Fields {
		warnings = append(warnings, f.Key+" "+f.Reason)
	}
	return st, warnings
}

func (h *Handler) toListResponse(st query.State, mode query.Mode, page catalog.ResultPage, warnings []string) listResponse {
	// The page may have been clamped against the reported total.
	st.Page = page.CurrentPage
	if st.Page < 1 {
		st.Page = 1
	}
	return listResponse{
		Query:       query.Encode(st, mode).Encode(),
		State:       toStateView(st),
		Items:       h.toCards(page.Items),
		CurrentPage: page.CurrentPage,
		TotalPages:  page.TotalPages,
		HasPrev:     page.HasPrev(),
		HasNext:     page.HasNext(),
		Filtered:    page.Filtered,
		Warnings:    warnings,
	}
}

func toStateView(st query.State) stateView {
	return stateView{
		Search:    st.SearchText,
		Genre:     st.GenreID,
		Sort:      string(st.Sort),
		MinRating: st.MinRating,
		Page:      st.Page,
	}
}

func (h *Handler) toCard(m catalog.MovieSummary) movieCard {
	card := movieCard{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterURL:   h.images.Poster(m.PosterPath),
		BackdropURL: h.images.Backdrop(m.BackdropPath),
		ReleaseDate: m.ReleaseDate,
		Year:        releaseYear(m.ReleaseDate),
		Rating:      m.VoteAverage,
		VoteCount:   m.VoteCount,
		GenreIDs:    m.GenreIDs,
		Genres:      m.Genres,
	}
	if m.Runtime > 0 {
		card.Runtime = imageurl.FormatRuntime(m.Runtime)
	}
	if card.GenreIDs == nil {
		card.GenreIDs = []int{}
	}
	return card
}

func (h *Handler) toCards(items []catalog.MovieSummary) []movieCard {
	out := make([]movieCard, 0, len(items))
	for i := range items {
		out = append(out, h.toCard(items[i]))
	}
	return out
}

func releaseYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// Location returns the SPA path for a listing state, used by the CLI to print
// shareable links.
func Location(path string, st query.State, mode query.Mode) string {
	values := query.Encode(st, mode)
	if len(values) == 0 {
		return path
	}
	u := url.URL{Path: path, RawQuery: values.Encode()}
	return u.String()
}
