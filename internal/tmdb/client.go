// Package tmdb implements catalog.Catalog against the TMDB v3 REST API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/logger"
	"github.com/handsomefox/cinebrowse/internal/retry"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "fr-FR"
	DefaultCacheTTL = 6 * time.Hour
)

// Cache stores raw response bodies. Implementations live in internal/store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

type Config struct {
	APIKey    string
	ReadToken string
	Language  string
	BaseURL   string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
	Retry      retry.Policy
	Logger     *slog.Logger
}

type Client struct {
	apiKey    string
	readToken string
	language  string
	baseURL   string
	http      *http.Client
	cache     Cache
	cacheTTL  time.Duration
	retry     retry.Policy
	logger    *slog.Logger
}

var _ catalog.Catalog = (*Client)(nil)

func New(cfg Config) *Client {
	apiKey, readToken := strings.TrimSpace(cfg.APIKey), strings.TrimSpace(cfg.ReadToken)
	if readToken == "" && looksLikeJWT(apiKey) {
		readToken = apiKey
		apiKey = ""
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiKey:    apiKey,
		readToken: readToken,
		language:  cfg.Language,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      cfg.HTTPClient,
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		retry:     cfg.Retry,
		logger:    cfg.Logger.With(slog.String("component", "tmdb")),
	}
}

func (c *Client) Language() string { return c.language }

// StatusError is returned for any upstream answer >= 400.
type StatusError struct {
	Code     int
	Status   string
	Endpoint string
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb %s failed: %s", e.Endpoint, e.Status)
}

func (e *StatusError) StatusCode() int { return e.Code }

func (e *StatusError) Is(target error) bool {
	return target == catalog.ErrNotFound && e.Code == http.StatusNotFound
}

func (c *Client) Popular(ctx context.Context, page int) (catalog.Page, error) {
	return c.list(ctx, "/movie/popular", url.Values{}, page)
}

func (c *Client) NowPlaying(ctx context.Context, page int) (catalog.Page, error) {
	return c.list(ctx, "/movie/now_playing", url.Values{}, page)
}

func (c *Client) Upcoming(ctx context.Context, page int) (catalog.Page, error) {
	return c.list(ctx, "/movie/upcoming", url.Values{}, page)
}

func (c *Client) ByGenre(ctx context.Context, genreID, page int) (catalog.Page, error) {
	if genreID <= 0 {
		return catalog.Page{}, fmt.Errorf("genre %d: %w", genreID, catalog.ErrNotFound)
	}
	values := url.Values{}
	values.Set("with_genres", strconv.Itoa(genreID))
	values.Set("sort_by", "popularity.desc")
	values.Set("include_adult", "false")
	return c.list(ctx, "/discover/movie", values, page)
}

// Search returns an empty first page for blank queries without calling out.
func (c *Client) Search(ctx context.Context, query string, page int) (catalog.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return catalog.Page{Page: 1, Results: []catalog.MovieSummary{}}, nil
	}
	values := url.Values{}
	values.Set("query", query)
	values.Set("include_adult", "false")
	return c.list(ctx, "/search/movie", values, page)
}

func (c *Client) Genres(ctx context.Context) (catalog.GenreCatalog, error) {
	var payload struct {
		Genres []catalog.Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", url.Values{}, &payload); err != nil {
		return catalog.GenreCatalog{}, err
	}
	return catalog.NewGenreCatalog(payload.Genres), nil
}

func (c *Client) Movie(ctx context.Context, id int) (catalog.MovieSummary, error) {
	if id <= 0 {
		return catalog.MovieSummary{}, fmt.Errorf("movie %d: %w", id, catalog.ErrNotFound)
	}
	var payload catalog.MovieSummary
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), url.Values{}, &payload); err != nil {
		return catalog.MovieSummary{}, err
	}
	if len(payload.GenreIDs) == 0 {
		for _, g := range payload.Genres {
			payload.GenreIDs = append(payload.GenreIDs, g.ID)
		}
	}
	return payload, nil
}

func (c *Client) Credits(ctx context.Context, movieID int) ([]catalog.CastMember, error) {
	if movieID <= 0 {
		return nil, fmt.Errorf("movie %d: %w", movieID, catalog.ErrNotFound)
	}
	var payload struct {
		Cast []catalog.CastMember `json:"cast"`
	}
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/credits", movieID), url.Values{}, &payload); err != nil {
		return nil, err
	}
	return payload.Cast, nil
}

func (c *Client) Actor(ctx context.Context, id int) (catalog.Actor, error) {
	if id <= 0 {
		return catalog.Actor{}, fmt.Errorf("actor %d: %w", id, catalog.ErrNotFound)
	}
	var payload catalog.Actor
	if err := c.get(ctx, fmt.Sprintf("/person/%d", id), url.Values{}, &payload); err != nil {
		return catalog.Actor{}, err
	}
	return payload, nil
}

func (c *Client) ActorCredits(ctx context.Context, actorID int) ([]catalog.MovieSummary, error) {
	if actorID <= 0 {
		return nil, fmt.Errorf("actor %d: %w", actorID, catalog.ErrNotFound)
	}
	var payload struct {
		Cast []catalog.MovieSummary `json:"cast"`
	}
	if err := c.get(ctx, fmt.Sprintf("/person/%d/movie_credits", actorID), url.Values{}, &payload); err != nil {
		return nil, err
	}
	return payload.Cast, nil
}

func (c *Client) list(ctx context.Context, path string, values url.Values, page int) (catalog.Page, error) {
	page = min(max(page, 1), catalog.MaxPages)
	values.Set("page", strconv.Itoa(page))

	var payload catalog.Page
	if err := c.get(ctx, path, values, &payload); err != nil {
		return catalog.Page{}, err
	}
	if payload.Results == nil {
		payload.Results = []catalog.MovieSummary{}
	}
	return payload, nil
}

// get decodes path into out, going through the cache when one is set. Cache
// failures never fail the call.
func (c *Client) get(ctx context.Context, path string, values url.Values, out any) error {
	values.Set("language", c.language)
	key := "tmdb:" + path + "?" + values.Encode()

	if c.cache != nil {
		if data, ok := c.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(data, out); err == nil {
				c.logger.Debug("cache hit", slog.String("key", key))
				return nil
			}
			c.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
		}
	}

	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + path + "?" + values.Encode()

	body, err := retry.Do(ctx, c.retry, c.logger, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, path, endpoint)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			c.logger.Warn("cache write failed", slog.String("key", key), logger.Error(err))
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{
			Code:     resp.StatusCode,
			Status:   resp.Status,
			Endpoint: path,
			Body:     string(snippet),
		}
		if cerr := resp.Body.Close(); cerr != nil {
			return nil, errors.Join(statusErr, cerr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}
	if err := resp.Body.Close(); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) applyAuth(req *http.Request) {
	if c.readToken == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.readToken)
}

// looksLikeJWT catches v4 read tokens pasted into the api key setting.
func looksLikeJWT(token string) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	return len(parts) == 3 && len(token) > 80
}
