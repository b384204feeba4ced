// Command browse is a terminal front end for the catalog. Plain lines are
// search input; lines starting with ':' are commands.
package main

import (
	"bufio"
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/handsomefox/cinebrowse/internal/browse"
	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/config"
	"github.com/handsomefox/cinebrowse/internal/debounce"
	"github.com/handsomefox/cinebrowse/internal/handlers"
	"github.com/handsomefox/cinebrowse/internal/imageurl"
	"github.com/handsomefox/cinebrowse/internal/logger"
	"github.com/handsomefox/cinebrowse/internal/query"
	"github.com/handsomefox/cinebrowse/internal/refine"
	"github.com/handsomefox/cinebrowse/internal/store"
	"github.com/handsomefox/cinebrowse/internal/tmdb"

	_ "github.com/joho/godotenv/autoload"
)

const usage = `commands:
  <text>          search (listing mode: submit search text)
  :genre <id>     filter by genre, 0 clears
  :sort <key>     popularity.desc rating.desc rating.asc release.desc release.asc title.asc
  :rating <n>     minimum rating, 0 clears
  :page <n>  :next  :prev
  :reset          clear genre, rating and sort
  :url            print the shareable link
  :quit`

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	list := flag.String("list", "", "browse a list (popular, now-playing, upcoming) instead of searching")
	initial := flag.String("query", "", "initial query string, e.g. q=alien&sort=title.asc")
	clearCache := flag.Bool("clear-cache", false, "drop every cached catalog response before starting")
	flag.Parse()

	if err := run(*configPath, *list, *initial, *clearCache); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}

func run(configPath, list, initial string, clearCache bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewWriter(os.Stderr, cfg.Level(), cfg.Env)

	current, err := url.ParseQuery(initial)
	if err != nil {
		return fmt.Errorf("bad -query: %w", err)
	}

	ctx := context.Background()
	var tmdbCache tmdb.Cache
	cache, err := store.OpenBackend(ctx, store.Options{
		Backend:  cfg.Cache.Backend,
		DBPath:   cfg.Cache.DBPath,
		RedisURL: cfg.Cache.RedisURL,
	}, log)
	if err != nil {
		log.Warn("cache unavailable, continuing without it", logger.Error(err))
	} else if cache != nil {
		tmdbCache = cache
		defer func() {
			if err := cache.Close(); err != nil {
				log.Error("Failed to close cache", logger.Error(err))
			}
		}()
		if c, ok := cache.(store.Clearer); ok && clearCache {
			if err := c.Clear(ctx); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
		}
	}

	tag, err := language.Parse(cmp.Or(strings.TrimSpace(cfg.Search.Locale), cfg.TMDB.Language))
	if err != nil {
		tag = language.Und
	}
	svc, err := browse.New(browse.Config{
		Catalog: tmdb.New(tmdb.Config{
			APIKey:     cfg.TMDB.APIKey,
			ReadToken:  cfg.TMDB.ReadToken,
			Language:   cfg.TMDB.Language,
			BaseURL:    cfg.TMDB.BaseURL,
			HTTPClient: &http.Client{Timeout: cfg.TMDB.Timeout},
			Cache:      tmdbCache,
			CacheTTL:   cfg.Cache.TTL,
			Logger:     log,
		}),
		Pipeline: refine.New(tag),
		Logger:   log,
	})
	if err != nil {
		return err
	}

	out := &printer{w: os.Stdout, images: imageurl.New(cfg.TMDB.ImageBase)}
	fmt.Fprintln(out.w, usage)

	if list != "" {
		kind, ok := browse.ParseListKind(list)
		if !ok {
			return fmt.Errorf("unknown list %q", list)
		}
		v, err := browse.NewListingView(svc, kind, browse.ViewConfig{Current: current, Logger: log}, out.listing)
		if err != nil {
			return err
		}
		defer v.Close()
		return repl(os.Stdin, out, v.Store(), "/"+string(kind), query.ModeListing, v.Submit)
	}

	v, err := browse.NewSearchView(svc, browse.ViewConfig{
		Current: current,
		Logger:  log,
		Delay:   cfg.Search.Debounce,
	}, out.search)
	if err != nil {
		return err
	}
	defer v.Close()
	return repl(os.Stdin, out, v.Store(), "/search", query.ModeSearch, v.Type)
}

func repl(in io.Reader, out *printer, st *query.Store, path string, mode query.Mode, text func(string)) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, ":") {
			text(line)
			continue
		}
		cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "genre":
			n, err := strconv.Atoi(arg)
			if err != nil {
				out.line(usage)
				continue
			}
			st.SetGenre(n)
		case "sort":
			st.SetSort(query.SortKey(arg))
		case "rating":
			r, err := strconv.ParseFloat(arg, 64)
			if err != nil || math.IsNaN(r) {
				out.line(usage)
				continue
			}
			st.SetMinRating(r)
		case "page":
			n, err := strconv.Atoi(arg)
			if err != nil {
				out.line(usage)
				continue
			}
			st.SetPage(n)
		case "next":
			st.NextPage()
		case "prev":
			st.PrevPage()
		case "reset":
			st.ResetFilters()
		case "url":
			out.line(handlers.Location(path, st.State(), mode))
		case "quit", "q":
			return nil
		default:
			out.line(usage)
		}
	}
	return sc.Err()
}

// printer serialises output from the view callbacks, which may run on the
// debounce timer goroutine.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	images imageurl.Resolver
}

func (p *printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

func (p *printer) search(r browse.SearchRender) {
	snap := r.Search
	switch snap.Status {
	case debounce.StatusPending:
		return
	case debounce.StatusQuerying:
		p.line("searching " + strconv.Quote(snap.Query) + "...")
		return
	case debounce.StatusFailed:
		p.line(snap.Message)
		return
	}
	if !snap.HasSearched {
		p.line("type to search")
		return
	}
	p.results(snap.Results)
}

func (p *printer) listing(r browse.ListingRender) {
	if r.Loading {
		return
	}
	if r.Message != "" {
		p.line(r.Message)
	}
	p.results(r.Results)
}

func (p *printer) results(page catalog.ResultPage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page.Empty() {
		fmt.Fprintln(p.w, "no movies found")
		return
	}
	for _, m := range page.Items {
		year := "----"
		if len(m.ReleaseDate) >= 4 {
			year = m.ReleaseDate[:4]
		}
		fmt.Fprintf(p.w, "%7d  %s  %4.1f  %s\n", m.ID, year, m.VoteAverage, m.Title)
		fmt.Fprintf(p.w, "         %s\n", p.images.Poster(m.PosterPath))
	}
	fmt.Fprintf(p.w, "page %d/%d", page.CurrentPage, page.TotalPages)
	if page.Filtered > 0 {
		fmt.Fprintf(p.w, " (%d hidden by filters)", page.Filtered)
	}
	fmt.Fprintln(p.w)
}
