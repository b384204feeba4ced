package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/text/language"

	"github.com/handsomefox/cinebrowse/internal/browse"
	"github.com/handsomefox/cinebrowse/internal/config"
	"github.com/handsomefox/cinebrowse/internal/handlers"
	"github.com/handsomefox/cinebrowse/internal/imageurl"
	"github.com/handsomefox/cinebrowse/internal/logger"
	"github.com/handsomefox/cinebrowse/internal/refine"
	"github.com/handsomefox/cinebrowse/internal/retry"
	"github.com/handsomefox/cinebrowse/internal/store"
	"github.com/handsomefox/cinebrowse/internal/tmdb"
	"github.com/handsomefox/cinebrowse/internal/web"

	_ "github.com/joho/godotenv/autoload"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Hour
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var lvl slog.LevelVar
	lvl.Set(cfg.Level())
	log := logger.NewWriter(os.Stderr, &lvl, cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := store.OpenBackend(ctx, store.Options{
		Backend:  cfg.Cache.Backend,
		DBPath:   cfg.Cache.DBPath,
		RedisURL: cfg.Cache.RedisURL,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	var health handlers.Pinger
	var tmdbCache tmdb.Cache
	if cache != nil {
		health, tmdbCache = cache, cache
		go store.RunJanitor(ctx, cache, janitorInterval, log)
		defer func() {
			if err := cache.Close(); err != nil {
				log.Error("Failed to close cache", logger.Error(err))
			}
		}()
	}

	client := tmdb.New(tmdb.Config{
		APIKey:     cfg.TMDB.APIKey,
		ReadToken:  cfg.TMDB.ReadToken,
		Language:   cfg.TMDB.Language,
		BaseURL:    cfg.TMDB.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.TMDB.Timeout},
		Cache:      tmdbCache,
		CacheTTL:   cfg.Cache.TTL,
		Retry:      retry.DefaultPolicy(),
		Logger:     log,
	})

	svc, err := browse.New(browse.Config{
		Catalog:  client,
		Pipeline: refine.New(collationLocale(cfg, log)),
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to init browse service: %w", err)
	}

	app, err := handlers.New(&handlers.Config{
		Service:  svc,
		Images:   imageurl.New(cfg.TMDB.ImageBase),
		Health:   health,
		Language: client.Language(),
		Debounce: cfg.Search.Debounce,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	dist, err := web.Dist()
	if err != nil {
		return fmt.Errorf("failed to open embedded frontend: %w", err)
	}
	spa, err := handlers.SPA(dist)
	if err != nil {
		return err
	}

	schema := logger.RequestSchema(cfg.Env)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger.NewRequestLogger(os.Stderr, &lvl, cfg.Env), &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        schema,
		RecoverPanics: true,
		Skip: func(req *http.Request, _ int) bool {
			return req.URL.Path == "/healthz"
		},
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", app.Healthz)
	r.Route("/api", app.RegisterRoutes)
	r.Handle("/*", spa)

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, log, func(next *config.Config) {
				lvl.Set(next.Level())
				log.Debug("log level applied", slog.String("level", next.Level().String()))
			})
			if err != nil {
				log.Warn("config watch stopped", logger.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", server.Addr), slog.String("env", string(cfg.Env)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// collationLocale picks the title sort locale: the configured one, else the
// catalog language.
func collationLocale(cfg *config.Config, log *slog.Logger) language.Tag {
	raw := strings.TrimSpace(cfg.Search.Locale)
	if raw == "" {
		raw = cfg.TMDB.Language
	}
	tag, err := language.Parse(raw)
	if err != nil {
		log.Warn("unknown collation locale, using root", slog.String("locale", raw), logger.Error(err))
		return language.Und
	}
	return tag
}
