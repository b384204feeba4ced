package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/handsomefox/cinebrowse/internal/logger"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Cache is what the catalog client and the health check need from a backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	io.Closer
}

type Options struct {
	Backend  string
	DBPath   string
	RedisURL string
}

// OpenBackend opens the configured cache. BackendNone returns a nil Cache
// and no error.
func OpenBackend(ctx context.Context, opts Options, log *slog.Logger) (Cache, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		c, err := Open(opts.DBPath, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := OpenRedis(ctx, opts.RedisURL, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// Clearer is implemented by backends that can drop every cached entry.
type Clearer interface {
	Clear(ctx context.Context) error
}

// RunJanitor purges expired SQLite rows every interval until ctx is done.
// Redis expires keys itself, so other backends return at once.
func RunJanitor(ctx context.Context, c Cache, every time.Duration, log *slog.Logger) {
	sc, ok := c.(*SQLiteCache)
	if !ok || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			purgeOnce(ctx, sc, log)
		}
	}
}

func purgeOnce(ctx context.Context, sc *SQLiteCache, log *slog.Logger) {
	n, err := sc.Purge(ctx)
	if err != nil {
		log.Warn("cache purge failed", logger.Error(err))
		return
	}
	st, err := sc.Stats(ctx)
	if err != nil {
		log.Warn("cache stats failed", logger.Error(err))
		return
	}
	log.Debug("cache purged",
		slog.Int64("removed", n),
		slog.Int("entries", st.Entries),
		slog.Int("live", st.Live),
		slog.Int64("hits", st.Hits),
	)
}
