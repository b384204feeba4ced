// Package store caches raw catalog responses so repeated browsing does not
// go back to the network. Entries are disposable; nothing here is user data.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"

	"github.com/handsomefox/cinebrowse/internal/logger"
)

// SQLiteCache keeps entries in a single SQLite table through bun.
type SQLiteCache struct {
	sqldb  *sql.DB
	db     *bun.DB
	logger *slog.Logger
	now    func() time.Time
}

type entry struct {
	bun.BaseModel `bun:"table:catalog_cache,alias:c"`

	Key       string `bun:"cache_key,pk"`
	Payload   []byte `bun:"payload,notnull"`
	ExpiresAt int64  `bun:"expires_at,notnull"`
	Hits      int64  `bun:"hits,notnull"`
	CreatedAt string `bun:"created_at,notnull"`
}

type Stats struct {
	Entries int   `json:"entries"`
	Live    int   `json:"live"`
	Hits    int64 `json:"hits"`
}

func Open(dbPath string, log *slog.Logger) (*SQLiteCache, error) {
	if dbPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if log == nil {
		log = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqldb.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := sqldb.PingContext(ctx); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("ping db: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if err := initSchema(ctx, sqldb); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	return &SQLiteCache{
		sqldb:  sqldb,
		db:     bdb,
		logger: log.With(slog.String("component", "cache"), slog.String("backend", "sqlite")),
		now:    time.Now,
	}, nil
}

func (c *SQLiteCache) Close() error { return c.sqldb.Close() }

func (c *SQLiteCache) Ping(ctx context.Context) error { return c.sqldb.PingContext(ctx) }

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS catalog_cache (
	cache_key TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_catalog_cache_expires ON catalog_cache(expires_at);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return addColumnIfMissing(ctx, db, "catalog_cache", "hits",
		"ALTER TABLE catalog_cache ADD COLUMN hits INTEGER NOT NULL DEFAULT 0")
}

func addColumnIfMissing(ctx context.Context, db *sql.DB, table, column, statement string) error {
	has, err := hasColumn(ctx, db, table, column)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = db.ExecContext(ctx, statement)
	if err != nil {
		has2, herr := hasColumn(ctx, db, table, column)
		if herr == nil && has2 {
			return nil
		}
	}
	return err
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	//nolint:gosec // table is controlled in this package.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.Null[string]
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Get returns a live entry. Expired rows are removed on read; lookup errors
// are logged and reported as a miss.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool) {
	var e entry
	err := c.db.NewSelect().
		Model(&e).
		Where("cache_key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("cache read failed", slog.String("key", key), logger.Error(err))
		}
		return nil, false
	}

	if c.now().Unix() >= e.ExpiresAt {
		if _, err := c.db.NewDelete().Model((*entry)(nil)).Where("cache_key = ?", key).Exec(ctx); err != nil {
			c.logger.Warn("cache evict failed", slog.String("key", key), logger.Error(err))
		}
		return nil, false
	}

	if _, err := c.db.NewUpdate().
		Model((*entry)(nil)).
		Set("hits = hits + 1").
		Where("cache_key = ?", key).
		Exec(ctx); err != nil {
		c.logger.Debug("cache hit count not updated", logger.Error(err))
	}
	return e.Payload, true
}

func (c *SQLiteCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := c.now()
	e := entry{
		Key:       key,
		Payload:   data,
		ExpiresAt: now.Add(ttl).Unix(),
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	_, err := c.db.NewInsert().
		Model(&e).
		On("CONFLICT (cache_key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Set("hits = 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.NewDelete().
		Model((*entry)(nil)).
		Where("expires_at <= ?", c.now().Unix()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) Clear(ctx context.Context) error {
	_, err := c.db.NewDelete().Model((*entry)(nil)).Where("1 = 1").Exec(ctx)
	return err
}

func (c *SQLiteCache) Stats(ctx context.Context) (out Stats, err error) {
	var row struct {
		Entries int   `bun:"entries"`
		Live    int   `bun:"live"`
		Hits    int64 `bun:"hits"`
	}
	err = c.db.NewSelect().
		Model((*entry)(nil)).
		ColumnExpr("COUNT(*) AS entries").
		ColumnExpr("COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0) AS live", c.now().Unix()).
		ColumnExpr("COALESCE(SUM(hits), 0) AS hits").
		Scan(ctx, &row)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Entries: row.Entries, Live: row.Live, Hits: row.Hits}, nil
}
