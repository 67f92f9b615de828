package render

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

// SQLiteCache persists rendered pages across runs.
type SQLiteCache struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLiteCache opens (creating if needed) a page cache at path.
func NewSQLiteCache(path string, ttl time.Duration, logger *slog.Logger) (*SQLiteCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// WAL + busy timeout to avoid "database is locked" under concurrent fetches.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS pages(
	  key          TEXT PRIMARY KEY,
	  url          TEXT    NOT NULL,
	  html         TEXT    NOT NULL,
	  status       INTEGER NOT NULL,
	  retrieved_at INTEGER NOT NULL,
	  load_ms      INTEGER NOT NULL,
	  method       TEXT    NOT NULL,
	  stored_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pages_stored ON pages(stored_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create page cache table: %w", err)
	}
	return &SQLiteCache{db: db, ttl: ttl, now: time.Now, logger: logger}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (*RenderedPage, bool) {
	var (
		p                 RenderedPage
		retrieved, loadMS int64
		storedAt          int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT url, html, status, retrieved_at, load_ms, method, stored_at FROM pages WHERE key = ?`, key).
		Scan(&p.URL, &p.HTML, &p.Status, &retrieved, &loadMS, &p.Method, &storedAt)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(time.UnixMilli(storedAt)) >= c.ttl {
		return nil, false
	}
	p.RetrievedAt = time.UnixMilli(retrieved).UTC()
	p.LoadTime = time.Duration(loadMS) * time.Millisecond
	p.FromCache = true
	return &p, true
}

func (c *SQLiteCache) Put(ctx context.Context, key string, page *RenderedPage) {
	if page == nil {
		return
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pages(key, url, html, status, retrieved_at, load_ms, method, stored_at) VALUES(?,?,?,?,?,?,?,?)`,
		key, page.URL, page.HTML, page.Status, page.RetrievedAt.UnixMilli(), page.LoadTime.Milliseconds(), page.Method, c.now().UnixMilli())
	if err != nil {
		c.logger.Warn("page cache write failed", "url", page.URL, "err", err)
	}
}

// Prune deletes expired rows and returns how many were removed.
func (c *SQLiteCache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM pages WHERE stored_at < ?`, c.now().Add(-c.ttl).UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) Close() error { return c.db.Close() }
