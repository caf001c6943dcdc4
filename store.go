package spacetraveling

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/feed"
)

// Store is a local SQLite snapshot of the CMS. It implements
// feed.ContentSource so the site can be served or built without reaching
// Prismic; the sync command fills it.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the server read while sync writes; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    subtitle TEXT NOT NULL,
    author TEXT NOT NULL,
    published_at TEXT NOT NULL DEFAULT '',
    banner TEXT NOT NULL,
    sections TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_listing ON posts (published_at DESC, slug DESC);
`)
	return err
}

// Posts are listed newest first. Posts without a publication date sort last
// (stored as ''). The cursor is the (published_at, slug) key of the last
// item of the previous page.

// storeTime is fixed width so stored timestamps sort chronologically as text.
const storeTime = "2006-01-02T15:04:05.000000000Z"

func encodeCursor(publishedAt, slug string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(publishedAt + "\x00" + slug))
}

func decodeCursor(cursor string) (publishedAt, slug string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid cursor %q", feed.ErrMalformedPage, cursor)
	}
	publishedAt, slug, ok := strings.Cut(string(raw), "\x00")
	if !ok || slug == "" {
		return "", "", fmt.Errorf("%w: invalid cursor %q", feed.ErrMalformedPage, cursor)
	}
	return publishedAt, slug, nil
}

func formatStoreTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(storeTime)
}

func parseStoreTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(storeTime, s)
	if err != nil {
		return nil
	}
	return &t
}

// ListPosts implements feed.ContentSource.
func (s *Store) ListPosts(ctx context.Context, pageSize int, cursor string) (feed.PostFeedPage, error) {
	if pageSize <= 0 {
		return feed.PostFeedPage{}, fmt.Errorf("spacetraveling: invalid page size %d", pageSize)
	}
	var rows *sql.Rows
	var err error
	if cursor == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT slug, title, subtitle, author, published_at FROM posts
ORDER BY published_at DESC, slug DESC LIMIT ?`, pageSize+1)
	} else {
		publishedAt, slug, derr := decodeCursor(cursor)
		if derr != nil {
			return feed.PostFeedPage{}, derr
		}
		rows, err = s.db.QueryContext(ctx, `SELECT slug, title, subtitle, author, published_at FROM posts
WHERE (published_at, slug) < (?, ?)
ORDER BY published_at DESC, slug DESC LIMIT ?`, publishedAt, slug, pageSize+1)
	}
	if err != nil {
		return feed.PostFeedPage{}, fmt.Errorf("%w: %v", feed.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var items []feed.PostSummary
	var keys []string
	for rows.Next() {
		var p feed.PostSummary
		var publishedAt string
		if err := rows.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Author, &publishedAt); err != nil {
			return feed.PostFeedPage{}, err
		}
		p.PublishedAt = parseStoreTime(publishedAt)
		items = append(items, p)
		keys = append(keys, publishedAt)
	}
	if err := rows.Err(); err != nil {
		return feed.PostFeedPage{}, fmt.Errorf("%w: %v", feed.ErrSourceUnavailable, err)
	}

	page := feed.PostFeedPage{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		last := pageSize - 1
		page.NextCursor = encodeCursor(keys[last], items[last].ID)
	}
	return page, nil
}

// GetPostBySlug implements feed.ContentSource.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (feed.PostBody, error) {
	var title, subtitle, author, publishedAt, banner, sections string
	err := s.db.QueryRowContext(ctx, `SELECT title, subtitle, author, published_at, banner, sections FROM posts WHERE slug = ?`, slug).
		Scan(&title, &subtitle, &author, &publishedAt, &banner, &sections)
	if errors.Is(err, sql.ErrNoRows) {
		return feed.PostBody{}, fmt.Errorf("%w: %s", feed.ErrNotFound, slug)
	}
	if err != nil {
		return feed.PostBody{}, fmt.Errorf("%w: %v", feed.ErrSourceUnavailable, err)
	}
	post := feed.PostBody{
		Slug:        slug,
		Title:       title,
		Subtitle:    subtitle,
		Author:      author,
		PublishedAt: parseStoreTime(publishedAt),
		Banner:      banner,
	}
	if err := json.Unmarshal([]byte(sections), &post.Sections); err != nil {
		return feed.PostBody{}, fmt.Errorf("%w: sections of %s: %v", feed.ErrMalformedPage, slug, err)
	}
	return post, nil
}

// ListAllSlugs implements feed.ContentSource.
func (s *Store) ListAllSlugs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug FROM posts ORDER BY published_at DESC, slug DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// SavePost upserts a post.
func (s *Store) SavePost(ctx context.Context, p feed.PostBody) error {
	if p.Slug == "" {
		return errors.New("spacetraveling: post has no slug")
	}
	sections, err := json.Marshal(p.Sections)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO posts (slug, title, subtitle, author, published_at, banner, sections) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Subtitle, p.Author, formatStoreTime(p.PublishedAt), p.Banner, string(sections))
	return err
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE slug = ?`, slug)
	return err
}
