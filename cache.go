package spacetraveling

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/views"
)

// PostCache keeps the first listing page and rendered post view models in
// memory for ttl, so pages are regenerated at most once per interval.
// Further listing pages are never cached: their cursors are opaque.
type PostCache struct {
	mu       sync.RWMutex
	first    *feed.PostFeedPage
	fetched  time.Time
	all      []feed.PostSummary
	allAt    time.Time
	posts    map[string]cachedPost
	ttl      time.Duration
	source   feed.ContentSource
	pageSize int
}

type cachedPost struct {
	page    views.PostPage
	fetched time.Time
}

// NewPostCache creates a PostCache backed by the given source.
func NewPostCache(src feed.ContentSource, pageSize int, ttl time.Duration) *PostCache {
	return &PostCache{
		source:   src,
		pageSize: pageSize,
		ttl:      ttl,
		posts:    make(map[string]cachedPost),
	}
}

func (c *PostCache) fresh(t time.Time) bool {
	return time.Since(t) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.first = nil
	c.all = nil
	c.posts = make(map[string]cachedPost)
	c.mu.Unlock()
}

// FirstPage returns the first listing page.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) FirstPage(ctx context.Context) (feed.PostFeedPage, error) {
	c.mu.RLock()
	if c.first != nil && c.fresh(c.fetched) {
		page := *c.first
		c.mu.RUnlock()
		return page, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.first != nil && c.fresh(c.fetched) {
		return *c.first, nil
	}
	page, err := c.source.ListPosts(ctx, c.pageSize, "")
	if err != nil {
		return feed.PostFeedPage{}, err
	}
	c.first = &page
	c.fetched = time.Now()
	return page, nil
}

// AllPosts returns every post summary, newest first. The feed and the
// sitemap read it.
func (c *PostCache) AllPosts(ctx context.Context) ([]feed.PostSummary, error) {
	c.mu.RLock()
	if c.all != nil && c.fresh(c.allAt) {
		all := c.all
		c.mu.RUnlock()
		return all, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.all != nil && c.fresh(c.allAt) {
		return c.all, nil
	}
	all, err := collectAll(ctx, c.source)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []feed.PostSummary{}
	}
	c.all = all
	c.allAt = time.Now()
	return all, nil
}

// Post returns the view model of a post, fetching it on a miss.
// Failed loads are not cached.
func (c *PostCache) Post(ctx context.Context, slug string) (views.PostPage, error) {
	c.mu.RLock()
	cp, ok := c.posts[slug]
	c.mu.RUnlock()
	if ok && c.fresh(cp.fetched) {
		return cp.page, nil
	}

	page, err := loadPost(ctx, c.source, slug)
	if err != nil {
		return views.PostPage{}, err
	}
	c.mu.Lock()
	c.posts[slug] = cachedPost{page: page, fetched: time.Now()}
	c.mu.Unlock()
	return page, nil
}

// loadPost fetches a post and computes its reading time. This is the only
// place reading time is computed.
func loadPost(ctx context.Context, src feed.ContentSource, slug string) (views.PostPage, error) {
	post, err := src.GetPostBySlug(ctx, slug)
	if err != nil {
		return views.PostPage{}, err
	}
	return views.PostPage{
		Post:           post,
		ReadingMinutes: feed.EstimateReadingMinutes(post.Sections),
		WordCount:      feed.WordCount(post.Sections),
	}, nil
}
