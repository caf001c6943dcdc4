package spacetraveling

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/prismic"
)

// fakeSource serves posts from memory. Cursors are the offset of the next
// item.
type fakeSource struct {
	mu        sync.Mutex
	posts     []feed.PostBody
	err       error
	listCalls int
	getCalls  int
	refs      []string
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) ListPosts(ctx context.Context, pageSize int, cursor string) (feed.PostFeedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.refs = append(f.refs, prismic.RefFrom(ctx))
	if f.err != nil {
		return feed.PostFeedPage{}, f.err
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(f.posts) {
			return feed.PostFeedPage{}, fmt.Errorf("%w: cursor %q", feed.ErrMalformedPage, cursor)
		}
		start = n
	}
	end := min(start+pageSize, len(f.posts))
	var page feed.PostFeedPage
	for _, p := range f.posts[start:end] {
		page.Items = append(page.Items, p.Summary())
	}
	if end < len(f.posts) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeSource) GetPostBySlug(ctx context.Context, slug string) (feed.PostBody, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	f.refs = append(f.refs, prismic.RefFrom(ctx))
	if f.err != nil {
		return feed.PostBody{}, f.err
	}
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return feed.PostBody{}, fmt.Errorf("%w: %s", feed.ErrNotFound, slug)
}

func (f *fakeSource) ListAllSlugs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	slugs := make([]string, 0, len(f.posts))
	for _, p := range f.posts {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

func (f *fakeSource) calls() (list, get int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.getCalls
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palavra ", n))
}

// newFakeSource returns five posts, post-1 newest. post-1 has 250 words.
func newFakeSource() *fakeSource {
	f := &fakeSource{}
	for i := 1; i <= 5; i++ {
		f.posts = append(f.posts, feed.PostBody{
			Slug:        "post-" + strconv.Itoa(i),
			Title:       "Post " + strconv.Itoa(i),
			Subtitle:    "Subtítulo " + strconv.Itoa(i),
			Author:      "Joseph Oliveira",
			PublishedAt: at(20 - i),
			Banner:      "https://images.prismic.io/banner.png",
			Sections: []feed.Section{{
				Heading:    "Introdução",
				Paragraphs: []string{words(249)},
			}},
		})
	}
	return f
}
