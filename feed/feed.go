// Package feed holds the content model of the blog and the two pieces of
// logic that operate on it: "load more" pagination over a cursor-based
// content source and reading-time estimation.
package feed

import (
	"context"
	"time"

	"github.com/eringen/spacetraveling/richtext"
)

// PostSummary is a listing entry. ID is unique within a feed and doubles as
// the post slug.
type PostSummary struct {
	ID          string
	PublishedAt *time.Time
	Title       string
	Subtitle    string
	Author      string
}

// PostFeedPage is one page of a feed. An empty NextCursor means there are no
// further pages.
type PostFeedPage struct {
	Items      []PostSummary
	NextCursor string
}

// PostBody is a full post as rendered on its own page.
type PostBody struct {
	Slug        string
	Title       string
	Subtitle    string
	Author      string
	PublishedAt *time.Time
	Banner      string // image URL
	Sections    []Section
}

// Summary returns the listing entry for the post.
func (p PostBody) Summary() PostSummary {
	return PostSummary{
		ID:          p.Slug,
		PublishedAt: p.PublishedAt,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Author:      p.Author,
	}
}

// Section is a heading followed by its paragraphs. Blocks, when present, is
// the structured rich text Paragraphs were derived from and is only used for
// rendering.
type Section struct {
	Heading    string
	Paragraphs []string
	Blocks     []richtext.Block
}

// ContentSource is the headless CMS the site reads from.
type ContentSource interface {
	// ListPosts returns a page of summaries, newest first. An empty cursor
	// requests the first page.
	ListPosts(ctx context.Context, pageSize int, cursor string) (PostFeedPage, error)

	// GetPostBySlug returns ErrNotFound when no post has the slug.
	GetPostBySlug(ctx context.Context, slug string) (PostBody, error)

	ListAllSlugs(ctx context.Context) ([]string, error)
}

// PageFetcher adapts src to a FetchFunc with a fixed page size.
func PageFetcher(src ContentSource, pageSize int) FetchFunc {
	return func(ctx context.Context, cursor string) (PostFeedPage, error) {
		return src.ListPosts(ctx, pageSize, cursor)
	}
}
