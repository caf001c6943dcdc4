package views

import "github.com/eringen/spacetraveling/feed"

// Site holds site-wide settings. Every component receives it so nothing is
// hardcoded.
type Site struct {
	Name        string // e.g. "spacetraveling"
	URL         string // canonical base URL
	Description string
	Author      string
	Locale      string // monday locale, e.g. "pt_BR"
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image
	JSONLD      string
}

// HomePage is the listing: the accumulated summaries and the URL of the next
// fragment, empty when the feed is exhausted.
type HomePage struct {
	Items   []feed.PostSummary
	MoreURL string
}

// PostPage is a single post with its precomputed reading time.
type PostPage struct {
	Post           feed.PostBody
	ReadingMinutes int
	WordCount      int
}
