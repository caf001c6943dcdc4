// Package views holds the site's HTML components. Every component is a
// templ.Component so the application can render it into an echo response or
// into a file during a static build.
package views

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/richtext"
)

var esc = templ.EscapeString[string]

// component buffers fn's output so a failing component writes nothing.
func component(fn func(ctx context.Context, buf *bytes.Buffer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := fn(ctx, &buf); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Layout wraps body in the HTML document shell.
func Layout(site Site, meta PageMeta, body templ.Component) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<!DOCTYPE html><html lang="` + esc(htmlLang(site.Locale)) + `"><head>`)
		buf.WriteString(`<meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		buf.WriteString(`<title>` + esc(meta.Title) + `</title>`)
		if meta.Description != "" {
			buf.WriteString(`<meta name="description" content="` + esc(meta.Description) + `"/>`)
			buf.WriteString(`<meta property="og:description" content="` + esc(meta.Description) + `"/>`)
		}
		buf.WriteString(`<meta property="og:title" content="` + esc(meta.Title) + `"/>`)
		buf.WriteString(`<meta property="og:site_name" content="` + esc(site.Name) + `"/>`)
		if meta.OGType != "" {
			buf.WriteString(`<meta property="og:type" content="` + esc(meta.OGType) + `"/>`)
		}
		if meta.URL != "" {
			buf.WriteString(`<link rel="canonical" href="` + esc(meta.URL) + `"/>`)
			buf.WriteString(`<meta property="og:url" content="` + esc(meta.URL) + `"/>`)
		}
		if src := richtext.SafeURL(meta.Image); src != "" {
			buf.WriteString(`<meta property="og:image" content="` + src + `"/>`)
		}
		buf.WriteString(`<link rel="alternate" type="application/rss+xml" title="` + esc(site.Name) + `" href="/feed.xml"/>`)
		buf.WriteString(`<link rel="stylesheet" href="/public/style.css"/>`)
		if meta.JSONLD != "" {
			buf.WriteString(`<script type="application/ld+json">` + meta.JSONLD + `</script>`)
		}
		buf.WriteString(`</head><body>`)
		if err := body.Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`<script src="/public/loadmore.js" defer></script></body></html>`)
		return nil
	})
}

// Header is the top bar with the logo linking home.
func Header() templ.Component {
	return component(func(_ context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<header class="header"><div class="header-content"><a href="/"><img src="/public/logo.svg" alt="logo"/></a></div></header>`)
		return nil
	})
}

// Home renders the listing page.
func Home(site Site, page HomePage) templ.Component {
	meta := PageMeta{
		Title:       labelsFor(site.Locale).Posts + " | " + site.Name,
		Description: site.Description,
		URL:         BuildURL(site.URL),
		OGType:      "website",
		JSONLD:      WebsiteJsonLD(site),
	}
	return Layout(site, meta, component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<main class="page-content"><img class="logo" src="/public/logo.svg" alt="logo"/><div class="posts">`)
		if err := PostList(site, page.Items, page.MoreURL).Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`</div></main>`)
		return nil
	}))
}

// PostList renders post cards followed by the "load more" control. It is
// also the fragment returned for each further page: the control it emits
// replaces the one that requested it.
func PostList(site Site, items []feed.PostSummary, moreURL string) templ.Component {
	return component(func(_ context.Context, buf *bytes.Buffer) error {
		for _, p := range items {
			writeCard(buf, site, p)
		}
		if moreURL != "" {
			writeLoadMore(buf, site, moreURL, false)
		}
		return nil
	})
}

// LoadMoreFailed is the fragment returned when the next page could not be
// fetched. It offers the same URL again.
func LoadMoreFailed(site Site, moreURL string) templ.Component {
	return component(func(_ context.Context, buf *bytes.Buffer) error {
		writeLoadMore(buf, site, moreURL, true)
		return nil
	})
}

func writeCard(buf *bytes.Buffer, site Site, p feed.PostSummary) {
	buf.WriteString(`<a class="post-card" href="` + esc(PostPath(p.ID)) + `">`)
	buf.WriteString(`<h1>` + esc(p.Title) + `</h1>`)
	if p.Subtitle != "" {
		buf.WriteString(`<span>` + esc(p.Subtitle) + `</span>`)
	}
	buf.WriteString(`<div class="post-info">`)
	writeDate(buf, site, p.PublishedAt)
	buf.WriteString(`<p class="author">` + esc(p.Author) + `</p></div></a>`)
}

func writeDate(buf *bytes.Buffer, site Site, t *time.Time) {
	if d := FormatDate(t, site.Locale); d != "" {
		buf.WriteString(`<time datetime="` + t.UTC().Format("2006-01-02") + `">` + esc(d) + `</time>`)
	}
}

func writeLoadMore(buf *bytes.Buffer, site Site, moreURL string, failed bool) {
	l := labelsFor(site.Locale)
	buf.WriteString(`<div class="load-more">`)
	label := l.LoadMore
	if failed {
		buf.WriteString(`<p class="load-error">` + esc(l.LoadFailed) + `</p>`)
		label = l.Retry
	}
	buf.WriteString(`<a class="load-posts-button" href="` + esc(moreURL) + `" data-load-more>` + esc(label) + `</a></div>`)
}

// Post renders a post page.
func Post(site Site, page PostPage) templ.Component {
	p := page.Post
	meta := PageMeta{
		Title:       p.Title + " | " + site.Name,
		Description: postDescription(p),
		URL:         BuildURL(site.URL, "post", p.Slug),
		OGType:      "article",
		Image:       p.Banner,
		JSONLD:      BlogPostingJsonLD(site, page),
	}
	l := labelsFor(site.Locale)
	return Layout(site, meta, component(func(ctx context.Context, buf *bytes.Buffer) error {
		if err := Header().Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`<main class="post">`)
		if src := richtext.SafeURL(p.Banner); src != "" {
			buf.WriteString(`<img class="banner" src="` + src + `" alt="post-banner"/>`)
		}
		buf.WriteString(`<article class="page-content"><h1>` + esc(p.Title) + `</h1><div class="post-info">`)
		writeDate(buf, site, p.PublishedAt)
		buf.WriteString(`<p class="author">` + esc(p.Author) + `</p>`)
		buf.WriteString(`<p class="reading-time">` + strconv.Itoa(page.ReadingMinutes) + ` ` + esc(l.Minutes) + `</p></div>`)
		for _, s := range p.Sections {
			buf.WriteString(`<section class="post-content"><h2>` + esc(s.Heading) + `</h2>`)
			if len(s.Blocks) > 0 {
				if err := richtext.Component(s.Blocks).Render(ctx, buf); err != nil {
					return err
				}
			} else {
				for _, para := range s.Paragraphs {
					buf.WriteString(`<p>` + esc(para) + `</p>`)
				}
			}
			buf.WriteString(`</section>`)
		}
		buf.WriteString(`</article></main>`)
		return nil
	}))
}

// postDescription is the subtitle, or the start of the first section when
// the post has none.
func postDescription(p feed.PostBody) string {
	if p.Subtitle != "" || len(p.Sections) == 0 {
		return p.Subtitle
	}
	text := strings.Join(strings.Fields(richtext.AsText(p.Sections[0].Blocks)), " ")
	if r := []rune(text); len(r) > descriptionLimit {
		text = strings.TrimSpace(string(r[:descriptionLimit])) + "…"
	}
	return text
}

const descriptionLimit = 160

// NotFound renders the 404 page.
func NotFound(site Site) templ.Component {
	return message(site, labelsFor(site.Locale).NotFound, "404")
}

// ServerError renders the 500 page.
func ServerError(site Site) templ.Component {
	return message(site, labelsFor(site.Locale).ServerError, "500")
}

func message(site Site, text, code string) templ.Component {
	l := labelsFor(site.Locale)
	meta := PageMeta{Title: fmt.Sprintf("%s | %s", code, site.Name)}
	return Layout(site, meta, component(func(ctx context.Context, buf *bytes.Buffer) error {
		if err := Header().Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`<main class="page-content message"><h1>` + esc(code) + `</h1><p>` + esc(text) + `</p>`)
		buf.WriteString(`<a href="/">` + esc(l.Back) + `</a></main>`)
		return nil
	}))
}
