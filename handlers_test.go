package spacetraveling

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/eringen/spacetraveling/feed"
)

func newTestApp(t *testing.T, src *fakeSource, cfg SiteConfig) *App {
	t.Helper()
	if cfg.URL == "" {
		cfg.URL = "https://blog.example.com"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 2
	}
	a := New(cfg, WithSource(src))
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func serve(a *App, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func cardSlugs(doc *goquery.Document) []string {
	var slugs []string
	doc.Find("a.post-card").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		slugs = append(slugs, strings.Trim(strings.TrimPrefix(href, "/post/"), "/"))
	})
	return slugs
}

func TestHandleHome(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	rec := serve(a, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=1800" {
		t.Errorf("Cache-Control = %q", cc)
	}
	doc := parseHTML(t, rec)
	if got := doc.Find("title").Text(); got != "Posts | spacetraveling" {
		t.Errorf("title = %q", got)
	}
	if got := cardSlugs(doc); strings.Join(got, ",") != "post-1,post-2" {
		t.Errorf("cards = %v", got)
	}
	btn := doc.Find("a.load-posts-button")
	if btn.Text() != "Carregar mais posts" {
		t.Errorf("button text = %q", btn.Text())
	}
	if href, _ := btn.Attr("href"); href != "/posts/more/?cursor=2" {
		t.Errorf("button href = %q", href)
	}
}

func TestHandleHomeWithoutMorePages(t *testing.T) {
	src := newFakeSource()
	src.posts = src.posts[:2]
	a := newTestApp(t, src, SiteConfig{})
	doc := parseHTML(t, serve(a, "/"))
	if doc.Find("a.load-posts-button").Length() != 0 {
		t.Error("load more button shown for a single page")
	}
}

func TestHandleMoreWalksTheFeed(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})

	rec := serve(a, "/posts/more/?cursor=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	doc := parseHTML(t, rec)
	if got := cardSlugs(doc); strings.Join(got, ",") != "post-3,post-4" {
		t.Errorf("cards = %v", got)
	}
	href, _ := doc.Find("a.load-posts-button").Attr("href")
	if href != "/posts/more/?cursor=4" {
		t.Fatalf("next href = %q", href)
	}

	doc = parseHTML(t, serve(a, href))
	if got := cardSlugs(doc); strings.Join(got, ",") != "post-5" {
		t.Errorf("cards = %v", got)
	}
	if doc.Find("a.load-posts-button").Length() != 0 {
		t.Error("load more button shown on the last page")
	}
}

func TestHandleMoreErrors(t *testing.T) {
	src := newFakeSource()
	a := newTestApp(t, src, SiteConfig{})

	if rec := serve(a, "/posts/more/"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing cursor: status = %d", rec.Code)
	}
	if rec := serve(a, "/posts/more/?cursor=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad cursor: status = %d", rec.Code)
	}

	src.setErr(fmt.Errorf("%w: timeout", feed.ErrSourceUnavailable))
	rec := serve(a, "/posts/more/?cursor=2")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	doc := parseHTML(t, rec)
	if doc.Find(".load-error").Length() != 1 {
		t.Error("missing error message")
	}
	if href, _ := doc.Find("a.load-posts-button").Attr("href"); href != "/posts/more/?cursor=2" {
		t.Errorf("retry href = %q", href)
	}
}

func TestHandlePost(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	rec := serve(a, "/post/post-1/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	doc := parseHTML(t, rec)
	if got := doc.Find("article h1").Text(); got != "Post 1" {
		t.Errorf("h1 = %q", got)
	}
	if got := doc.Find(".reading-time").Text(); got != "2 min" {
		t.Errorf("reading time = %q", got)
	}
	if got := doc.Find(".post-info time").Text(); !strings.HasPrefix(got, "19 ") || !strings.HasSuffix(got, " 2021") {
		t.Errorf("date = %q", got)
	}
	ld := doc.Find(`script[type="application/ld+json"]`).Text()
	if !strings.Contains(ld, `"wordCount":250`) || !strings.Contains(ld, `"timeRequired":"PT2M"`) {
		t.Errorf("json-ld = %s", ld)
	}
}

func TestHandlePostNotFound(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	rec := serve(a, "/post/missing/")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := parseHTML(t, rec).Find("main h1").Text(); got != "404" {
		t.Errorf("heading = %q", got)
	}
}

func TestHandlePostSourceFailure(t *testing.T) {
	src := newFakeSource()
	a := newTestApp(t, src, SiteConfig{})
	src.setErr(fmt.Errorf("%w: down", feed.ErrSourceUnavailable))
	rec := serve(a, "/post/post-1/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := parseHTML(t, rec).Find("main h1").Text(); got != "500" {
		t.Errorf("heading = %q", got)
	}
}

func TestRedirects(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	tests := []struct {
		target, location string
	}{
		{"/posts/post-1/", "/post/post-1/"},
		{"/post/post-1", "/post/post-1/"},
	}
	for _, tt := range tests {
		rec := serve(a, tt.target)
		if rec.Code != http.StatusMovedPermanently {
			t.Errorf("%s: status = %d", tt.target, rec.Code)
			continue
		}
		if loc := rec.Header().Get("Location"); loc != tt.location {
			t.Errorf("%s: Location = %q, want %q", tt.target, loc, tt.location)
		}
	}
}

func TestHandleFeed(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	rec := serve(a, "/feed.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	parsed, err := gofeed.NewParser().ParseString(rec.Body.String())
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if parsed.Title != "spacetraveling" {
		t.Errorf("title = %q", parsed.Title)
	}
	if len(parsed.Items) != 5 {
		t.Fatalf("got %d items, want 5", len(parsed.Items))
	}
	if parsed.Items[0].Link != "https://blog.example.com/post/post-1/" {
		t.Errorf("first link = %q", parsed.Items[0].Link)
	}
	if parsed.Items[0].PublishedParsed == nil {
		t.Error("first item has no publication date")
	}
}

func TestHandleSitemap(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	rec := serve(a, "/sitemap.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<loc>https://blog.example.com</loc>",
		"<loc>https://blog.example.com/post/post-5/</loc>",
		"<lastmod>2021-03-19</lastmod>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("sitemap missing %s", want)
		}
	}
}

func TestEmbeddedAssets(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	for _, path := range []string{"/public/style.css", "/public/loadmore.js", "/public/logo.svg"} {
		rec := serve(a, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestPreviewDisabledWithoutSecret(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	if rec := serve(a, "/api/preview/?token=https://repo.prismic.io/previews/abc"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPreviewMode(t *testing.T) {
	src := newFakeSource()
	a := newTestApp(t, src, SiteConfig{SessionSecret: "test-secret"})
	const token = "https://repo.prismic.io/previews/abc"

	if rec := serve(a, "/api/preview/?token=not-a-url"); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid token: status = %d", rec.Code)
	}

	rec := serve(a, "/api/preview/?token="+token)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}

	// Warm the cache without the cookie, then read with it.
	serve(a, "/")
	before, _ := src.calls()
	rec = serve(a, "/", cookies...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	after, _ := src.calls()
	if after != before+1 {
		t.Errorf("preview did not bypass the cache: %d -> %d calls", before, after)
	}
	src.mu.Lock()
	last := src.refs[len(src.refs)-1]
	src.mu.Unlock()
	if last != token {
		t.Errorf("ref = %q, want %q", last, token)
	}

	rec = serve(a, "/api/exit-preview/", cookies...)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("exit status = %d", rec.Code)
	}
}

func TestFeedAndSitemapShareCachedPosts(t *testing.T) {
	src := newFakeSource()
	a := newTestApp(t, src, SiteConfig{})
	for i := 0; i < 3; i++ {
		for _, path := range []string{"/feed.xml", "/sitemap.xml"} {
			if rec := serve(a, path); rec.Code != http.StatusOK {
				t.Fatalf("%s: status = %d", path, rec.Code)
			}
		}
	}
	if list, _ := src.calls(); list != 1 {
		t.Errorf("ListPosts called %d times, want 1", list)
	}
}

func TestErrorResponsesAreNotCached(t *testing.T) {
	src := newFakeSource()
	a := newTestApp(t, src, SiteConfig{})

	tests := []struct {
		target string
		code   int
	}{
		{"/post/missing/", http.StatusNotFound},
		{"/posts/more/", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := serve(a, tt.target)
		if rec.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.target, rec.Code, tt.code)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("%s: Cache-Control = %q", tt.target, cc)
		}
	}

	src.setErr(fmt.Errorf("%w: down", feed.ErrSourceUnavailable))
	for _, target := range []string{"/posts/more/?cursor=2", "/post/post-1/", "/"} {
		rec := serve(a, target)
		if rec.Code < 500 {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("%s: Cache-Control = %q", target, cc)
		}
	}
}

func TestHandleRobots(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	rec := serve(a, "/robots.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Sitemap: https://blog.example.com/sitemap.xml") {
		t.Errorf("body = %q", rec.Body.String())
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "robots.txt"), []byte("User-agent: *\nDisallow: /\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	custom := New(SiteConfig{URL: "https://blog.example.com"}, WithSource(newFakeSource()), WithStaticDir(dir))
	if err := custom.Setup(); err != nil {
		t.Fatal(err)
	}
	defer custom.Close()
	rec = serve(custom, "/robots.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "User-agent: *\nDisallow: /\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleMoreRateLimitedOffersRetry(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{})
	a.limiter.Stop()
	a.limiter = NewRequestLimiter(1, time.Minute)

	if rec := serve(a, "/posts/more/?cursor=2"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	rec := serve(a, "/posts/more/?cursor=2")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	doc := parseHTML(t, rec)
	if href, _ := doc.Find("a.load-posts-button").Attr("href"); href != "/posts/more/?cursor=2" {
		t.Errorf("retry href = %q", href)
	}
}

func TestPreviewDisabledForSQLiteSource(t *testing.T) {
	a := newTestApp(t, newFakeSource(), SiteConfig{SessionSecret: "test-secret", Source: SourceSQLite})
	if rec := serve(a, "/api/preview/?token=https://repo.prismic.io/previews/abc"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRequestLogRecordsErrorStatus(t *testing.T) {
	src := newFakeSource()
	a := newTestApp(t, src, SiteConfig{})
	var logs bytes.Buffer
	a.Echo.Logger.SetOutput(&logs)

	src.setErr(fmt.Errorf("%w: down", feed.ErrSourceUnavailable))
	serve(a, "/post/post-1/")
	if !strings.Contains(logs.String(), "GET /post/post-1/ -> 500") {
		t.Errorf("log = %s", logs.String())
	}
}
