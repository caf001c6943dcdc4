package spacetraveling

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/gommon/log"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/views"
)

// ExportResult summarizes a static build.
type ExportResult struct {
	Posts     int
	Fragments int
}

// staticMoreURL is the URL of the n-th pre-rendered "load more" fragment.
func staticMoreURL(n int) string {
	return "/posts/more/" + strconv.Itoa(n) + "/"
}

// Export renders the whole site into dir: the listing, one fragment per
// further listing page, every post page, the feeds and the assets. The
// output can be served by any static file server.
func (a *App) Export(ctx context.Context, dir string) (ExportResult, error) {
	var res ExportResult
	if err := a.prepare(); err != nil {
		return res, err
	}
	site := a.Config.Site()
	fetch := feed.PageFetcher(a.Source, a.Config.PageSize)

	first, err := fetch(ctx, "")
	if err != nil {
		return res, fmt.Errorf("spacetraveling: first page: %w", err)
	}
	acc := feed.Initialize(first)
	home := views.HomePage{Items: acc.Items}
	if acc.HasMore() {
		home.MoreURL = staticMoreURL(1)
	}
	if err := writeComponent(ctx, filepath.Join(dir, "index.html"), a.Views.Home(site, home)); err != nil {
		return res, err
	}

	// Each fragment holds the items one LoadMore added and links to the next.
	for n := 1; acc.HasMore(); n++ {
		prev := acc
		acc, err = feed.LoadMore(ctx, prev, fetch)
		if err != nil {
			return res, fmt.Errorf("spacetraveling: listing page %d: %w", n+1, err)
		}
		if acc.Cursor == prev.Cursor {
			return res, fmt.Errorf("%w: cursor %q did not advance", feed.ErrMalformedPage, prev.Cursor)
		}
		next := ""
		if acc.HasMore() {
			next = staticMoreURL(n + 1)
		}
		path := filepath.Join(dir, "posts", "more", strconv.Itoa(n), "index.html")
		if err := writeComponent(ctx, path, a.Views.PostList(site, acc.Items[len(prev.Items):], next)); err != nil {
			return res, err
		}
		res.Fragments++
	}

	for _, p := range acc.Items {
		if !safeSlug(p.ID) {
			log.Warnf("export: skipping post with unsafe slug %q", p.ID)
			continue
		}
		page, err := loadPost(ctx, a.Source, p.ID)
		if err != nil {
			return res, fmt.Errorf("spacetraveling: post %s: %w", p.ID, err)
		}
		path := filepath.Join(dir, "post", p.ID, "index.html")
		if err := writeComponent(ctx, path, a.Views.Post(site, page)); err != nil {
			return res, err
		}
		res.Posts++
	}

	if err := writeComponent(ctx, filepath.Join(dir, "404.html"), a.Views.NotFound(site)); err != nil {
		return res, err
	}

	var buf bytes.Buffer
	if err := writeRSS(&buf, a.Config, acc.Items); err != nil {
		return res, err
	}
	if err := writeFile(filepath.Join(dir, "feed.xml"), buf.Bytes()); err != nil {
		return res, err
	}
	buf.Reset()
	if err := writeSitemap(&buf, a.Config.URL, acc.Items); err != nil {
		return res, err
	}
	if err := writeFile(filepath.Join(dir, "sitemap.xml"), buf.Bytes()); err != nil {
		return res, err
	}

	robots, err := a.robotsTxt()
	if err != nil {
		return res, err
	}
	if err := writeFile(filepath.Join(dir, "robots.txt"), robots); err != nil {
		return res, err
	}

	assets, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		return res, err
	}
	if err := copyTree(assets, filepath.Join(dir, "public")); err != nil {
		return res, err
	}
	if a.staticDir != "" {
		if err := copyTree(os.DirFS(a.staticDir), filepath.Join(dir, "public")); err != nil {
			return res, err
		}
	}
	return res, nil
}

// safeSlug reports whether slug can be used as a single path segment.
func safeSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." && filepath.Base(slug) == slug
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func copyTree(src fs.FS, dst string) error {
	return fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(src, path)
		if err != nil {
			return err
		}
		return writeFile(filepath.Join(dst, filepath.FromSlash(path)), data)
	})
}
