package spacetraveling

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/views"
)

// collectPageSize is the page size used when a whole feed is drained.
const collectPageSize = 100

// collectAll lists every post of src, newest first.
func collectAll(ctx context.Context, src feed.ContentSource) ([]feed.PostSummary, error) {
	fetch := feed.PageFetcher(src, collectPageSize)
	first, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	acc, err := feed.Collect(ctx, first, fetch)
	if err != nil {
		return nil, err
	}
	return acc.Items, nil
}

// htmlLangTag turns a locale such as "pt_BR" into the language tag "pt-br".
func htmlLangTag(locale string) string {
	return strings.ToLower(strings.ReplaceAll(locale, "_", "-"))
}

// robotsTxt returns robots.txt from the static dir, or a default that
// allows everything and points at the sitemap.
func (a *App) robotsTxt() ([]byte, error) {
	if a.staticDir != "" {
		data, err := os.ReadFile(filepath.Join(a.staticDir, "robots.txt"))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	sitemap := strings.TrimSuffix(views.BuildURL(a.Config.URL), "/") + "/sitemap.xml"
	return []byte("User-agent: *\nAllow: /\n\nSitemap: " + sitemap + "\n"), nil
}
