package spacetraveling

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/views"
)

// moreURL is the fragment URL that loads the page after acc, or "" when the
// feed is exhausted.
func moreURL(acc feed.Accumulator) string {
	if !acc.HasMore() {
		return ""
	}
	return "/posts/more/?cursor=" + url.QueryEscape(acc.Cursor)
}

// firstPage reads the cached first page, or the source directly while
// previewing.
func (a *App) firstPage(c echo.Context) (feed.PostFeedPage, error) {
	ctx := c.Request().Context()
	if isPreview(c) {
		return a.Source.ListPosts(ctx, a.Config.PageSize, "")
	}
	return a.Cache.FirstPage(ctx)
}

func (a *App) post(c echo.Context, slug string) (views.PostPage, error) {
	ctx := c.Request().Context()
	if isPreview(c) {
		return loadPost(ctx, a.Source, slug)
	}
	return a.Cache.Post(ctx, slug)
}

func (a *App) handleHome(c echo.Context) error {
	page, err := a.firstPage(c)
	if err != nil {
		return err
	}
	acc := feed.Initialize(page)
	return Render(c, a.Views.Home(a.Config.Site(), views.HomePage{
		Items:   acc.Items,
		MoreURL: moreURL(acc),
	}))
}

// handleMore returns the cards of the page after ?cursor= and the control
// that loads the one after it. The listing keeps its accumulated items in
// the document, so the response carries only the new ones.
func (a *App) handleMore(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if cursor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing cursor")
	}
	acc := feed.Accumulator{Cursor: cursor}
	next, err := feed.LoadMore(c.Request().Context(), acc, feed.PageFetcher(a.Source, a.Config.PageSize))
	switch {
	case errors.Is(err, feed.ErrSourceUnavailable):
		c.Logger().Warnf("load more: %v", err)
		return RenderStatus(c, http.StatusBadGateway, a.Views.LoadMoreFailed(a.Config.Site(), moreURL(acc)))
	case errors.Is(err, feed.ErrMalformedPage):
		c.Logger().Warnf("load more: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
	case err != nil:
		return err
	}
	return Render(c, a.Views.PostList(a.Config.Site(), next.Items, moreURL(next)))
}

// moreLimited answers a rate-limited "load more" with a retry control for
// the same page.
func (a *App) moreLimited(c echo.Context) error {
	retry := moreURL(feed.Accumulator{Cursor: c.QueryParam("cursor")})
	return RenderStatus(c, http.StatusTooManyRequests, a.Views.LoadMoreFailed(a.Config.Site(), retry))
}

func (a *App) handlePost(c echo.Context) error {
	page, err := a.post(c, c.Param("slug"))
	if errors.Is(err, feed.ErrNotFound) {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config.Site()))
	}
	if err != nil {
		return err
	}
	return Render(c, a.Views.Post(a.Config.Site(), page))
}

// handlePostRedirect sends the old /posts/:slug/ URLs to /post/:slug/.
func handlePostRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, views.PostPath(c.Param("slug")))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return writeSitemap(c.Response(), a.Config.URL, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return writeRSS(c.Response(), a.Config, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	data, err := a.robotsTxt()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, data)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	site := a.Config.Site()
	if errors.Is(err, feed.ErrNotFound) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(site))
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
