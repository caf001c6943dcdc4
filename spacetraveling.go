// Package spacetraveling is a blog front-end for posts stored in a Prismic
// repository. It serves a paginated listing and post pages with Echo and
// templ, and can export the same pages as a static site.
//
// Templates are replaceable through ViewFuncs; the defaults live in the
// views package.
package spacetraveling

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

// ViewFuncs holds the components the handlers render. This is the
// inversion-of-control mechanism that lets users own the markup.
type ViewFuncs struct {
	Home           func(site views.Site, page views.HomePage) templ.Component
	PostList       func(site views.Site, items []feed.PostSummary, moreURL string) templ.Component
	LoadMoreFailed func(site views.Site, moreURL string) templ.Component
	Post           func(site views.Site, page views.PostPage) templ.Component
	NotFound       func(site views.Site) templ.Component
	ServerError    func(site views.Site) templ.Component
}

// DefaultViews returns the components of the views package.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           views.Home,
		PostList:       views.PostList,
		LoadMoreFailed: views.LoadMoreFailed,
		Post:           views.Post,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
	}
}

// App is the central application. It wires together the content source,
// cache, handlers, middleware, and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Source feed.ContentSource
	Cache  *PostCache
	Views  ViewFuncs

	limiter      *RequestLimiter
	customRoutes []func(*App)
	staticDir    string
	closeSource  func() error
	ready        bool
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  DefaultViews(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// OpenSource creates the content source selected by cfg.Source. The returned
// function releases it.
func OpenSource(cfg SiteConfig) (feed.ContentSource, func() error, error) {
	switch cfg.Source {
	case SourcePrismic, "":
		if cfg.PrismicEndpoint == "" {
			return nil, nil, errors.New("spacetraveling: PrismicEndpoint is required")
		}
		c, err := prismic.NewClient(cfg.PrismicEndpoint,
			prismic.WithAccessToken(cfg.PrismicAccessToken),
			prismic.WithHTTPClient(&http.Client{Timeout: cfg.PrismicTimeout}),
		)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	case SourceSQLite:
		s, err := NewStore(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("spacetraveling: unknown source %q", cfg.Source)
	}
}

// prepare opens the content source and the cache.
func (a *App) prepare() error {
	a.Echo.Logger.SetLevel(parseLevel(a.Config.LogLevel))
	log.SetLevel(parseLevel(a.Config.LogLevel))

	if a.Source == nil {
		src, closeFn, err := OpenSource(a.Config)
		if err != nil {
			return fmt.Errorf("spacetraveling: init source: %w", err)
		}
		a.Source = src
		a.closeSource = closeFn
	}
	if a.Cache == nil {
		a.Cache = NewPostCache(a.Source, a.Config.PageSize, a.Config.PostCacheTTL)
	}
	return nil
}

// Setup initializes the source, cache, middleware and routes without
// listening. It is safe to call more than once.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.prepare(); err != nil {
		return err
	}
	a.limiter = NewRequestLimiter(60, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets the app up and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded assets first, then the user's static dir for anything else.
	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	assetHandler := http.StripPrefix("/public/", http.FileServer(http.FS(assets)))
	for _, name := range []string{"style.css", "loadmore.js", "logo.svg"} {
		e.GET("/public/"+name, echo.WrapHandler(assetHandler))
	}
	if a.staticDir != "" {
		e.Static("/public", a.staticDir)
	}

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/posts/more/", a.handleMore, a.limitWith(a.moreLimited))
	e.GET("/post/:slug/", a.handlePost)
	e.GET("/posts/:slug/", handlePostRedirect)

	if a.previewEnabled() {
		e.GET("/api/preview/", a.handlePreview, a.rateLimit)
		e.GET("/api/exit-preview/", handleExitPreview)
	}
	if a.Config.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// Close releases the content source and background workers. Call it when
// the app is shutting down.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.closeSource != nil {
		return a.closeSource()
	}
	return nil
}

func parseLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
