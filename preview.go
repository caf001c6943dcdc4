package spacetraveling

import (
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/prismic"
)

// Preview mode: a Prismic preview link opens /api/preview/?token=<ref>. The
// ref is kept in a signed cookie session and every content query of that
// browser runs against it, bypassing the cache.

const (
	sessionName   = "preview_session"
	previewRefKey = "preview_ref"
	previewCtxKey = "preview"
)

// previewEnabled reports whether preview routes are served. Only Prismic
// understands preview refs.
func (a *App) previewEnabled() bool {
	return a.Config.SessionSecret != "" && a.Config.Source == SourcePrismic
}

func (a *App) sessionMiddleware() echo.MiddlewareFunc {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   30 * 60,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return session.Middleware(store)
}

// previewMiddleware attaches the session's preview ref to the request
// context.
func previewMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(sessionName, c)
		if err == nil {
			if ref, ok := sess.Values[previewRefKey].(string); ok && ref != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(prismic.WithRef(req.Context(), ref)))
				c.Set(previewCtxKey, true)
			}
		}
		return next(c)
	}
}

// isPreview reports whether the request runs against a preview ref.
func isPreview(c echo.Context) bool {
	v, _ := c.Get(previewCtxKey).(bool)
	return v
}

func (a *App) handlePreview(c echo.Context) error {
	token := c.QueryParam("token")
	u, err := url.Parse(token)
	if token == "" || err != nil || u.Scheme != "https" || u.Host == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid preview token")
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[previewRefKey] = token
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	c.Logger().Infof("preview started for %s", c.RealIP())
	return c.Redirect(http.StatusSeeOther, "/")
}

func handleExitPreview(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, previewRefKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
