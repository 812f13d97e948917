package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prms/portal/internal/platform/auth"
)

// GuardViews renders the loading and access-denied pages for auth.Guard.
type GuardViews struct{}

var _ auth.Views = GuardViews{}

// Loading answers 200 and reloads the same URL shortly, by which time the
// session bootstrap has normally finished.
func (GuardViews) Loading(c echo.Context) error {
	p := NewPage(c, "Loading", nil)
	p.Refresh = &Refresh{Seconds: 1, URL: c.Request().URL.RequestURI()}
	return c.Render(http.StatusOK, "loading", p)
}

func (GuardViews) Denied(c echo.Context, role auth.Role) error {
	return c.Render(http.StatusForbidden, "denied", NewPage(c, "Access Denied", role))
}

// NotFound renders the fallback page for unknown paths.
func NotFound(c echo.Context) error {
	return c.Render(http.StatusNotFound, "notfound", NewPage(c, "Page Not Found", nil))
}

// HTTPErrorHandler renders echo errors as portal pages. Unknown routes get
// the not-found page; anything else gets the generic error page.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "Something went wrong."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok && code < 500 {
				msg = m
			}
		}
		if code >= 500 {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		var renderErr error
		switch {
		case c.Request().Method == http.MethodHead:
			renderErr = c.NoContent(code)
		case code == http.StatusNotFound:
			renderErr = NotFound(c)
		default:
			renderErr = c.Render(code, "error", NewPage(c, http.StatusText(code), msg))
		}
		if renderErr != nil {
			logger.Error().Err(renderErr).Msg("render error page")
			_ = c.String(code, msg)
		}
	}
}
