package main

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/prms/portal/internal/config"
	"github.com/prms/portal/internal/domain/account"
	"github.com/prms/portal/internal/domain/dashboard"
	"github.com/prms/portal/internal/domain/patients"
	"github.com/prms/portal/internal/domain/records"
	"github.com/prms/portal/internal/domain/staff"
	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/db"
	"github.com/prms/portal/internal/platform/middleware"
	"github.com/prms/portal/internal/platform/session"
	"github.com/prms/portal/internal/platform/web"
)

const maxFormBody = "64K"

type server struct {
	echo     *echo.Echo
	sessions *session.Manager
}

// newServer assembles the portal: one API gateway, one session manager and
// every page mounted on a single echo instance.
func newServer(cfg *config.Config, logger zerolog.Logger, backend *credentialBackend) (*server, error) {
	api, err := apiclient.New(cfg.APIBaseURL, session.ContextTokens{},
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithLogger(logger.With().Str("component", "apiclient").Logger()),
	)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(backend.store, session.NewAuthClient(api), logger, cfg.SessionIdleTTL)

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = web.HTTPErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.BodyLimit(maxFormBody))
	e.Use(echomw.GzipWithConfig(echomw.GzipConfig{Skipper: auth.PublicSkipper}))
	if cfg.CSRFEnabled {
		e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
			Skipper:        auth.PublicSkipper,
			TokenLookup:    "form:" + web.CSRFFormField,
			ContextKey:     web.CSRFContextKey,
			CookieName:     "prms_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   cfg.TLSEnabled,
			CookieSameSite: http.SameSiteLaxMode,
		}))
	}
	e.Use(sessions.Middleware(session.CookieConfig{
		Name:    cfg.SessionCookieName,
		Secure:  cfg.TLSEnabled,
		MaxAge:  cfg.SessionCookieAge,
		Skipper: auth.PublicSkipper,
	}))

	e.GET("/health", db.HealthHandler(backend.checks, func() any {
		stats := map[string]any{"store": cfg.CredentialStore, "live_sessions": sessions.Len()}
		if backend.pool != nil {
			stats["pool"] = db.GetPoolStats(backend.pool)
		}
		return stats
	}))

	require := auth.NewRequireRole(session.GuardState, web.GuardViews{})

	account.NewHandler(account.NewService(api), logger).
		RegisterRoutes(e, middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	dashboard.NewHandler().RegisterRoutes(e, require)
	records.NewHandler(records.NewService(api)).RegisterRoutes(e, require)
	patients.NewHandler(patients.NewService(api)).RegisterRoutes(e, require)
	staff.NewHandler(staff.NewService(api)).RegisterRoutes(e, require)

	return &server{echo: e, sessions: sessions}, nil
}
