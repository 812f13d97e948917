package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/session"
	"github.com/prms/portal/internal/platform/web"
)

const (
	msgRegistered = "Registration successful! Redirecting to login..."
	// registerRedirectDelay is how long the success message stays up.
	registerRedirectDelay = 2
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the public account pages. submit wraps the POST
// handlers that take credentials (rate limiting).
func (h *Handler) RegisterRoutes(e *echo.Echo, submit ...echo.MiddlewareFunc) {
	e.GET(auth.LoginPath, h.LoginForm)
	e.POST(auth.LoginPath, h.Login, submit...)
	e.GET("/register", h.RegisterForm)
	e.POST("/register", h.Register, submit...)
	e.POST("/logout", h.Logout)
}

// LoginForm renders the sign-in page. A signed-in visitor goes straight to
// their dashboard; while the session is still bootstrapping the form is
// shown as for any visitor.
func (h *Handler) LoginForm(c echo.Context) error {
	if s := session.FromEcho(c); s != nil && s.IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, auth.DashboardPath(s.Role()))
	}
	return c.Render(http.StatusOK, "login", web.NewPage(c, "Sign In", &LoginView{}))
}

func (h *Handler) Login(c echo.Context) error {
	s := session.FromEcho(c)
	if s == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "no session")
	}

	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	if err := s.Login(c.Request().Context(), form.Email, form.Password); err != nil {
		p := web.NewPage(c, "Sign In", &LoginView{Email: form.Email})
		return c.Render(http.StatusOK, "login", p.WithError(err.Error()))
	}

	// The role is read after login so the redirect reflects the new identity.
	return c.Redirect(http.StatusSeeOther, auth.DashboardPath(s.Role()))
}

func (h *Handler) RegisterForm(c echo.Context) error {
	view := &RegisterView{Genders: Genders}
	return c.Render(http.StatusOK, "register", web.NewPage(c, "Patient Registration", view))
}

func (h *Handler) Register(c echo.Context) error {
	var form RegisterForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	view := &RegisterView{Form: form.Redacted(), Genders: Genders}
	p := web.NewPage(c, "Patient Registration", view)

	if err := h.svc.Register(c.Request().Context(), form); err != nil {
		if !errors.Is(err, ErrPasswordMismatch) {
			h.logger.Warn().Err(err).Msg("registration failed")
		}
		return c.Render(http.StatusOK, "register", p.WithError(RegisterErrorMessage(err)))
	}

	view.Done = true
	p.Refresh = &web.Refresh{Seconds: registerRedirectDelay, URL: auth.LoginPath}
	return c.Render(http.StatusOK, "register", p.WithSuccess(msgRegistered))
}

// Logout clears the session locally; the backend is not told.
func (h *Handler) Logout(c echo.Context) error {
	if s := session.FromEcho(c); s != nil {
		s.Logout(c.Request().Context())
	}
	return c.Redirect(http.StatusSeeOther, auth.LoginPath)
}
