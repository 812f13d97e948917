package web

import (
	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/session"
)

// CSRFContextKey is where echo's CSRF middleware leaves the form token.
const CSRFContextKey = "csrf"

// CSRFFormField is the hidden input every portal form carries.
const CSRFFormField = "_csrf"

// Nav is the header state: sign-in links for visitors, dashboard and logout
// for signed-in users.
type Nav struct {
	Authenticated bool
	Email         string
	Role          auth.Role
	DashboardPath string
}

// Refresh makes the page reload itself (or move to URL) after Seconds.
type Refresh struct {
	Seconds int
	URL     string
}

// Page is the data every template receives.
type Page struct {
	Title   string
	Nav     Nav
	CSRF    string
	Error   string
	Success string
	Refresh *Refresh
	Data    any
}

// NewPage fills the header and CSRF token from the current request.
func NewPage(c echo.Context, title string, data any) *Page {
	p := &Page{
		Title: title,
		Nav:   Nav{DashboardPath: "/"},
		Data:  data,
	}
	if tok, ok := c.Get(CSRFContextKey).(string); ok {
		p.CSRF = tok
	}
	if s := session.FromEcho(c); s != nil {
		if id := s.Identity(); id != nil {
			p.Nav = Nav{
				Authenticated: true,
				Email:         id.Email,
				Role:          id.Role,
				DashboardPath: auth.DashboardPath(id.Role),
			}
		}
	}
	return p
}

// WithError sets the inline error message.
func (p *Page) WithError(msg string) *Page {
	p.Error = msg
	return p
}

// WithSuccess sets the inline success message.
func (p *Page) WithSuccess(msg string) *Page {
	p.Success = msg
	return p
}
