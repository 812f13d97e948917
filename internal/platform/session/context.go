package session

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/auth"
)

type contextKey string

const sessionKey contextKey = "portal_session"

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session bound to ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// FromEcho returns the session of the current request, or nil.
func FromEcho(c echo.Context) *Session {
	return FromContext(c.Request().Context())
}

// GuardState resolves the route guard state of the current request. A
// request without a session is anonymous.
func GuardState(c echo.Context) auth.State {
	s := FromEcho(c)
	if s == nil {
		return auth.State{}
	}
	return s.GuardState()
}

// ContextTokens feeds the API gateway with the credential of the session
// bound to each outgoing request's context.
type ContextTokens struct{}

func (ContextTokens) BearerToken(ctx context.Context) (string, error) {
	s := FromContext(ctx)
	if s == nil {
		return "", nil
	}
	return s.BearerToken(ctx)
}
