package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Decision is the outcome of evaluating a guard against the session state.
type Decision int

const (
	DecisionLoading Decision = iota
	DecisionRedirectLogin
	DecisionAllow
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// State is the slice of session state a guard reads.
type State struct {
	Bootstrapping bool
	Authenticated bool
	Role          Role
}

// Decide evaluates the guard rules top to bottom; the first match wins.
func Decide(st State, allowed ...Role) Decision {
	if st.Bootstrapping {
		return DecisionLoading
	}
	if !st.Authenticated {
		return DecisionRedirectLogin
	}
	for _, r := range allowed {
		if st.Role != "" && st.Role == r {
			return DecisionAllow
		}
	}
	return DecisionDeny
}

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// StateFunc resolves the guard state for the current request.
type StateFunc func(c echo.Context) State

// Views renders the non-pass-through outcomes of a guard.
type Views interface {
	Loading(c echo.Context) error
	Denied(c echo.Context, role Role) error
}

// Guard returns middleware that gates a route subtree by role. The attempted
// destination is not remembered when redirecting to the login page.
func Guard(state StateFunc, views Views, allowed ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := state(c)
			switch Decide(st, allowed...) {
			case DecisionLoading:
				return views.Loading(c)
			case DecisionRedirectLogin:
				return c.Redirect(http.StatusSeeOther, LoginPath)
			case DecisionAllow:
				return next(c)
			default:
				return views.Denied(c, st.Role)
			}
		}
	}
}

// RequireRole builds Guard middleware for a fixed state source and view set,
// so route tables only name the roles they admit.
type RequireRole func(allowed ...Role) echo.MiddlewareFunc

func NewRequireRole(state StateFunc, views Views) RequireRole {
	return func(allowed ...Role) echo.MiddlewareFunc {
		return Guard(state, views, allowed...)
	}
}
