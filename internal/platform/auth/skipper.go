package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists infrastructure routes served without a portal session.
// Health checks hitting them must not be issued a session cookie or trigger a
// credential lookup against the backend.
var publicPaths = map[string]bool{
	"/health":      true,
	"/favicon.ico": true,
}

// PublicSkipper returns true for requests whose route should bypass the
// session middleware. It matches the registered route, not the raw URL.
func PublicSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

// IsPublicPath reports whether path is a public infrastructure route.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
