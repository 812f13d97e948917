package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prms/portal/internal/platform/credential"
)

const DefaultCookieName = "prms_sid"

// Manager owns every live Session of the process. Evicting an idle Session
// only forgets the in-memory state; its credential stays persisted and the
// next request from that browser bootstraps a fresh Session from it.
type Manager struct {
	store   credential.Store
	auth    AuthClient
	logger  zerolog.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager(store credential.Store, authClient AuthClient, logger zerolog.Logger, idleTTL time.Duration) *Manager {
	return &Manager{
		store:    store,
		auth:     authClient,
		logger:   logger,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Session returns the live session for id, creating it if needed.
func (m *Manager) Session(id uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = New(id, m.store, m.auth, m.logger)
		s.now = m.now
		m.sessions[id] = s
	}
	s.touch()
	return s
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the configured TTL and returns
// how many were dropped. A zero TTL disables eviction.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTTL {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps on every tick until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug().Int("evicted", n).Int("live", m.Len()).Msg("session sweep")
			}
		}
	}
}

// CookieConfig controls the browser session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration

	// Skipper exempts routes that must not carry a session.
	Skipper func(c echo.Context) bool
}

// Middleware binds the browser's Session to the request context, issuing a
// session cookie on first contact and running the one-time bootstrap.
func (m *Manager) Middleware(cfg CookieConfig) echo.MiddlewareFunc {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			id, ok := sessionIDFromCookie(c, cfg.Name)
			if !ok {
				id = uuid.New()
				c.SetCookie(&http.Cookie{
					Name:     cfg.Name,
					Value:    id.String(),
					Path:     "/",
					MaxAge:   int(cfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			s := m.Session(id)
			ctx := c.Request().Context()
			s.Bootstrap(context.WithoutCancel(ctx))

			c.SetRequest(c.Request().WithContext(NewContext(ctx, s)))
			return next(c)
		}
	}
}

func sessionIDFromCookie(c echo.Context, name string) (uuid.UUID, bool) {
	cookie, err := c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
