// Package session is the portal's source of truth for who is signed in.
//
// Each browser gets one Session, keyed by an opaque cookie. A Session
// bootstraps exactly once: it reads the persisted credential, asks the
// backend who the credential belongs to, and either keeps the identity or
// discards the credential. Login and logout are the only other mutations.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/credential"
)

// ErrLoginFailed is the only error login callers see; the underlying cause
// is logged.
var ErrLoginFailed = errors.New("Login failed. Check credentials.")

type Session struct {
	id     uuid.UUID
	slot   credential.Slot
	auth   AuthClient
	logger zerolog.Logger
	now    func() time.Time

	started  atomic.Bool
	lastSeen atomic.Int64

	// opMu serializes bootstrap, login and logout.
	opMu sync.Mutex

	mu            sync.RWMutex
	identity      *Identity
	bootstrapping bool
}

func New(id uuid.UUID, store credential.Store, authClient AuthClient, logger zerolog.Logger) *Session {
	s := &Session{
		id:            id,
		slot:          credential.NewSlot(store, id),
		auth:          authClient,
		logger:        logger.With().Str("component", "session").Logger(),
		now:           time.Now,
		bootstrapping: true,
	}
	s.touch()
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Bootstrap performs the one-time identity check. Only the first call does
// any work; callers racing with it return at once and observe
// Bootstrapping() == true until it finishes. Login and Logout wait for it.
func (s *Session) Bootstrap(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	defer func() {
		s.mu.Lock()
		s.bootstrapping = false
		s.mu.Unlock()
	}()
	_ = s.loadIdentity(ctx)
}

// Login exchanges email and password for a token, persists it and loads the
// identity it belongs to. On any failure no credential is left behind.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	ctx = NewContext(ctx, s)

	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn().Err(err).
			Int("status", apiclient.StatusCode(err)).
			Str("session_id", s.id.String()).
			Msg("login rejected")
		s.clear(ctx)
		return ErrLoginFailed
	}
	if err := s.slot.SetToken(ctx, token); err != nil {
		s.logger.Error().Err(err).Str("session_id", s.id.String()).Msg("persist credential")
		s.clear(ctx)
		return ErrLoginFailed
	}
	if err := s.loadIdentity(ctx); err != nil {
		return ErrLoginFailed
	}
	return nil
}

// Logout drops the credential and identity. It never calls the backend.
func (s *Session) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.clear(ctx)
	s.mu.Lock()
	s.bootstrapping = false
	s.mu.Unlock()
}

// Identity returns a copy of the current identity, or nil.
func (s *Session) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Role is the identity's role, or empty when signed out.
func (s *Session) Role() auth.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.Role
}

func (s *Session) Bootstrapping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bootstrapping
}

// GuardState snapshots the fields a route guard reads.
func (s *Session) GuardState() auth.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := auth.State{Bootstrapping: s.bootstrapping, Authenticated: s.identity != nil}
	if s.identity != nil {
		st.Role = s.identity.Role
	}
	return st
}

// BearerToken returns the persisted credential, or "" when there is none.
func (s *Session) BearerToken(ctx context.Context) (string, error) {
	token, _, err := s.slot.Token(ctx)
	return token, err
}

func (s *Session) loadIdentity(ctx context.Context) error {
	ctx = NewContext(ctx, s)
	log := s.logger.With().Str("session_id", s.id.String()).Logger()

	token, ok, err := s.slot.Token(ctx)
	if err != nil {
		log.Error().Err(err).Msg("read credential")
		s.setIdentity(nil)
		return err
	}
	if !ok {
		s.setIdentity(nil)
		return nil
	}

	if tokenExpired(token, s.now()) {
		log.Info().Msg("credential expired, discarding")
		s.clear(ctx)
		return errCredentialExpired
	}

	id, err := s.auth.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Int("status", apiclient.StatusCode(err)).Msg("credential invalid or expired, discarding")
		s.clear(ctx)
		return err
	}
	if !id.Role.Valid() {
		log.Warn().Str("user_id", id.ID).Str("role", id.Role.String()).Msg("identity has unknown role")
	}
	s.setIdentity(id)
	log.Debug().Str("user_id", id.ID).Str("role", id.Role.String()).Msg("identity loaded")
	return nil
}

var errCredentialExpired = errors.New("credential expired")

func (s *Session) setIdentity(id *Identity) {
	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()
}

func (s *Session) clear(ctx context.Context) {
	if err := s.slot.ClearToken(ctx); err != nil {
		s.logger.Error().Err(err).Str("session_id", s.id.String()).Msg("remove credential")
	}
	s.setIdentity(nil)
}

func (s *Session) touch() {
	s.lastSeen.Store(s.now().UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens and tokens without exp are left to the backend to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
