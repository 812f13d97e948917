// Package sessiontest builds ready-made portal sessions for handler tests.
package sessiontest

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/credential"
	"github.com/prms/portal/internal/platform/session"
)

// Auth is an in-memory session.AuthClient. Tokens map to identities and
// accounts map email to password and token.
type Auth struct {
	mu         sync.Mutex
	identities map[string]session.Identity
	accounts   map[string][2]string

	MeCalls    atomic.Int32
	LoginCalls atomic.Int32
}

func NewAuth() *Auth {
	return &Auth{
		identities: make(map[string]session.Identity),
		accounts:   make(map[string][2]string),
	}
}

// AddUser registers an account and returns its token.
func (a *Auth) AddUser(id, email, password string, role auth.Role) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	token := "tok-" + id
	a.identities[token] = session.Identity{ID: id, Email: email, Role: role}
	a.accounts[email] = [2]string{password, token}
	return token
}

func (a *Auth) Me(ctx context.Context) (*session.Identity, error) {
	a.MeCalls.Add(1)
	token, _ := session.ContextTokens{}.BearerToken(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.identities[token]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	}
	return &id, nil
}

func (a *Auth) Login(_ context.Context, email, password string) (string, error) {
	a.LoginCalls.Add(1)
	a.mu.Lock()
	defer a.mu.Unlock()
	acct, ok := a.accounts[email]
	if !ok || acct[0] != password {
		return "", &apiclient.APIError{StatusCode: http.StatusUnauthorized, Detail: "Incorrect email or password"}
	}
	return acct[1], nil
}

// Anonymous returns a bootstrapped session with no credential.
func Anonymous(t testing.TB) *session.Session {
	t.Helper()
	s := session.New(uuid.New(), credential.NewMemoryStore(), NewAuth(), zerolog.Nop())
	s.Bootstrap(context.Background())
	return s
}

// SignedIn returns a bootstrapped session holding a valid credential for
// the given identity.
func SignedIn(t testing.TB, role auth.Role, id, email string) *session.Session {
	t.Helper()
	a := NewAuth()
	token := a.AddUser(id, email, "secret", role)

	store := credential.NewMemoryStore()
	sid := uuid.New()
	if err := store.Set(context.Background(), sid, credential.TokenKey, token); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	s := session.New(sid, store, a, zerolog.Nop())
	s.Bootstrap(context.Background())
	if !s.IsAuthenticated() {
		t.Fatalf("expected %s session to be authenticated", role)
	}
	return s
}

// Bind attaches s to the request context.
func Bind(req *http.Request, s *session.Session) *http.Request {
	return req.WithContext(session.NewContext(req.Context(), s))
}
