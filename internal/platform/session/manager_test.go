package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prms/portal/internal/platform/credential"
)

func newTestManager(ttl time.Duration) (*Manager, *credential.MemoryStore) {
	store := credential.NewMemoryStore()
	return NewManager(store, newMockAuth(), zerolog.Nop(), ttl), store
}

func TestManager_SessionIsStablePerID(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	id := uuid.New()

	a := m.Session(id)
	b := m.Session(id)
	if a != b {
		t.Error("expected the same session for the same id")
	}
	if m.Session(uuid.New()) == a {
		t.Error("expected distinct sessions for distinct ids")
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", m.Len())
	}
}

func TestManager_SweepEvictsIdle(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }

	idle := uuid.New()
	m.Session(idle)

	now = now.Add(30 * time.Second)
	active := uuid.New()
	m.Session(active)

	now = now.Add(45 * time.Second)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", m.Len())
	}
}

func TestManager_SweepDisabled(t *testing.T) {
	m, _ := newTestManager(0)
	m.Session(uuid.New())
	if n := m.Sweep(); n != 0 {
		t.Errorf("expected no eviction with zero ttl, got %d", n)
	}
}

func TestManager_EvictedSessionRebootstrapsFromStore(t *testing.T) {
	m, store := newTestManager(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }
	id := uuid.New()

	store.Set(context.Background(), id, credential.TokenKey, "tok-doc")
	s := m.Session(id)
	s.Bootstrap(context.Background())

	now = now.Add(2 * time.Minute)
	m.Sweep()

	again := m.Session(id)
	if again == s {
		t.Fatal("expected a new session after eviction")
	}
	again.Bootstrap(context.Background())
	if !again.IsAuthenticated() {
		t.Error("expected the persisted credential to restore the identity")
	}
}

func serveThrough(m *Manager, req *http.Request) (*httptest.ResponseRecorder, *Session) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen *Session
	h := m.Middleware(CookieConfig{})(func(c echo.Context) error {
		seen = FromEcho(c)
		return c.NoContent(http.StatusOK)
	})
	h(c)
	return rec, seen
}

func TestMiddleware_IssuesCookieAndBootstraps(t *testing.T) {
	m, _ := newTestManager(time.Hour)

	rec, s := serveThrough(m, httptest.NewRequest(http.MethodGet, "/", nil))
	if s == nil {
		t.Fatal("expected session in request context")
	}
	if s.Bootstrapping() {
		t.Error("expected bootstrap to have completed")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DefaultCookieName {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Error("expected HttpOnly SameSite=Lax cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2, s2 := serveThrough(m, req)
	if s2 != s {
		t.Error("expected the cookie to resolve the same session")
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Error("expected no new cookie for a known session")
	}
}

func TestMiddleware_ReplacesMalformedCookie(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not-a-uuid"})

	rec, s := serveThrough(m, req)
	if s == nil {
		t.Fatal("expected session")
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Error("expected a replacement cookie")
	}
}

func TestContextTokens_NoSession(t *testing.T) {
	tok, err := ContextTokens{}.BearerToken(context.Background())
	if tok != "" || err != nil {
		t.Errorf("expected empty token, got %q %v", tok, err)
	}
}

func TestGuardState_NoSessionIsAnonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	st := GuardState(c)
	if st.Authenticated || st.Bootstrapping {
		t.Errorf("expected anonymous state, got %+v", st)
	}
}

func TestMiddleware_SkipperBypassesSession(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	c.SetPath("/health")

	var seen *Session
	mw := m.Middleware(CookieConfig{Skipper: func(c echo.Context) bool { return c.Path() == "/health" }})
	if err := mw(func(c echo.Context) error {
		seen = FromEcho(c)
		return nil
	})(c); err != nil {
		t.Fatal(err)
	}
	if seen != nil {
		t.Error("skipped route must not get a session")
	}
	if len(rec.Result().Cookies()) != 0 || m.Len() != 0 {
		t.Error("skipped route must not create a session")
	}
}
