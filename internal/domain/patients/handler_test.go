package patients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/session"
	"github.com/prms/portal/internal/platform/session/sessiontest"
	"github.com/prms/portal/internal/platform/web"
)

type mockGateway struct {
	queries []string
	body    string
	err     error
}

func (m *mockGateway) Get(_ context.Context, path string, query url.Values, out any) error {
	m.queries = append(m.queries, path+"?"+query.Encode())
	if m.err != nil {
		return m.err
	}
	return json.Unmarshal([]byte(m.body), out)
}

func search(t *testing.T, gw *mockGateway, rawQuery string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	r, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	NewHandler(NewService(gw)).RegisterRoutes(e, auth.NewRequireRole(session.GuardState, web.GuardViews{}))

	target := "/doctor/patients"
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	s := sessiontest.SignedIn(t, role, "u-1", "user@prms.test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, sessiontest.Bind(httptest.NewRequest(http.MethodGet, target, nil), s))
	return rec
}

func TestSearch_FormOnly(t *testing.T) {
	gw := &mockGateway{}
	rec := search(t, gw, "", auth.RoleDoctor)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(gw.queries) != 0 {
		t.Error("no search should run without a query")
	}
}

func TestSearch_TooShortMakesNoCall(t *testing.T) {
	for _, q := range []string{"query=", "query=a"} {
		gw := &mockGateway{}
		rec := search(t, gw, q, auth.RoleDoctor)
		if len(gw.queries) != 0 {
			t.Errorf("%s: expected no backend call, got %v", q, gw.queries)
		}
		if !strings.Contains(rec.Body.String(), "Please enter at least 2 characters to search.") {
			t.Errorf("%s: expected length message", q)
		}
	}
}

func TestSearch_Results(t *testing.T) {
	gw := &mockGateway{body: `[{"user_id":"9c1e77aa-0000","full_name":"Ada Lovelace","date_of_birth":"1815-12-10","contact_number":null}]`}
	rec := search(t, gw, "query=ada", auth.RoleDoctor)

	if len(gw.queries) != 1 || gw.queries[0] != "/users/patients/search?query=ada" {
		t.Fatalf("unexpected backend calls %v", gw.queries)
	}
	body := rec.Body.String()
	for _, want := range []string{"Ada Lovelace", "1815-12-10", "Contact: N/A", `href="/doctor/records/9c1e77aa-0000"`, `value="ada"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &apiclient.APIError{StatusCode: 404, Detail: "No patients"}, "No patients found matching your query."},
		{"detail", &apiclient.APIError{StatusCode: 403, Detail: "Doctors only"}, "Doctors only"},
		{"network", errors.New("refused"), "An error occurred during search. Check server logs or permissions."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := search(t, &mockGateway{err: tt.err}, "query=ada", auth.RoleDoctor)
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected %q, got:\n%s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestSearch_DoctorOnly(t *testing.T) {
	gw := &mockGateway{}
	rec := search(t, gw, "query=ada", auth.RolePatient)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if len(gw.queries) != 0 {
		t.Error("denied request must not reach the backend")
	}
}
