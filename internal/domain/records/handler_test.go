package records

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

// mockGateway serves canned JSON per path and records every call.
type mockGateway struct {
	responses map[string]string
	errs      map[string]error
	gets      []string
	posts     []string
	postBody  []byte
}

func newMockGateway() *mockGateway {
	return &mockGateway{responses: map[string]string{}, errs: map[string]error{}}
}

func (m *mockGateway) Get(_ context.Context, path string, _ url.Values, out any) error {
	m.gets = append(m.gets, path)
	if err, ok := m.errs[path]; ok {
		return err
	}
	body, ok := m.responses[path]
	if !ok {
		return &apiclient.APIError{StatusCode: http.StatusNotFound, Detail: "Not found"}
	}
	return json.Unmarshal([]byte(body), out)
}

func (m *mockGateway) PostJSON(_ context.Context, path string, in, _ any) error {
	m.posts = append(m.posts, path)
	m.postBody, _ = json.Marshal(in)
	return m.errs["POST "+path]
}

func newServer(t *testing.T, gw *mockGateway) *echo.Echo {
	t.Helper()
	r, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	NewHandler(NewService(gw)).RegisterRoutes(e, auth.NewRequireRole(session.GuardState, web.GuardViews{}))
	return e
}

func serve(e *echo.Echo, req *http.Request, s *session.Session) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, sessiontest.Bind(req, s))
	return rec
}

const twoRecords = `[
 {"id":"r-1","patient_id":"p-1","hospital_id":"h-1","date_of_visit":"2026-01-10","diagnosis":"Flu","chief_complaint":"Fever"},
 {"id":"r-2","patient_id":"p-1","hospital_id":"h-2","date_of_visit":"2026-02-11","diagnosis":"Sprain","chief_complaint":"Ankle pain"}
]`

func TestList_PatientSeesOwnHistory(t *testing.T) {
	gw := newMockGateway()
	gw.responses["/records/p-1"] = twoRecords
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RolePatient, "p-1", "pat@prms.test")

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/patient/records", nil), s)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(gw.gets) != 1 || gw.gets[0] != "/records/p-1" {
		t.Errorf("expected GET /records/p-1, got %v", gw.gets)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "My Complete Medical History") {
		t.Error("expected own-history title")
	}
	if !strings.Contains(body, `href="/records/r-2"`) || !strings.Contains(body, "Diagnosis: Sprain") {
		t.Error("expected records to be listed with detail links")
	}
	if strings.Contains(body, "+ Add New Record") {
		t.Error("patients must not see the add link")
	}
}

func TestList_DoctorSeesPatientFromURL(t *testing.T) {
	gw := newMockGateway()
	gw.responses["/records/3f2a9c1e-aaaa-bbbb"] = twoRecords
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RoleDoctor, "d-1", "doc@prms.test")

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/doctor/records/3f2a9c1e-aaaa-bbbb", nil), s)
	body := rec.Body.String()
	if !strings.Contains(body, "Records for Patient ID: 3f2a9c1e...") {
		t.Errorf("expected shortened patient id title, got:\n%s", body)
	}
	if !strings.Contains(body, `href="/doctor/records/new/3f2a9c1e-aaaa-bbbb"`) {
		t.Error("doctor should see the add link when records exist")
	}
}

func TestList_DoctorEmptyListHasNoAddLink(t *testing.T) {
	gw := newMockGateway()
	gw.responses["/records/p-2"] = `[]`
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RoleDoctor, "d-1", "doc@prms.test")

	body := serve(e, httptest.NewRequest(http.MethodGet, "/doctor/records/p-2", nil), s).Body.String()
	if strings.Contains(body, "+ Add New Record") {
		t.Error("add link must be hidden for an empty list")
	}
	if !strings.Contains(body, "No medical records found for this patient.") {
		t.Error("expected empty-state message")
	}
}

func TestList_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"detail", &apiclient.APIError{StatusCode: 403, Detail: "Not authorized to view these records"}, "Not authorized to view these records"},
		{"no detail", &apiclient.APIError{StatusCode: 500}, "Could not load records. Check patient ID or permissions."},
		{"network", errors.New("dial tcp: connection refused"), "Could not load records. Check patient ID or permissions."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newMockGateway()
			gw.errs["/records/p-3"] = tt.err
			e := newServer(t, gw)
			s := sessiontest.SignedIn(t, auth.RoleDoctor, "d-1", "doc@prms.test")

			body := serve(e, httptest.NewRequest(http.MethodGet, "/doctor/records/p-3", nil), s).Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("expected %q, got:\n%s", tt.want, body)
			}
			if strings.Contains(body, "Total Records Found") {
				t.Error("list must not render alongside the error")
			}
		})
	}
}

func TestList_CreatedFlag(t *testing.T) {
	gw := newMockGateway()
	gw.responses["/records/p-1"] = twoRecords
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RoleDoctor, "d-1", "doc@prms.test")

	body := serve(e, httptest.NewRequest(http.MethodGet, "/doctor/records/p-1?created=1", nil), s).Body.String()
	if !strings.Contains(body, "Record created successfully!") {
		t.Error("expected creation notice")
	}
}

func TestDetail_MedicationsFromEncodedString(t *testing.T) {
	gw := newMockGateway()
	gw.responses["/records/r-1"] = `{"id":"r-1","date_of_visit":"2026-01-10","chief_complaint":"Fever","diagnosis":"Flu",
		"treatment_summary":"Rest","notes":"Recheck in a week","doctor_id":"d-1","hospital_id":"h-1",
		"medications":"[{\"name\":\"Paracetamol\",\"dosage\":\"500mg\",\"frequency\":\"every 6h\"}]"}`
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RolePatient, "p-1", "pat@prms.test")

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/records/r-1", nil), s)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Medical Record Details: #r-1", "Paracetamol (500mg)", "Frequency: every 6h", "Recheck in a week", "h-1"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestDetail_NoMedications(t *testing.T) {
	gw := newMockGateway()
	gw.responses["/records/r-2"] = `{"id":"r-2","diagnosis":"Sprain","medications":[]}`
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RoleHospitalAdmin, "a-1", "admin@prms.test")

	body := serve(e, httptest.NewRequest(http.MethodGet, "/records/r-2", nil), s).Body.String()
	if !strings.Contains(body, "None prescribed.") {
		t.Error("expected empty prescription notice")
	}
}

func TestDetail_Error(t *testing.T) {
	gw := newMockGateway()
	gw.errs["/records/r-9"] = errors.New("timeout")
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RoleDoctor, "d-1", "doc@prms.test")

	body := serve(e, httptest.NewRequest(http.MethodGet, "/records/r-9", nil), s).Body.String()
	if !strings.Contains(body, "Could not load record details.") {
		t.Errorf("expected detail error, got:\n%s", body)
	}
}

func TestDetail_AnonymousRedirectsWithoutFetching(t *testing.T) {
	gw := newMockGateway()
	e := newServer(t, gw)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/records/r-1", nil), sessiontest.Anonymous(t))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected redirect to /login, got %d", rec.Code)
	}
	if len(gw.gets) != 0 {
		t.Errorf("no backend call expected, got %v", gw.gets)
	}
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func TestCreate_SuccessRedirects(t *testing.T) {
	gw := newMockGateway()
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RoleDoctor, "d-1", "doc@prms.test")

	form := url.Values{
		"chief_complaint":   {"Headache"},
		"diagnosis":         {"Migraine"},
		"medication_name":   {"Sumatriptan"},
		"medication_dosage": {"50mg"},
	}
	rec := serve(e, postForm("/doctor/records/new/p-1", form), s)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/doctor/records/p-1?created=1" {
		t.Errorf("unexpected redirect %s", loc)
	}
	if len(gw.posts) != 1 || gw.posts[0] != "/records/" {
		t.Fatalf("expected POST /records/, got %v", gw.posts)
	}

	var payload struct {
		RecordIn RecordIn `json:"record_in"`
	}
	if err := json.Unmarshal(gw.postBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.RecordIn.PatientID != "p-1" || payload.RecordIn.Diagnosis != "Migraine" {
		t.Errorf("unexpected payload %+v", payload.RecordIn)
	}
	if len(payload.RecordIn.Medications) != 1 || payload.RecordIn.Medications[0].Name != "Sumatriptan" {
		t.Errorf("expected one medication, got %+v", payload.RecordIn.Medications)
	}
}

func TestCreate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", &apiclient.APIError{StatusCode: 422, Fields: []apiclient.FieldError{
			{Loc: []any{"body", "diagnosis"}, Msg: "field required"},
			{Loc: []any{"body", "chief_complaint"}, Msg: "field required"},
		}}, "Failed to create record: diagnosis: field required; chief_complaint: field required"},
		{"detail", &apiclient.APIError{StatusCode: 403, Detail: "Only doctors can create records"}, "Failed to create record: Only doctors can create records"},
		{"network", errors.New("connection reset"), "Failed to create record: Network Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newMockGateway()
			gw.errs["POST /records/"] = tt.err
			e := newServer(t, gw)
			s := sessiontest.SignedIn(t, auth.RoleDoctor, "d-1", "doc@prms.test")

			rec := serve(e, postForm("/doctor/records/new/p-1", url.Values{"diagnosis": {"Flu"}}), s)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected form re-render, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected %q, got:\n%s", tt.want, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `value="Flu"`) {
				t.Error("expected entered values to be kept")
			}
		})
	}
}

func TestCreate_PatientDenied(t *testing.T) {
	gw := newMockGateway()
	e := newServer(t, gw)
	s := sessiontest.SignedIn(t, auth.RolePatient, "p-1", "pat@prms.test")

	rec := serve(e, postForm("/doctor/records/new/p-1", url.Values{"diagnosis": {"x"}}), s)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if len(gw.posts) != 0 {
		t.Error("denied request must not reach the backend")
	}
}
