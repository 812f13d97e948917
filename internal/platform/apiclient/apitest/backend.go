// Package apitest runs an in-process PRMS backend for end-to-end tests of
// the portal. It implements the endpoints the portal calls, issues real
// HS256 tokens and counts every request per route.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prms/portal/internal/platform/auth"
)

const (
	// Prefix is the API mount point, matching the default base URL.
	Prefix = "/api/v1"

	tokenTTL   = time.Hour
	minPassLen = 8
)

// User is an account held by the fake backend.
type User struct {
	ID            string
	Email         string
	Password      string
	Role          auth.Role
	FullName      string
	DateOfBirth   string
	ContactNumber string
	HospitalID    string
	Specialty     string
	JobTitle      string
}

// Record is a stored medical record, kept as the JSON the backend returns.
type Record map[string]any

type Backend struct {
	srv    *httptest.Server
	secret []byte

	mu       sync.Mutex
	users    map[string]*User // by id
	records  map[string]Record
	calls    map[string]int
	requests []Request
	held     map[string]chan struct{}
}

// Request is what the backend saw of one call.
type Request struct {
	Route  string
	Header http.Header
	Body   []byte
}

// New starts a backend and stops it when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		secret:  []byte(uuid.NewString()),
		users:   make(map[string]*User),
		records: make(map[string]Record),
		calls:   make(map[string]int),
		held:    make(map[string]chan struct{}),
	}
	b.srv = httptest.NewServer(b.routes())
	t.Cleanup(b.srv.Close)
	return b
}

// BaseURL is the value the portal uses as API_BASE_URL.
func (b *Backend) BaseURL() string {
	return b.srv.URL + Prefix
}

// AddUser stores u, assigning an id when it has none, and returns the id.
func (b *Backend) AddUser(u User) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	b.users[u.ID] = &u
	return u.ID
}

// AddRecord stores a record for patientID and returns its id.
func (b *Backend) AddRecord(patientID string, fields Record) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addRecordLocked(patientID, fields)
}

func (b *Backend) addRecordLocked(patientID string, fields Record) string {
	id := uuid.NewString()
	r := Record{"id": id, "patient_id": patientID, "created_at": time.Now().UTC().Format(time.RFC3339)}
	for k, v := range fields {
		r[k] = v
	}
	b.records[id] = r
	return id
}

// Token mints a credential for userID that expires after ttl. A negative
// ttl yields an already expired token.
func (b *Backend) Token(userID string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return signed
}

// Hold parks every request for route until release is called. Requests
// already parked are let through by release as well.
func (b *Backend) Hold(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.held[route] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.held[route] == ch {
				delete(b.held, route)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Calls reports how often route was hit, e.g. "GET /auth/me".
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls reports every request the backend has served.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// LastRequest returns the most recent request for route.
func (b *Backend) LastRequest(route string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].Route == route {
			return b.requests[i], true
		}
	}
	return Request{}, false
}

// UserByEmail looks up a stored account.
func (b *Backend) UserByEmail(email string) (User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, email) {
			return *u, true
		}
	}
	return User{}, false
}

// RecordsOf returns the records stored for patientID, oldest first.
func (b *Backend) RecordsOf(patientID string) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recordsOfLocked(patientID)
}

func (b *Backend) recordsOfLocked(patientID string) []Record {
	out := []Record{}
	for _, r := range b.records {
		if r["patient_id"] == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]["created_at"], out[i]["id"]) < fmt.Sprint(out[j]["created_at"], out[j]["id"])
	})
	return out
}

func (b *Backend) userByEmailLocked(email string) *User {
	for _, u := range b.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}
