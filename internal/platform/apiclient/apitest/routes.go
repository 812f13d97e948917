package apitest

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/auth"
)

const userKey = "apitest_user"

func (b *Backend) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		detail := any(err.Error())
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			detail = he.Message
		}
		_ = c.JSON(code, map[string]any{"detail": detail})
	}

	api := e.Group(Prefix, b.record)
	api.POST("/auth/login", b.login)
	api.POST("/auth/register", b.register)
	api.GET("/auth/me", b.me, b.bearer)

	api.GET("/records/:id", b.getRecords, b.bearer)
	api.POST("/records/", b.createRecord, b.bearer, b.only(auth.RoleDoctor))

	api.GET("/users/patients/search", b.searchPatients, b.bearer, b.only(auth.RoleDoctor))
	api.GET("/users/me/profile", b.profile, b.bearer)
	api.POST("/users/", b.createUser, b.bearer, b.only(auth.RoleHospitalAdmin))
	api.GET("/users/admin/analytics", b.analytics, b.bearer, b.only(auth.RoleHospitalAdmin))
	return e
}

// record counts the call and keeps a copy of its headers and body.
func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		body, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))

		route := req.Method + " " + strings.TrimPrefix(c.Path(), Prefix)
		b.mu.Lock()
		b.calls[route]++
		b.requests = append(b.requests, Request{Route: route, Header: req.Header.Clone(), Body: body})
		held := b.held[route]
		b.mu.Unlock()

		if held != nil {
			select {
			case <-held:
			case <-req.Context().Done():
				return req.Context().Err()
			}
		}
		return next(c)
	}
}

func unauthorized() error {
	return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
}

// bearer validates the HS256 token and loads its user.
func (b *Backend) bearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		parts := strings.SplitN(c.Request().Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return unauthorized()
		}

		b.mu.Lock()
		u, ok := b.users[claims.Subject]
		b.mu.Unlock()
		if !ok {
			return unauthorized()
		}
		c.Set(userKey, u)
		return next(c)
	}
}

func (b *Backend) only(role auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if current(c).Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "Not enough permissions")
			}
			return next(c)
		}
	}
}

func current(c echo.Context) *User {
	u, _ := c.Get(userKey).(*User)
	return u
}

func fieldError(field, msg string) map[string]any {
	return map[string]any{"loc": []string{"body", field}, "msg": msg, "type": "value_error"}
}

func (b *Backend) login(c echo.Context) error {
	email, password := c.FormValue("username"), c.FormValue("password")
	b.mu.Lock()
	u := b.userByEmailLocked(email)
	b.mu.Unlock()
	if u == nil || u.Password != password {
		return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect email or password")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"access_token": b.Token(u.ID, tokenTTL),
		"token_type":   "bearer",
	})
}

func (b *Backend) me(c echo.Context) error {
	u := current(c)
	return c.JSON(http.StatusOK, map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"role":      u.Role,
		"is_active": true,
	})
}

type userIn struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

func validateUser(in userIn) []map[string]any {
	var errs []map[string]any
	if !strings.Contains(in.Email, "@") {
		errs = append(errs, fieldError("email", "value is not a valid email address"))
	}
	if len(in.Password) < minPassLen {
		errs = append(errs, fieldError("password", "String should have at least 8 characters"))
	}
	return errs
}

func (b *Backend) register(c echo.Context) error {
	var req struct {
		UserIn    userIn `json:"user_in"`
		ProfileIn struct {
			FirstName     string `json:"first_name"`
			LastName      string `json:"last_name"`
			DateOfBirth   string `json:"date_of_birth"`
			ContactNumber string `json:"contact_number"`
		} `json:"patient_profile_in"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed body")
	}
	if errs := validateUser(req.UserIn); len(errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"detail": errs})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.userByEmailLocked(req.UserIn.Email) != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	}
	u := &User{
		ID:            uuid.NewString(),
		Email:         req.UserIn.Email,
		Password:      req.UserIn.Password,
		Role:          auth.RolePatient,
		FullName:      strings.TrimSpace(req.ProfileIn.FirstName + " " + req.ProfileIn.LastName),
		DateOfBirth:   req.ProfileIn.DateOfBirth,
		ContactNumber: req.ProfileIn.ContactNumber,
	}
	b.users[u.ID] = u
	return c.JSON(http.StatusCreated, map[string]any{"id": u.ID, "email": u.Email, "role": u.Role})
}

// getRecords serves both shapes of GET /records/{id}: a single record when
// id names one, otherwise the history of the patient with that id.
func (b *Backend) getRecords(c echo.Context) error {
	id := c.Param("id")
	u := current(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.records[id]; ok {
		if u.Role == auth.RolePatient && r["patient_id"] != u.ID {
			return echo.NewHTTPError(http.StatusForbidden, "Not enough permissions")
		}
		return c.JSON(http.StatusOK, r)
	}
	if u.Role == auth.RolePatient && id != u.ID {
		return echo.NewHTTPError(http.StatusForbidden, "Not enough permissions")
	}
	if p, ok := b.users[id]; !ok || p.Role != auth.RolePatient {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	}
	return c.JSON(http.StatusOK, b.recordsOfLocked(id))
}

func (b *Backend) createRecord(c echo.Context) error {
	var req struct {
		RecordIn Record `json:"record_in"`
	}
	if err := c.Bind(&req); err != nil || req.RecordIn == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed body")
	}
	patientID, _ := req.RecordIn["patient_id"].(string)
	var errs []map[string]any
	if patientID == "" {
		errs = append(errs, fieldError("patient_id", "Field required"))
	}
	if s, _ := req.RecordIn["diagnosis"].(string); s == "" {
		errs = append(errs, fieldError("diagnosis", "Field required"))
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"detail": errs})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.users[patientID]; !ok || p.Role != auth.RolePatient {
		return echo.NewHTTPError(http.StatusNotFound, "Patient not found")
	}
	doctor := current(c)
	fields := Record{"doctor_id": doctor.ID, "hospital_id": doctor.HospitalID}
	for k, v := range req.RecordIn {
		fields[k] = v
	}
	id := b.addRecordLocked(patientID, fields)
	return c.JSON(http.StatusCreated, b.records[id])
}

func (b *Backend) searchPatients(c echo.Context) error {
	q := strings.ToLower(strings.TrimSpace(c.QueryParam("query")))
	if len(q) < 2 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"query", "query"}, "msg": "String should have at least 2 characters"}},
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []map[string]any{}
	for _, u := range b.users {
		if u.Role != auth.RolePatient {
			continue
		}
		if strings.Contains(strings.ToLower(u.FullName), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, map[string]any{
				"user_id":        u.ID,
				"full_name":      u.FullName,
				"date_of_birth":  nullable(u.DateOfBirth),
				"contact_number": nullable(u.ContactNumber),
			})
		}
	}
	if len(out) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No patients found")
	}
	return c.JSON(http.StatusOK, out)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (b *Backend) profile(c echo.Context) error {
	u := current(c)
	return c.JSON(http.StatusOK, map[string]any{
		"user_id":     u.ID,
		"hospital_id": nullable(u.HospitalID),
		"job_title":   nullable(u.JobTitle),
		"specialty":   nullable(u.Specialty),
	})
}

func (b *Backend) createUser(c echo.Context) error {
	var req struct {
		UserIn    userIn         `json:"user_in"`
		ProfileIn map[string]any `json:"profile_in"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed body")
	}
	errs := validateUser(req.UserIn)
	if req.UserIn.Role != auth.RoleDoctor && req.UserIn.Role != auth.RoleHospitalAdmin {
		errs = append(errs, fieldError("role", "Input should be 'Doctor' or 'Hospital Admin'"))
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"detail": errs})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.userByEmailLocked(req.UserIn.Email) != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	}
	str := func(k string) string { s, _ := req.ProfileIn[k].(string); return s }
	u := &User{
		ID:            uuid.NewString(),
		Email:         req.UserIn.Email,
		Password:      req.UserIn.Password,
		Role:          req.UserIn.Role,
		HospitalID:    str("hospital_id"),
		Specialty:     str("specialty"),
		ContactNumber: str("contact_number"),
		JobTitle:      str("job_title"),
	}
	b.users[u.ID] = u
	return c.JSON(http.StatusCreated, map[string]any{"id": u.ID, "email": u.Email, "role": u.Role})
}

func (b *Backend) analytics(c echo.Context) error {
	admin := current(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	var patients, staff int64
	for _, u := range b.users {
		switch {
		case u.Role == auth.RolePatient:
			patients++
		case admin.HospitalID != "" && u.HospitalID == admin.HospitalID:
			staff++
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"total_patients":       patients,
		"total_records":        len(b.records),
		"hospital_id":          nullable(admin.HospitalID),
		"hospital_staff_count": staff,
	})
}
