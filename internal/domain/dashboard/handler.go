// Package dashboard serves the public home page and the per-role landing
// pages.
package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/web"
)

// ScheduleEntry is one shift or duty on the doctor's schedule.
type ScheduleEntry struct {
	Title string
	When  string
}

// ScheduleView backs the schedule page. The backend exposes no schedule
// endpoint yet, so Entries is always empty and the page says so.
type ScheduleView struct {
	Entries []ScheduleEntry
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, require auth.RequireRole) {
	e.GET("/", h.Home)
	e.GET("/patient/dashboard", h.page("dashboard_patient", "Patient Dashboard"), require(auth.RolePatient))
	e.GET("/doctor/dashboard", h.page("dashboard_doctor", "Doctor Dashboard"), require(auth.RoleDoctor))
	e.GET("/doctor/schedule", h.Schedule, require(auth.RoleDoctor))
	e.GET("/admin/dashboard", h.page("dashboard_admin", "Admin Dashboard"), require(auth.RoleHospitalAdmin))
}

// Home is public and never redirects.
func (h *Handler) Home(c echo.Context) error {
	return c.Render(http.StatusOK, "home", web.NewPage(c, "Welcome", nil))
}

func (h *Handler) Schedule(c echo.Context) error {
	return c.Render(http.StatusOK, "schedule", web.NewPage(c, "My Schedule", &ScheduleView{}))
}

func (h *Handler) page(name, title string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Render(http.StatusOK, name, web.NewPage(c, title, nil))
	}
}
