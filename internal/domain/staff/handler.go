package staff

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/web"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, require auth.RequireRole) {
	admin := require(auth.RoleHospitalAdmin)
	e.GET("/admin/manage", h.ManageForm, admin)
	e.POST("/admin/manage", h.Create, admin)
	e.GET("/admin/analytics", h.Analytics, admin)
}

func (h *Handler) ManageForm(c echo.Context) error {
	view := &ManageView{Form: Form{Role: auth.RoleDoctor}, Roles: StaffRoles}
	p := web.NewPage(c, "Staff Management", view)

	hospitalID, err := h.svc.HospitalID(c.Request().Context())
	if err != nil {
		p.WithError(ErrNoHospital.Error())
	}
	view.HospitalID = hospitalID
	return c.Render(http.StatusOK, "admin_manage", p)
}

// Create resolves the administrator's hospital again on every submission
// and refuses to create an unaffiliated account when it cannot.
func (h *Handler) Create(c echo.Context) error {
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	ctx := c.Request().Context()

	view := &ManageView{Form: form, Roles: StaffRoles}
	view.Form.Password = ""
	p := web.NewPage(c, "Staff Management", view)

	hospitalID, err := h.svc.HospitalID(ctx)
	if err != nil {
		return c.Render(http.StatusOK, "admin_manage", p.WithError(ErrNoHospital.Error()))
	}
	view.HospitalID = hospitalID

	if err := h.svc.CreateStaff(ctx, hospitalID, form); err != nil {
		return c.Render(http.StatusOK, "admin_manage", p.WithError(CreateErrorMessage(err)))
	}

	view.Form = form.Reset()
	p.WithSuccess(fmt.Sprintf("Successfully created new %s account: %s", form.Role, form.Email))
	return c.Render(http.StatusOK, "admin_manage", p)
}

func (h *Handler) Analytics(c echo.Context) error {
	p := web.NewPage(c, "Platform Analytics", nil)

	a, err := h.svc.Analytics(c.Request().Context())
	if err != nil {
		return c.Render(http.StatusOK, "admin_analytics", p.WithError(AnalyticsErrorMessage(err)))
	}
	p.Data = &AnalyticsView{Analytics: a, AsOf: h.now().Format("15:04:05")}
	return c.Render(http.StatusOK, "admin_analytics", p)
}
