package records

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/session"
	"github.com/prms/portal/internal/platform/web"
)

const (
	msgListFailed   = "Could not load records. Check patient ID or permissions."
	msgDetailFailed = "Could not load record details."
	msgCreated      = "Record created successfully!"
	ownHistoryTitle = "My Complete Medical History"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, require auth.RequireRole) {
	e.GET("/patient/records", h.List, require(auth.RolePatient))

	doctor := require(auth.RoleDoctor)
	e.GET("/doctor/records/:patientId", h.List, doctor)
	e.GET("/doctor/records/new/:patientId", h.NewForm, doctor)
	e.POST("/doctor/records/new/:patientId", h.Create, doctor)

	e.GET("/records/:recordId", h.Detail, require(auth.AllRoles...))
}

// List shows a patient's history. Patients always see their own records;
// every other role sees the patient named in the URL.
func (h *Handler) List(c echo.Context) error {
	id := session.FromEcho(c).Identity()
	if id == nil {
		return c.Redirect(http.StatusSeeOther, auth.LoginPath)
	}

	view := &ListView{PatientID: c.Param("patientId")}
	if id.Role == auth.RolePatient {
		view.PatientID = id.ID
		view.Heading = ownHistoryTitle
	} else {
		view.Heading = "Records for Patient ID: " + shortOrNA(view.PatientID)
	}

	p := web.NewPage(c, view.Heading, view)
	recs, err := h.svc.ListForPatient(c.Request().Context(), view.PatientID)
	if err != nil {
		p.Data = nil
		return c.Render(http.StatusOK, "records_list", p.WithError(apiclient.Message(err, "; ", msgListFailed)))
	}

	view.Records = recs
	view.CanAdd = id.Role == auth.RoleDoctor && len(recs) > 0
	if c.QueryParam("created") == "1" {
		view.JustAdded = true
		p.WithSuccess(msgCreated)
	}
	return c.Render(http.StatusOK, "records_list", p)
}

func (h *Handler) Detail(c echo.Context) error {
	recordID := c.Param("recordId")
	view := &DetailView{RecordID: recordID}
	p := web.NewPage(c, "Medical Record Details", view)

	rec, err := h.svc.Get(c.Request().Context(), recordID)
	if err != nil {
		p.Data = nil
		return c.Render(http.StatusOK, "record_detail", p.WithError(apiclient.Message(err, "; ", msgDetailFailed)))
	}
	view.Record = rec
	return c.Render(http.StatusOK, "record_detail", p)
}

func (h *Handler) NewForm(c echo.Context) error {
	view := &FormView{PatientID: c.Param("patientId")}
	return c.Render(http.StatusOK, "record_new", web.NewPage(c, "New Medical Record", view))
}

func (h *Handler) Create(c echo.Context) error {
	patientID := c.Param("patientId")
	var form NewRecordForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	if err := h.svc.Create(c.Request().Context(), patientID, form); err != nil {
		view := &FormView{PatientID: patientID, Form: form}
		p := web.NewPage(c, "New Medical Record", view)
		return c.Render(http.StatusOK, "record_new", p.WithError(CreateErrorMessage(err)))
	}

	return c.Redirect(http.StatusSeeOther, "/doctor/records/"+url.PathEscape(patientID)+"?created=1")
}

func shortOrNA(id string) string {
	if id == "" {
		return "N/A"
	}
	return web.ShortID(id)
}
