package patients

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prms/portal/internal/platform/auth"
	"github.com/prms/portal/internal/platform/web"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, require auth.RequireRole) {
	e.GET("/doctor/patients", h.Search, require(auth.RoleDoctor))
}

// Search renders the form and, when the query parameter is present, the
// results of that search.
func (h *Handler) Search(c echo.Context) error {
	view := &SearchView{}
	p := web.NewPage(c, "Patient Record Search", view)

	if !c.QueryParams().Has("query") {
		return c.Render(http.StatusOK, "patient_search", p)
	}
	view.Query = c.QueryParam("query")

	results, err := h.svc.Search(c.Request().Context(), view.Query)
	if err != nil {
		return c.Render(http.StatusOK, "patient_search", p.WithError(SearchErrorMessage(err)))
	}
	view.Results = results
	return c.Render(http.StatusOK, "patient_search", p)
}
