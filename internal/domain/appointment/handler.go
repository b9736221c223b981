package appointment

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medops/hospitalops/internal/domain"
	"github.com/medops/hospitalops/internal/domain/tone"
	"github.com/medops/hospitalops/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.List)
	api.POST("/appointments", h.Create)
	api.POST("/appointments/sweep", h.Sweep)
	api.GET("/appointments/:id", h.Get)
	api.PATCH("/appointments/:id", h.Update)
	api.DELETE("/appointments/:id", h.Delete)
}

// View is an appointment with its presentation tones.
type View struct {
	Appointment
	StatusTone tone.Tone `json:"status_tone"`
	TypeTone   tone.Tone `json:"type_tone"`
}

func toView(a Appointment) View {
	return View{Appointment: a, StatusTone: a.Status.Tone(), TypeTone: a.Type.Tone()}
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Status:    Status(c.QueryParam("status")),
		Type:      Type(c.QueryParam("type")),
		MRN:       c.QueryParam("mrn"),
		Specialty: c.QueryParam("specialty"),
	}
	if d := c.QueryParam("date"); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		f.Day = &day
	}

	items := h.svc.List(f)
	views := make([]View, len(items))
	for i, a := range items {
		views[i] = toView(a)
	}
	return c.JSON(http.StatusOK, pagination.Page(views, pagination.FromContext(c)))
}

func (h *Handler) Create(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &a); err != nil {
		return domain.HTTPError(err, "appointment")
	}
	return c.JSON(http.StatusCreated, toView(a))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(id)
	if err != nil {
		return domain.HTTPError(err, "appointment")
	}
	return c.JSON(http.StatusOK, toView(a))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Patch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Update(c.Request().Context(), id, p)
	if err != nil {
		return domain.HTTPError(err, "appointment")
	}
	return c.JSON(http.StatusOK, toView(a))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return domain.HTTPError(err, "appointment")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Sweep(c echo.Context) error {
	n, err := h.svc.Sweep(c.Request().Context())
	if err != nil {
		return domain.HTTPError(err, "appointment")
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": n})
}
