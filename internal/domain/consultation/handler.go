package consultation

import (
	"net/http"

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
	api.GET("/consultations", h.List)
	api.POST("/consultations", h.Create)
	api.GET("/consultations/:id", h.Get)
	api.PATCH("/consultations/:id", h.Update)
	api.POST("/consultations/:id/complete", h.Complete)
	api.DELETE("/consultations/:id", h.Delete)
}

type View struct {
	Consultation
	StatusTone  tone.Tone `json:"status_tone"`
	UrgencyTone tone.Tone `json:"urgency_tone"`
}

func toView(c Consultation) View {
	return View{Consultation: c, StatusTone: c.Status.Tone(), UrgencyTone: c.Urgency.Tone()}
}

func (h *Handler) List(c echo.Context) error {
	items := h.svc.List(Filter{
		Status:    Status(c.QueryParam("status")),
		Urgency:   Urgency(c.QueryParam("urgency")),
		MRN:       c.QueryParam("mrn"),
		Specialty: c.QueryParam("specialty"),
	})
	views := make([]View, len(items))
	for i, item := range items {
		views[i] = toView(item)
	}
	return c.JSON(http.StatusOK, pagination.Page(views, pagination.FromContext(c)))
}

func (h *Handler) Create(c echo.Context) error {
	var cons Consultation
	if err := c.Bind(&cons); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &cons); err != nil {
		return domain.HTTPError(err, "consultation")
	}
	return c.JSON(http.StatusCreated, toView(cons))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cons, err := h.svc.Get(id)
	if err != nil {
		return domain.HTTPError(err, "consultation")
	}
	return c.JSON(http.StatusOK, toView(cons))
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
	cons, err := h.svc.Update(c.Request().Context(), id, p)
	if err != nil {
		return domain.HTTPError(err, "consultation")
	}
	return c.JSON(http.StatusOK, toView(cons))
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cons, err := h.svc.Complete(c.Request().Context(), id)
	if err != nil {
		return domain.HTTPError(err, "consultation")
	}
	return c.JSON(http.StatusOK, toView(cons))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return domain.HTTPError(err, "consultation")
	}
	return c.NoContent(http.StatusNoContent)
}
