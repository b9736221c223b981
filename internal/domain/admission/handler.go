package admission

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
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.RegisterPatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PATCH("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.POST("/patients/:id/admissions", h.Admit)
	api.PATCH("/patients/:id/admissions/:episode_id", h.UpdateEpisode)
	api.POST("/patients/:id/admissions/:episode_id/discharge", h.Discharge)
	api.GET("/admissions", h.ListAdmissions)
}

type EpisodeView struct {
	Episode
	StatusTone tone.Tone `json:"status_tone"`
	SafetyTone tone.Tone `json:"safety_tone"`
}

type PatientView struct {
	Patient
	Episodes []EpisodeView `json:"episodes"`
	// Status is the status of the latest episode.
	Status     EpisodeStatus `json:"status,omitempty"`
	StatusTone tone.Tone     `json:"status_tone"`
}

func toEpisodeView(e Episode) EpisodeView {
	return EpisodeView{Episode: e, StatusTone: e.Status.Tone(), SafetyTone: e.SafetyLevel.Tone()}
}

func toView(p Patient) PatientView {
	v := PatientView{Patient: p, Episodes: make([]EpisodeView, len(p.Episodes)), StatusTone: tone.Neutral}
	for i, e := range p.Episodes {
		v.Episodes[i] = toEpisodeView(e)
	}
	if latest, ok := p.LatestEpisode(); ok {
		v.Status = latest.Status
		v.StatusTone = latest.Status.Tone()
	}
	return v
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) ListPatients(c echo.Context) error {
	items := h.svc.List(Filter{
		MRN:        c.QueryParam("mrn"),
		Name:       c.QueryParam("name"),
		Department: c.QueryParam("department"),
		Status:     EpisodeStatus(c.QueryParam("status")),
	})
	views := make([]PatientView, len(items))
	for i, p := range items {
		views[i] = toView(p)
	}
	return c.JSON(http.StatusOK, pagination.Page(views, pagination.FromContext(c)))
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Register(c.Request().Context(), &p); err != nil {
		return domain.HTTPError(err, "patient")
	}
	return c.JSON(http.StatusCreated, toView(p))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(id)
	if err != nil {
		return domain.HTTPError(err, "patient")
	}
	return c.JSON(http.StatusOK, toView(p))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateDetails(c.Request().Context(), id, body.Name, body.Phone)
	if err != nil {
		return domain.HTTPError(err, "patient")
	}
	return c.JSON(http.StatusOK, toView(p))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return domain.HTTPError(err, "patient")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Admit(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var e Episode
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Admit(c.Request().Context(), id, e)
	if err != nil {
		return domain.HTTPError(err, "patient")
	}
	return c.JSON(http.StatusCreated, toView(p))
}

func (h *Handler) UpdateEpisode(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	episodeID, err := parseID(c, "episode_id")
	if err != nil {
		return err
	}
	var change EpisodeChange
	if err := c.Bind(&change); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	change.ID = episodeID
	p, err := h.svc.UpdateEpisode(c.Request().Context(), id, change)
	if err != nil {
		return domain.HTTPError(err, "admission")
	}
	return c.JSON(http.StatusOK, toView(p))
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	episodeID, err := parseID(c, "episode_id")
	if err != nil {
		return err
	}
	p, err := h.svc.Discharge(c.Request().Context(), id, episodeID)
	if err != nil {
		return domain.HTTPError(err, "admission")
	}
	return c.JSON(http.StatusOK, toView(p))
}

func (h *Handler) ListAdmissions(c echo.Context) error {
	items := h.svc.Admissions(EpisodeStatus(c.QueryParam("status")), c.QueryParam("department"))
	type admissionView struct {
		Admission
		StatusTone tone.Tone `json:"status_tone"`
		SafetyTone tone.Tone `json:"safety_tone"`
	}
	views := make([]admissionView, len(items))
	for i, a := range items {
		views[i] = admissionView{Admission: a, StatusTone: a.Status.Tone(), SafetyTone: a.SafetyLevel.Tone()}
	}
	return c.JSON(http.StatusOK, pagination.Page(views, pagination.FromContext(c)))
}
