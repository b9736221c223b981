package history

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medops/hospitalops/pkg/pagination"
)

type Handler struct {
	board *Board
}

func NewHandler(b *Board) *Handler {
	return &Handler{board: b}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/history", h.List)
	api.GET("/history/compare", h.Compare)
	api.GET("/reports/summary", h.Summary)
	api.GET("/dashboard", h.Dashboard)
}

// ParseQuery reads sort, dir, type, from and to. type may repeat or be a
// comma separated list. Bare dates in to cover the whole day.
func ParseQuery(c echo.Context) (Query, error) {
	return ParseValues(c.QueryParams())
}

// ParseValues is ParseQuery for values that did not arrive over HTTP, such
// as command line flags.
func ParseValues(v url.Values) (Query, error) {
	q := Query{
		Sort: SortField(v.Get("sort")),
		Dir:  Direction(v.Get("dir")),
	}
	for _, raw := range v["type"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, Type(t))
			}
		}
	}
	if s := v.Get("from"); s != "" {
		t, _, err := parseBound(s)
		if err != nil {
			return q, err
		}
		q.From = &t
	}
	if s := v.Get("to"); s != "" {
		t, dateOnly, err := parseBound(s)
		if err != nil {
			return q, err
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		q.To = &t
	}
	return q, q.normalize()
}

func parseBound(v string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, echo.NewHTTPError(http.StatusBadRequest, "dates must be YYYY-MM-DD or RFC 3339")
	}
	return t, false, nil
}

func (h *Handler) List(c echo.Context) error {
	q, err := ParseQuery(c)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	events, err := h.board.Events(q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.Page(events, pagination.FromContext(c)))
}

func (h *Handler) Compare(c echo.Context) error {
	days := 7
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 366 {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be between 1 and 366")
		}
		days = n
	}
	cmp, err := h.board.Compare(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cmp)
}

func (h *Handler) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.board.Summary())
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.board.Dashboard(10)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}
