package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures. Parameters
// are bound positionally in the order listed; an absent parameter binds NULL.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "admissions-by-department",
		Name:        "Admissions by Department",
		Description: "Admission episodes per department and status, optionally since a date",
		SQL: `SELECT department, status, COUNT(*) AS total FROM admission_episodes
WHERE ($1::timestamptz IS NULL OR admitted_at >= $1::timestamptz)
GROUP BY department, status ORDER BY department, total DESC`,
		Parameters: []string{"since"},
	},
	{
		ID:          "active-census",
		Name:        "Active Census",
		Description: "Currently admitted patients per department and safety level",
		SQL: `SELECT department, safety_level, COUNT(*) AS total FROM admission_episodes
WHERE status = 'active' GROUP BY department, safety_level ORDER BY department, safety_level`,
		Parameters: []string{},
	},
	{
		ID:          "consultations-by-specialty",
		Name:        "Consultations by Specialty",
		Description: "Consultation requests per specialty and urgency",
		SQL:         `SELECT specialty, urgency, COUNT(*) AS total FROM consultations GROUP BY specialty, urgency ORDER BY specialty, total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "consultation-turnaround",
		Name:        "Consultation Turnaround",
		Description: "Average hours from request to completion per specialty",
		SQL: `SELECT specialty, COUNT(*) AS completed,
ROUND(AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 3600)::numeric, 1) AS avg_hours
FROM consultations WHERE status = 'completed' AND completed_at IS NOT NULL
GROUP BY specialty ORDER BY avg_hours DESC`,
		Parameters: []string{},
	},
	{
		ID:          "appointments-by-specialty",
		Name:        "Appointments by Specialty",
		Description: "Appointments per specialty and status",
		SQL:         `SELECT specialty, status, COUNT(*) AS total FROM appointments GROUP BY specialty, status ORDER BY specialty, total DESC`,
		Parameters:  []string{},
	},
}

// Querier is the part of a pgx pool the measures need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Handler provides HTTP handlers for the reporting API. db is nil when the
// service runs against the REST table backend; measures then answer 501.
type Handler struct {
	db     Querier
	source Source
}

func NewHandler(db Querier, source Source) *Handler {
	return &Handler{db: db, source: source}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
	g.GET("/export.pdf", h.ExportPDF)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}
	if h.db == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "measures require the postgres backend")
	}

	params := map[string]string{}
	args := make([]interface{}, len(measure.Parameters))
	for i, p := range measure.Parameters {
		v := c.QueryParam(p)
		if v == "" {
			continue
		}
		params[p] = v
		arg, err := bindParam(p, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		args[i] = arg
	}

	results, err := executeSQL(c.Request().Context(), h.db, measure.SQL, args...)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	})
}

func bindParam(name, v string) (interface{}, error) {
	switch name {
	case "since":
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("%s must be YYYY-MM-DD or RFC 3339", name)
		}
		return t, nil
	default:
		return v, nil
	}
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func executeSQL(ctx context.Context, db Querier, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
