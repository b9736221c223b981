package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medops/hospitalops/internal/domain/admission"
	"github.com/medops/hospitalops/internal/domain/appointment"
	"github.com/medops/hospitalops/internal/domain/consultation"
	"github.com/medops/hospitalops/internal/store"
)

type fakeSource struct {
	name       string
	refreshErr error
	refreshed  int
}

func (f *fakeSource) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

func (f *fakeSource) Status() store.Status { return store.Status{Name: f.name} }

type fakePatients struct {
	fakeSource
	items []admission.Patient
}

func (f *fakePatients) Patients() []admission.Patient { return f.items }

type fakeConsultations struct {
	fakeSource
	items []consultation.Consultation
}

func (f *fakeConsultations) Consultations() []consultation.Consultation { return f.items }

type fakeAppointments struct {
	fakeSource
	items []appointment.Appointment
}

func (f *fakeAppointments) Appointments() []appointment.Appointment { return f.items }

func newTestBoard() (*Board, *fakePatients, *fakeConsultations, *fakeAppointments) {
	p := &fakePatients{fakeSource: fakeSource{name: "patients"}, items: []admission.Patient{
		samplePatient("Ada", "M1", "ICU", base, admission.EpisodeDischarged),
	}}
	c := &fakeConsultations{fakeSource: fakeSource{name: "consultations"}, items: []consultation.Consultation{
		sampleConsultation("Ben", "Surgery", base.Add(time.Hour), consultation.StatusCompleted),
	}}
	a := &fakeAppointments{fakeSource: fakeSource{name: "appointments"}, items: []appointment.Appointment{
		sampleAppointment("Cy", "ENT", base.Add(2*time.Hour), appointment.StatusPending),
	}}
	b := NewBoard("St. Elsewhere", p, c, a)
	b.now = func() time.Time { return base.Add(24 * time.Hour) }
	return b, p, c, a
}

func TestBoard_RefreshJoinsErrors(t *testing.T) {
	b, p, c, a := newTestBoard()
	boom := errors.New("boom")
	c.refreshErr = boom

	err := b.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.refreshed)
	assert.Equal(t, 1, c.refreshed)
	assert.Equal(t, 1, a.refreshed)
}

func TestBoard_Dashboard(t *testing.T) {
	b, _, _, _ := newTestBoard()

	d, err := b.Dashboard(2)
	require.NoError(t, err)
	assert.Equal(t, "St. Elsewhere", d.Hospital)
	assert.Equal(t, base.Add(24*time.Hour), d.GeneratedAt)
	require.Len(t, d.Stores, 3)
	assert.Equal(t, "patients", d.Stores[0].Name)
	assert.Equal(t, 67, d.Summary.CompletionRate)
	require.Len(t, d.Recent, 2)
	assert.Equal(t, "Cy", d.Recent[0].Name)
	assert.Equal(t, "Ben", d.Recent[1].Name)
}

func TestBoard_Compare(t *testing.T) {
	b, _, _, _ := newTestBoard()
	cmp, err := b.Compare(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, cmp.Total.Current)
	assert.Nil(t, cmp.Total.ChangePct)
}

func TestHandler_List(t *testing.T) {
	b, _, _, _ := newTestBoard()
	h := NewHandler(b)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/history?sort=name&dir=asc&type=admission,consultation", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data  []Event `json:"data"`
		Total int     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, []string{"Ada", "Ben"}, names(body.Data))
}

func TestHandler_List_BadQuery(t *testing.T) {
	h := NewHandler(&Board{})
	e := echo.New()

	for _, target := range []string{
		"/history?sort=mrn",
		"/history?type=surgery",
		"/history?from=yesterday",
		"/history?from=2026-10-10&to=2026-10-01",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		err := h.List(c)
		var he *echo.HTTPError
		if assert.ErrorAs(t, err, &he, target) {
			assert.Equal(t, http.StatusBadRequest, he.Code, target)
		}
	}
}

func TestParseQuery_DateOnlyToCoversDay(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/history?from=2026-10-01&to=2026-10-01&type=appointment&type=admission", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	q, err := ParseQuery(c)
	require.NoError(t, err)
	assert.Equal(t, []Type{TypeAppointment, TypeAdmission}, q.Types)
	require.NotNil(t, q.To)
	assert.Equal(t, time.Date(2026, 10, 1, 23, 59, 59, 999999999, time.UTC), *q.To)
	assert.Equal(t, SortDate, q.Sort)
	assert.Equal(t, Desc, q.Dir)
}

func TestHandler_Compare_Days(t *testing.T) {
	b, _, _, _ := newTestBoard()
	h := NewHandler(b)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/history/compare?days=0", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	var he *echo.HTTPError
	require.ErrorAs(t, h.Compare(c), &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)

	req = httptest.NewRequest(http.MethodGet, "/history/compare?days=30", nil)
	rec := httptest.NewRecorder()
	c = e.NewContext(req, rec)
	require.NoError(t, h.Compare(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var cmp Comparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	assert.Equal(t, base.Add(24*time.Hour).Add(-30*24*time.Hour), cmp.Current.From)
}

func TestHandler_SummaryAndDashboard(t *testing.T) {
	b, _, _, _ := newTestBoard()
	h := NewHandler(b)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, h.Summary(e.NewContext(httptest.NewRequest(http.MethodGet, "/reports/summary", nil), rec)))
	var s Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 3, s.Total)

	rec = httptest.NewRecorder()
	require.NoError(t, h.Dashboard(e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)))
	var d Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Len(t, d.Recent, 3)
}

func TestParseValues_RepeatedAndListedTypes(t *testing.T) {
	q, err := ParseValues(url.Values{
		"type": {"admission", "consultation,appointment"},
		"sort": {"name"},
		"dir":  {"asc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Type{TypeAdmission, TypeConsultation, TypeAppointment}, q.Types)
	assert.Equal(t, SortName, q.Sort)
	assert.Equal(t, Asc, q.Dir)

	_, err = ParseValues(url.Values{"from": {"2026-10-19"}, "to": {"2026-10-01"}})
	assert.Error(t, err)
}
