package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/platform/restdb"
	"github.com/medops/hospitalops/internal/store"
)

const table = "appointments"

type repoREST struct{ c *restdb.Client }

func NewRepoREST(c *restdb.Client) Repository { return &repoREST{c: c} }

// newRow leaves created_at to the column default.
type newRow struct {
	ID           uuid.UUID  `json:"id"`
	MRN          string     `json:"mrn"`
	PatientName  string     `json:"patient_name"`
	Specialty    string     `json:"specialty"`
	Type         Type       `json:"type"`
	Status       Status     `json:"status"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

func (r *repoREST) List(ctx context.Context, since time.Time) ([]Appointment, error) {
	q := restdb.Query{Order: "created_at.desc"}
	if !since.IsZero() {
		q.Filters = append(q.Filters, restdb.Gte("created_at", since))
	}
	items := []Appointment{}
	if err := r.c.Select(ctx, table, q, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repoREST) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := newRow{
		ID: a.ID, MRN: a.MRN, PatientName: a.PatientName, Specialty: a.Specialty,
		Type: a.Type, Status: a.Status, ScheduledFor: a.ScheduledFor, Notes: a.Notes,
	}
	return r.c.Insert(ctx, table, row, a)
}

func (r *repoREST) Update(ctx context.Context, id uuid.UUID, p Patch) error {
	n, err := r.c.Update(ctx, table, []restdb.Filter{restdb.Eq("id", id)}, p)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repoREST) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.c.Delete(ctx, table, []restdb.Filter{restdb.Eq("id", id)})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repoREST) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return r.c.Delete(ctx, table, []restdb.Filter{restdb.Lt("created_at", cutoff)})
}
