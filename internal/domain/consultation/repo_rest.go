package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/platform/restdb"
	"github.com/medops/hospitalops/internal/store"
)

const table = "consultations"

type repoREST struct{ c *restdb.Client }

func NewRepoREST(c *restdb.Client) Repository { return &repoREST{c: c} }

type newRow struct {
	ID                   uuid.UUID  `json:"id"`
	MRN                  string     `json:"mrn"`
	PatientName          string     `json:"patient_name"`
	RequestingDepartment string     `json:"requesting_department"`
	Specialty            string     `json:"specialty"`
	Urgency              Urgency    `json:"urgency"`
	Status               Status     `json:"status"`
	Reason               *string    `json:"reason,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

func (r *repoREST) List(ctx context.Context, since time.Time) ([]Consultation, error) {
	q := restdb.Query{Order: "created_at.desc"}
	if !since.IsZero() {
		q.Filters = append(q.Filters, restdb.Gte("created_at", since))
	}
	items := []Consultation{}
	if err := r.c.Select(ctx, table, q, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repoREST) Insert(ctx context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	row := newRow{
		ID: c.ID, MRN: c.MRN, PatientName: c.PatientName,
		RequestingDepartment: c.RequestingDepartment, Specialty: c.Specialty,
		Urgency: c.Urgency, Status: c.Status, Reason: c.Reason, Notes: c.Notes,
		CompletedAt: c.CompletedAt,
	}
	return r.c.Insert(ctx, table, row, c)
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
