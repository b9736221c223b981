package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/platform/restdb"
	"github.com/medops/hospitalops/internal/store"
)

const (
	patientsTable = "patients"
	episodesTable = "admission_episodes"
)

// Patients are read with their episodes embedded through the foreign key.
const patientSelect = "*,episodes:admission_episodes(*)"

type repoREST struct{ c *restdb.Client }

func NewRepoREST(c *restdb.Client) Repository { return &repoREST{c: c} }

type patientRow struct {
	ID        uuid.UUID `json:"id"`
	MRN       string    `json:"mrn"`
	Name      string    `json:"name"`
	BirthDate Date      `json:"birth_date"`
	Gender    *string   `json:"gender,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
}

func (r *repoREST) List(ctx context.Context, since time.Time) ([]Patient, error) {
	q := restdb.Query{Select: patientSelect, Order: "created_at.desc"}
	if !since.IsZero() {
		q.Filters = append(q.Filters, restdb.Gte("created_at", since))
	}
	items := []Patient{}
	if err := r.c.Select(ctx, patientsTable, q, &items); err != nil {
		return nil, err
	}
	for i := range items {
		sortEpisodes(items[i].Episodes)
	}
	return items, nil
}

// Insert is not atomic over REST: a failed episode insert leaves the patient
// row behind, and the next fetch shows it without that episode.
func (r *repoREST) Insert(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := patientRow{ID: p.ID, MRN: p.MRN, Name: p.Name, BirthDate: p.BirthDate, Gender: p.Gender, Phone: p.Phone}
	var stored Patient
	if err := r.c.Insert(ctx, patientsTable, row, &stored); err != nil {
		return err
	}
	p.CreatedAt = stored.CreatedAt

	for i := range p.Episodes {
		e := &p.Episodes[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.PatientID = p.ID
		if err := r.c.Insert(ctx, episodesTable, e, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoREST) Update(ctx context.Context, id uuid.UUID, p Patch) error {
	byID := []restdb.Filter{restdb.Eq("id", id)}

	cols := p.columns()
	cols["updated_at"] = time.Now().UTC()
	n, err := r.c.Update(ctx, patientsTable, byID, cols)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if c := p.Episode; c != nil {
		cols := c.columns()
		cols["updated_at"] = time.Now().UTC()
		n, err := r.c.Update(ctx, episodesTable,
			[]restdb.Filter{restdb.Eq("id", c.ID), restdb.Eq("patient_id", id)}, cols)
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
	}

	if p.Admit != nil {
		e := *p.Admit
		e.PatientID = id
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if err := r.c.Insert(ctx, episodesTable, e, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoREST) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.c.Delete(ctx, patientsTable, []restdb.Filter{restdb.Eq("id", id)})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
