package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medops/hospitalops/internal/platform/db"
	"github.com/medops/hospitalops/internal/store"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

const consultCols = `id, mrn, patient_name, requesting_department, specialty, urgency, status,
	reason, notes, created_at, completed_at`

func scanConsultation(row pgx.Row) (Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.MRN, &c.PatientName, &c.RequestingDepartment, &c.Specialty,
		&c.Urgency, &c.Status, &c.Reason, &c.Notes, &c.CreatedAt, &c.CompletedAt)
	return c, err
}

func (r *repoPG) List(ctx context.Context, since time.Time) ([]Consultation, error) {
	query := `SELECT ` + consultCols + ` FROM consultations`
	var args []interface{}
	if !since.IsZero() {
		query += ` WHERE created_at >= $1`
		args = append(args, since)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Consultation{}
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) Insert(ctx context.Context, c *Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO consultations (id, mrn, patient_name, requesting_department, specialty,
			urgency, status, reason, notes, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		c.ID, c.MRN, c.PatientName, c.RequestingDepartment, c.Specialty,
		c.Urgency, c.Status, c.Reason, c.Notes, c.CompletedAt,
	).Scan(&c.CreatedAt)
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, p Patch) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE consultations SET
			status = COALESCE($2, status),
			notes = COALESCE($3, notes),
			completed_at = COALESCE($4, completed_at),
			updated_at = NOW()
		WHERE id = $1`,
		id, p.Status, p.Notes, p.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
