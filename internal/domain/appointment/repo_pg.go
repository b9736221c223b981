package appointment

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

const apptCols = `id, mrn, patient_name, specialty, type, status, scheduled_for, notes, created_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.MRN, &a.PatientName, &a.Specialty, &a.Type, &a.Status,
		&a.ScheduledFor, &a.Notes, &a.CreatedAt)
	return a, err
}

func (r *repoPG) List(ctx context.Context, since time.Time) ([]Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointments`
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

	items := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO appointments (id, mrn, patient_name, specialty, type, status, scheduled_for, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		a.ID, a.MRN, a.PatientName, a.Specialty, a.Type, a.Status, a.ScheduledFor, a.Notes,
	).Scan(&a.CreatedAt)
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, p Patch) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE appointments SET
			status = COALESCE($2, status),
			scheduled_for = COALESCE($3, scheduled_for),
			notes = COALESCE($4, notes),
			updated_at = NOW()
		WHERE id = $1`,
		id, p.Status, p.ScheduledFor, p.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM appointments WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
