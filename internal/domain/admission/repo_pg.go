package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medops/hospitalops/internal/platform/db"
	"github.com/medops/hospitalops/internal/store"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, mrn, name, birth_date, gender, phone, created_at`

const episodeCols = `e.id, e.patient_id, e.admitted_at, e.department, e.doctor, e.diagnosis,
	e.status, e.safety_level, e.discharged_at`

func scanPatient(row pgx.Row) (Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.Name, &p.BirthDate, &p.Gender, &p.Phone, &p.CreatedAt)
	return p, err
}

func scanEpisode(row pgx.Row) (Episode, error) {
	var e Episode
	err := row.Scan(&e.ID, &e.PatientID, &e.AdmittedAt, &e.Department, &e.Doctor, &e.Diagnosis,
		&e.Status, &e.SafetyLevel, &e.DischargedAt)
	return e, err
}

func (r *repoPG) List(ctx context.Context, since time.Time) ([]Patient, error) {
	where := ``
	var args []interface{}
	if !since.IsZero() {
		where = ` WHERE created_at >= $1`
		args = append(args, since)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+patientCols+` FROM patients`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	patients := []Patient{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[p.ID] = len(patients)
		patients = append(patients, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return patients, nil
	}

	epWhere := ``
	if !since.IsZero() {
		epWhere = ` WHERE p.created_at >= $1`
	}
	erows, err := r.pool.Query(ctx, `
		SELECT `+episodeCols+`
		FROM admission_episodes e JOIN patients p ON p.id = e.patient_id`+epWhere+`
		ORDER BY e.admitted_at`, args...)
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		e, err := scanEpisode(erows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[e.PatientID]; ok {
			patients[i].Episodes = append(patients[i].Episodes, e)
		}
	}
	return patients, erows.Err()
}

func insertEpisode(ctx context.Context, q db.Querier, e *Episode) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO admission_episodes (id, patient_id, admitted_at, department, doctor, diagnosis,
			status, safety_level, discharged_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.PatientID, e.AdmittedAt, e.Department, e.Doctor, e.Diagnosis,
		e.Status, e.SafetyLevel, e.DischargedAt)
	return err
}

func (r *repoPG) Insert(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return db.InTx(ctx, r.pool, func(q db.Querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO patients (id, mrn, name, birth_date, gender, phone)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING created_at`,
			p.ID, p.MRN, p.Name, p.BirthDate, p.Gender, p.Phone,
		).Scan(&p.CreatedAt)
		if err != nil {
			return err
		}
		for i := range p.Episodes {
			p.Episodes[i].PatientID = p.ID
			if err := insertEpisode(ctx, q, &p.Episodes[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) Update(ctx context.Context, id uuid.UUID, p Patch) error {
	return db.InTx(ctx, r.pool, func(q db.Querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE patients SET
				name = COALESCE($2, name),
				phone = COALESCE($3, phone),
				updated_at = NOW()
			WHERE id = $1`,
			id, p.Name, p.Phone)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}

		if c := p.Episode; c != nil {
			tag, err := q.Exec(ctx, `
				UPDATE admission_episodes SET
					status = COALESCE($3, status),
					safety_level = COALESCE($4, safety_level),
					department = COALESCE($5, department),
					doctor = COALESCE($6, doctor),
					diagnosis = COALESCE($7, diagnosis),
					discharged_at = COALESCE($8, discharged_at),
					updated_at = NOW()
				WHERE id = $1 AND patient_id = $2`,
				c.ID, id, c.Status, c.SafetyLevel, c.Department, c.Doctor, c.Diagnosis, c.DischargedAt)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return store.ErrNotFound
			}
		}

		if p.Admit != nil {
			e := *p.Admit
			e.PatientID = id
			if err := insertEpisode(ctx, q, &e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the patient; episodes go with it through ON DELETE CASCADE.
func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
