package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/domain/tone"
)

type Type string

const (
	TypeRoutine Type = "routine"
	TypeUrgent  Type = "urgent"
)

func (t Type) Valid() bool {
	switch t {
	case TypeRoutine, TypeUrgent:
		return true
	}
	return false
}

func (t Type) Tone() tone.Tone {
	switch t {
	case TypeRoutine:
		return tone.Info
	case TypeUrgent:
		return tone.Danger
	}
	return tone.Neutral
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Tone() tone.Tone {
	switch s {
	case StatusPending:
		return tone.Warning
	case StatusCompleted:
		return tone.Success
	case StatusCancelled:
		return tone.Danger
	}
	return tone.Neutral
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	MRN          string     `db:"mrn" json:"mrn"`
	PatientName  string     `db:"patient_name" json:"patient_name"`
	Specialty    string     `db:"specialty" json:"specialty"`
	Type         Type       `db:"type" json:"type"`
	Status       Status     `db:"status" json:"status"`
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

func (a Appointment) RecordID() uuid.UUID    { return a.ID }
func (a Appointment) CreatedTime() time.Time { return a.CreatedAt }

func (a Appointment) Clone() Appointment {
	c := a
	if a.ScheduledFor != nil {
		t := *a.ScheduledFor
		c.ScheduledFor = &t
	}
	if a.Notes != nil {
		n := *a.Notes
		c.Notes = &n
	}
	return c
}

// EventDate is when the visit happens, or when it was booked if no slot
// has been set.
func (a Appointment) EventDate() time.Time {
	if a.ScheduledFor != nil {
		return *a.ScheduledFor
	}
	return a.CreatedAt
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Status       *Status    `json:"status,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

func (p Patch) Apply(a *Appointment) {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.ScheduledFor != nil {
		t := *p.ScheduledFor
		a.ScheduledFor = &t
	}
	if p.Notes != nil {
		n := *p.Notes
		a.Notes = &n
	}
}

func (p Patch) Empty() bool {
	return p.Status == nil && p.ScheduledFor == nil && p.Notes == nil
}
