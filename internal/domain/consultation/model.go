package consultation

import (
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/domain/tone"
)

type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

func (u Urgency) Tone() tone.Tone {
	switch u {
	case UrgencyRoutine:
		return tone.Info
	case UrgencyUrgent:
		return tone.Warning
	case UrgencyEmergency:
		return tone.Danger
	}
	return tone.Neutral
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Tone() tone.Tone {
	switch s {
	case StatusActive:
		return tone.Info
	case StatusCompleted:
		return tone.Success
	}
	return tone.Neutral
}

// Consultation is a request from one department for a specialist opinion.
type Consultation struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	MRN                  string     `db:"mrn" json:"mrn"`
	PatientName          string     `db:"patient_name" json:"patient_name"`
	RequestingDepartment string     `db:"requesting_department" json:"requesting_department"`
	Specialty            string     `db:"specialty" json:"specialty"`
	Urgency              Urgency    `db:"urgency" json:"urgency"`
	Status               Status     `db:"status" json:"status"`
	Reason               *string    `db:"reason" json:"reason,omitempty"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	CompletedAt          *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

func (c Consultation) RecordID() uuid.UUID    { return c.ID }
func (c Consultation) CreatedTime() time.Time { return c.CreatedAt }

func (c Consultation) Clone() Consultation {
	out := c
	out.Reason = cloneStr(c.Reason)
	out.Notes = cloneStr(c.Notes)
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

type Patch struct {
	Status      *Status    `json:"status,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (p Patch) Apply(c *Consultation) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Notes != nil {
		c.Notes = cloneStr(p.Notes)
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
}

func (p Patch) Empty() bool {
	return p.Status == nil && p.Notes == nil && p.CompletedAt == nil
}
