package admission

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/domain/tone"
)

type EpisodeStatus string

const (
	EpisodeActive      EpisodeStatus = "active"
	EpisodeDischarged  EpisodeStatus = "discharged"
	EpisodeTransferred EpisodeStatus = "transferred"
)

func (s EpisodeStatus) Valid() bool {
	switch s {
	case EpisodeActive, EpisodeDischarged, EpisodeTransferred:
		return true
	}
	return false
}

func (s EpisodeStatus) Tone() tone.Tone {
	switch s {
	case EpisodeActive:
		return tone.Info
	case EpisodeDischarged:
		return tone.Success
	case EpisodeTransferred:
		return tone.Warning
	}
	return tone.Neutral
}

// Closed reports whether the stay has ended.
func (s EpisodeStatus) Closed() bool {
	return s == EpisodeDischarged || s == EpisodeTransferred
}

type SafetyLevel string

const (
	SafetyLow      SafetyLevel = "low"
	SafetyModerate SafetyLevel = "moderate"
	SafetyHigh     SafetyLevel = "high"
)

func (l SafetyLevel) Valid() bool {
	switch l {
	case SafetyLow, SafetyModerate, SafetyHigh:
		return true
	}
	return false
}

func (l SafetyLevel) Tone() tone.Tone {
	switch l {
	case SafetyLow:
		return tone.Success
	case SafetyModerate:
		return tone.Warning
	case SafetyHigh:
		return tone.Danger
	}
	return tone.Neutral
}

// Episode maps to the admission_episodes table: one hospital stay.
type Episode struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	PatientID    uuid.UUID     `db:"patient_id" json:"patient_id"`
	AdmittedAt   time.Time     `db:"admitted_at" json:"admitted_at"`
	Department   string        `db:"department" json:"department"`
	Doctor       *string       `db:"doctor" json:"doctor,omitempty"`
	Diagnosis    *string       `db:"diagnosis" json:"diagnosis,omitempty"`
	Status       EpisodeStatus `db:"status" json:"status"`
	SafetyLevel  SafetyLevel   `db:"safety_level" json:"safety_level"`
	DischargedAt *time.Time    `db:"discharged_at" json:"discharged_at,omitempty"`
}

func (e Episode) clone() Episode {
	c := e
	c.Doctor = cloneStr(e.Doctor)
	c.Diagnosis = cloneStr(e.Diagnosis)
	if e.DischargedAt != nil {
		t := *e.DischargedAt
		c.DischargedAt = &t
	}
	return c
}

// Patient maps to the patients table, with its episodes loaded alongside.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	MRN       string    `db:"mrn" json:"mrn"`
	Name      string    `db:"name" json:"name"`
	BirthDate Date      `db:"birth_date" json:"birth_date"`
	Gender    *string   `db:"gender" json:"gender,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Episodes  []Episode `db:"-" json:"episodes"`
}

func (p Patient) RecordID() uuid.UUID    { return p.ID }
func (p Patient) CreatedTime() time.Time { return p.CreatedAt }

func (p Patient) Clone() Patient {
	c := p
	c.Gender = cloneStr(p.Gender)
	c.Phone = cloneStr(p.Phone)
	if p.Episodes != nil {
		c.Episodes = make([]Episode, len(p.Episodes))
		for i, e := range p.Episodes {
			c.Episodes[i] = e.clone()
		}
	}
	return c
}

// LatestEpisode returns the most recently admitted episode. Ties go to the
// one listed last.
func (p Patient) LatestEpisode() (Episode, bool) {
	if len(p.Episodes) == 0 {
		return Episode{}, false
	}
	latest := p.Episodes[0]
	for _, e := range p.Episodes[1:] {
		if !e.AdmittedAt.Before(latest.AdmittedAt) {
			latest = e
		}
	}
	return latest, true
}

func (p Patient) Episode(id uuid.UUID) (Episode, bool) {
	for _, e := range p.Episodes {
		if e.ID == id {
			return e, true
		}
	}
	return Episode{}, false
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// EpisodeChange updates one existing episode of a patient.
type EpisodeChange struct {
	ID           uuid.UUID      `json:"id"`
	Status       *EpisodeStatus `json:"status,omitempty"`
	SafetyLevel  *SafetyLevel   `json:"safety_level,omitempty"`
	Department   *string        `json:"department,omitempty"`
	Doctor       *string        `json:"doctor,omitempty"`
	Diagnosis    *string        `json:"diagnosis,omitempty"`
	DischargedAt *time.Time     `json:"discharged_at,omitempty"`
}

func (c EpisodeChange) empty() bool {
	return c.Status == nil && c.SafetyLevel == nil && c.Department == nil &&
		c.Doctor == nil && c.Diagnosis == nil && c.DischargedAt == nil
}

func (c EpisodeChange) apply(e *Episode) {
	if c.Status != nil {
		e.Status = *c.Status
	}
	if c.SafetyLevel != nil {
		e.SafetyLevel = *c.SafetyLevel
	}
	if c.Department != nil {
		e.Department = *c.Department
	}
	if c.Doctor != nil {
		e.Doctor = cloneStr(c.Doctor)
	}
	if c.Diagnosis != nil {
		e.Diagnosis = cloneStr(c.Diagnosis)
	}
	if c.DischargedAt != nil {
		t := *c.DischargedAt
		e.DischargedAt = &t
	}
}

// Patch updates a patient's details, changes one episode, or appends a new
// episode. Any combination may be set.
type Patch struct {
	Name    *string        `json:"name,omitempty"`
	Phone   *string        `json:"phone,omitempty"`
	Episode *EpisodeChange `json:"episode,omitempty"`
	Admit   *Episode       `json:"admit,omitempty"`
}

func (p Patch) Apply(pt *Patient) {
	if p.Name != nil {
		pt.Name = *p.Name
	}
	if p.Phone != nil {
		pt.Phone = cloneStr(p.Phone)
	}
	if p.Episode != nil {
		for i := range pt.Episodes {
			if pt.Episodes[i].ID == p.Episode.ID {
				p.Episode.apply(&pt.Episodes[i])
			}
		}
	}
	if p.Admit != nil {
		pt.Episodes = append(pt.Episodes, p.Admit.clone())
	}
}

// columns is the patients-table part of a patch.
func (p Patch) columns() map[string]interface{} {
	m := map[string]interface{}{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Phone != nil {
		m["phone"] = *p.Phone
	}
	return m
}

func (c EpisodeChange) columns() map[string]interface{} {
	m := map[string]interface{}{}
	if c.Status != nil {
		m["status"] = *c.Status
	}
	if c.SafetyLevel != nil {
		m["safety_level"] = *c.SafetyLevel
	}
	if c.Department != nil {
		m["department"] = *c.Department
	}
	if c.Doctor != nil {
		m["doctor"] = *c.Doctor
	}
	if c.Diagnosis != nil {
		m["diagnosis"] = *c.Diagnosis
	}
	if c.DischargedAt != nil {
		m["discharged_at"] = *c.DischargedAt
	}
	return m
}

func sortEpisodes(eps []Episode) {
	sort.SliceStable(eps, func(i, j int) bool {
		return eps[i].AdmittedAt.Before(eps[j].AdmittedAt)
	})
}
