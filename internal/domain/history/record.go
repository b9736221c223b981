// Package history merges patients, consultations and appointments into one
// event timeline, and derives the summary counts and period comparison the
// dashboard and reports show.
package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/domain/admission"
	"github.com/medops/hospitalops/internal/domain/appointment"
	"github.com/medops/hospitalops/internal/domain/consultation"
	"github.com/medops/hospitalops/internal/domain/tone"
)

type Type string

const (
	TypeAdmission    Type = "admission"
	TypeConsultation Type = "consultation"
	TypeAppointment  Type = "appointment"
)

// Types is the fixed display order of event types.
var Types = []Type{TypeAdmission, TypeConsultation, TypeAppointment}

func (t Type) Valid() bool {
	switch t {
	case TypeAdmission, TypeConsultation, TypeAppointment:
		return true
	}
	return false
}

var ErrUnknownRecord = errors.New("unknown record variant")

// Record is one source row. The concrete variants are AdmissionRecord,
// ConsultationRecord and AppointmentRecord.
type Record interface {
	record()
}

// AdmissionRecord is one episode of a patient.
type AdmissionRecord struct {
	Patient admission.Patient
	Episode admission.Episode
}

type ConsultationRecord struct {
	Consultation consultation.Consultation
}

type AppointmentRecord struct {
	Appointment appointment.Appointment
}

func (AdmissionRecord) record()    {}
func (ConsultationRecord) record() {}
func (AppointmentRecord) record()  {}

// Event is the normalized row of the timeline.
type Event struct {
	Type       Type      `json:"type"`
	Date       time.Time `json:"date"`
	Name       string    `json:"name"`
	Identifier string    `json:"identifier"`
	Department string    `json:"department"`
	Status     string    `json:"status"`
	Tone       tone.Tone `json:"tone"`
	Details    string    `json:"details"`
	SourceID   uuid.UUID `json:"source_id"`
}

// Records wraps the three collections. Each patient contributes one record
// per admission episode.
func Records(patients []admission.Patient, consultations []consultation.Consultation, appointments []appointment.Appointment) []Record {
	out := make([]Record, 0, len(patients)+len(consultations)+len(appointments))
	for _, p := range patients {
		for _, e := range p.Episodes {
			out = append(out, AdmissionRecord{Patient: p, Episode: e})
		}
	}
	for _, c := range consultations {
		out = append(out, ConsultationRecord{Consultation: c})
	}
	for _, a := range appointments {
		out = append(out, AppointmentRecord{Appointment: a})
	}
	return out
}

func Normalize(r Record) (Event, error) {
	switch v := r.(type) {
	case AdmissionRecord:
		e := v.Episode
		return Event{
			Type:       TypeAdmission,
			Date:       e.AdmittedAt,
			Name:       v.Patient.Name,
			Identifier: v.Patient.MRN,
			Department: e.Department,
			Status:     string(e.Status),
			Tone:       e.Status.Tone(),
			Details:    joinDetails(deref(e.Doctor), deref(e.Diagnosis), "safety "+string(e.SafetyLevel)),
			SourceID:   e.ID,
		}, nil
	case ConsultationRecord:
		c := v.Consultation
		return Event{
			Type:       TypeConsultation,
			Date:       c.CreatedAt,
			Name:       c.PatientName,
			Identifier: c.MRN,
			Department: c.RequestingDepartment,
			Status:     string(c.Status),
			Tone:       c.Status.Tone(),
			Details:    joinDetails(c.Specialty+" ("+string(c.Urgency)+")", deref(c.Reason)),
			SourceID:   c.ID,
		}, nil
	case AppointmentRecord:
		a := v.Appointment
		return Event{
			Type:       TypeAppointment,
			Date:       a.EventDate(),
			Name:       a.PatientName,
			Identifier: a.MRN,
			Department: a.Specialty,
			Status:     string(a.Status),
			Tone:       a.Status.Tone(),
			Details:    joinDetails(string(a.Type)+" visit", deref(a.Notes)),
			SourceID:   a.ID,
		}, nil
	default:
		return Event{}, fmt.Errorf("%w: %T", ErrUnknownRecord, r)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinDetails(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "; ")
}
