package history

import (
	"context"
	"errors"
	"time"

	"github.com/medops/hospitalops/internal/domain/admission"
	"github.com/medops/hospitalops/internal/domain/appointment"
	"github.com/medops/hospitalops/internal/domain/consultation"
	"github.com/medops/hospitalops/internal/store"
)

// Source is the part of an entity service the board needs besides its
// collection.
type Source interface {
	Refresh(ctx context.Context) error
	Status() store.Status
}

type PatientSource interface {
	Source
	Patients() []admission.Patient
}

type ConsultationSource interface {
	Source
	Consultations() []consultation.Consultation
}

type AppointmentSource interface {
	Source
	Appointments() []appointment.Appointment
}

// Board reads the three entity services and derives every aggregated view.
type Board struct {
	patients      PatientSource
	consultations ConsultationSource
	appointments  AppointmentSource
	hospital      string
	now           func() time.Time
}

func NewBoard(hospital string, p PatientSource, c ConsultationSource, a AppointmentSource) *Board {
	return &Board{patients: p, consultations: c, appointments: a, hospital: hospital, now: time.Now}
}

func (b *Board) Hospital() string { return b.hospital }

// Refresh refetches all three stores. Each store records its own failure;
// the joined error is returned for logging.
func (b *Board) Refresh(ctx context.Context) error {
	return errors.Join(
		b.patients.Refresh(ctx),
		b.consultations.Refresh(ctx),
		b.appointments.Refresh(ctx),
	)
}

func (b *Board) Records() []Record {
	return Records(b.patients.Patients(), b.consultations.Consultations(), b.appointments.Appointments())
}

func (b *Board) Events(q Query) ([]Event, error) {
	return Reconcile(b.Records(), q)
}

func (b *Board) Summary() Summary {
	return Summarize(b.patients.Patients(), b.consultations.Consultations(), b.appointments.Appointments())
}

// Compare compares the period of the given length ending now with the one
// before it.
func (b *Board) Compare(length time.Duration) (Comparison, error) {
	events, err := b.Events(Query{})
	if err != nil {
		return Comparison{}, err
	}
	return Compare(events, b.now(), length), nil
}

type Dashboard struct {
	Hospital    string         `json:"hospital"`
	GeneratedAt time.Time      `json:"generated_at"`
	Stores      []store.Status `json:"stores"`
	Summary     Summary        `json:"summary"`
	Recent      []Event        `json:"recent"`
}

// Dashboard snapshots store health, the summary and the most recent events.
func (b *Board) Dashboard(recent int) (Dashboard, error) {
	events, err := b.Events(Query{})
	if err != nil {
		return Dashboard{}, err
	}
	if len(events) > recent {
		events = events[:recent]
	}
	return Dashboard{
		Hospital:    b.hospital,
		GeneratedAt: b.now(),
		Stores: []store.Status{
			b.patients.Status(),
			b.consultations.Status(),
			b.appointments.Status(),
		},
		Summary: b.Summary(),
		Recent:  events,
	}, nil
}
