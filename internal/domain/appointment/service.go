package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/domain"
	"github.com/medops/hospitalops/internal/store"
)

type Service struct {
	store *Store
}

func NewService(s *Store) *Service {
	return &Service{store: s}
}

func (s *Service) Refresh(ctx context.Context) error {
	return s.store.Fetch(ctx)
}

func (s *Service) State() store.State[Appointment] { return s.store.State() }
func (s *Service) Status() store.Status            { return s.store.Status() }

// Appointments returns the cached collection, newest booking first.
func (s *Service) Appointments() []Appointment { return s.store.Items() }

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	a.MRN = strings.TrimSpace(a.MRN)
	a.PatientName = strings.TrimSpace(a.PatientName)
	if a.MRN == "" {
		return domain.Invalidf("mrn is required")
	}
	if a.PatientName == "" {
		return domain.Invalidf("patient_name is required")
	}
	if a.Specialty == "" {
		return domain.Invalidf("specialty is required")
	}
	if a.Type == "" {
		a.Type = TypeRoutine
	}
	if !a.Type.Valid() {
		return domain.Invalidf("invalid appointment type: %s", a.Type)
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if !a.Status.Valid() {
		return domain.Invalidf("invalid appointment status: %s", a.Status)
	}
	a.ID = uuid.Nil

	stored, err := s.store.Add(ctx, *a)
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

func (s *Service) Get(id uuid.UUID) (Appointment, error) {
	a, ok := s.store.Get(id)
	if !ok {
		return Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (Appointment, error) {
	if p.Empty() {
		return Appointment{}, domain.Invalidf("nothing to update")
	}
	if p.Status != nil && !p.Status.Valid() {
		return Appointment{}, domain.Invalidf("invalid appointment status: %s", *p.Status)
	}
	return s.store.Update(ctx, id, p)
}

func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) (Appointment, error) {
	return s.Update(ctx, id, Patch{Status: &status})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Remove(ctx, id)
}

// Sweep purges appointments booked before the retention window.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx)
}

type Filter struct {
	Status    Status
	Type      Type
	MRN       string
	Specialty string
	// Day keeps appointments whose event date falls on the same calendar
	// day, in Day's location.
	Day *time.Time
}

func (s *Service) List(f Filter) []Appointment {
	all := s.store.Items()
	out := make([]Appointment, 0, len(all))
	for _, a := range all {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.MRN != "" && a.MRN != f.MRN {
			continue
		}
		if f.Specialty != "" && !strings.EqualFold(a.Specialty, f.Specialty) {
			continue
		}
		if f.Day != nil && !sameDay(a.EventDate().In(f.Day.Location()), *f.Day) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
