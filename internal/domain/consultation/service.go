package consultation

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
	now   func() time.Time
}

func NewService(s *Store) *Service {
	return &Service{store: s, now: time.Now}
}

func (s *Service) Refresh(ctx context.Context) error { return s.store.Fetch(ctx) }

func (s *Service) State() store.State[Consultation] { return s.store.State() }
func (s *Service) Status() store.Status             { return s.store.Status() }

func (s *Service) Consultations() []Consultation { return s.store.Items() }

func (s *Service) Create(ctx context.Context, c *Consultation) error {
	c.MRN = strings.TrimSpace(c.MRN)
	c.PatientName = strings.TrimSpace(c.PatientName)
	if c.MRN == "" {
		return domain.Invalidf("mrn is required")
	}
	if c.PatientName == "" {
		return domain.Invalidf("patient_name is required")
	}
	if c.RequestingDepartment == "" {
		return domain.Invalidf("requesting_department is required")
	}
	if c.Specialty == "" {
		return domain.Invalidf("specialty is required")
	}
	if c.Urgency == "" {
		c.Urgency = UrgencyRoutine
	}
	if !c.Urgency.Valid() {
		return domain.Invalidf("invalid consultation urgency: %s", c.Urgency)
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if !c.Status.Valid() {
		return domain.Invalidf("invalid consultation status: %s", c.Status)
	}
	if c.Status == StatusCompleted && c.CompletedAt == nil {
		now := s.now()
		c.CompletedAt = &now
	}
	c.ID = uuid.Nil

	stored, err := s.store.Add(ctx, *c)
	if err != nil {
		return err
	}
	*c = stored
	return nil
}

func (s *Service) Get(id uuid.UUID) (Consultation, error) {
	c, ok := s.store.Get(id)
	if !ok {
		return Consultation{}, store.ErrNotFound
	}
	return c, nil
}

// Update stamps completed_at the first time a consultation is completed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (Consultation, error) {
	if p.Empty() {
		return Consultation{}, domain.Invalidf("nothing to update")
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return Consultation{}, domain.Invalidf("invalid consultation status: %s", *p.Status)
		}
		if *p.Status == StatusCompleted && p.CompletedAt == nil {
			now := s.now()
			p.CompletedAt = &now
		}
	}
	return s.store.Update(ctx, id, p)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (Consultation, error) {
	status := StatusCompleted
	return s.Update(ctx, id, Patch{Status: &status})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Remove(ctx, id)
}

type Filter struct {
	Status    Status
	Urgency   Urgency
	MRN       string
	Specialty string
}

func (s *Service) List(f Filter) []Consultation {
	all := s.store.Items()
	out := make([]Consultation, 0, len(all))
	for _, c := range all {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Urgency != "" && c.Urgency != f.Urgency {
			continue
		}
		if f.MRN != "" && c.MRN != f.MRN {
			continue
		}
		if f.Specialty != "" && !strings.EqualFold(c.Specialty, f.Specialty) {
			continue
		}
		out = append(out, c)
	}
	return out
}
