package admission

import (
	"context"
	"sort"
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

func (s *Service) State() store.State[Patient] { return s.store.State() }
func (s *Service) Status() store.Status        { return s.store.Status() }

func (s *Service) Patients() []Patient { return s.store.Items() }

// prepareEpisode fills defaults and validates one episode for patientID.
func (s *Service) prepareEpisode(e *Episode, patientID uuid.UUID) error {
	e.Department = strings.TrimSpace(e.Department)
	if e.Department == "" {
		return domain.Invalidf("department is required")
	}
	if e.AdmittedAt.IsZero() {
		e.AdmittedAt = s.now()
	}
	if e.Status == "" {
		e.Status = EpisodeActive
	}
	if !e.Status.Valid() {
		return domain.Invalidf("invalid episode status: %s", e.Status)
	}
	if e.SafetyLevel == "" {
		e.SafetyLevel = SafetyLow
	}
	if !e.SafetyLevel.Valid() {
		return domain.Invalidf("invalid safety level: %s", e.SafetyLevel)
	}
	if e.Status.Closed() && e.DischargedAt == nil {
		now := s.now()
		e.DischargedAt = &now
	}
	if e.DischargedAt != nil && e.DischargedAt.Before(e.AdmittedAt) {
		return domain.Invalidf("discharged_at is before admitted_at")
	}
	e.ID = uuid.New()
	e.PatientID = patientID
	return nil
}

// Register creates a patient together with their first admission episode(s).
func (s *Service) Register(ctx context.Context, p *Patient) error {
	p.MRN = strings.TrimSpace(p.MRN)
	p.Name = strings.TrimSpace(p.Name)
	if p.MRN == "" {
		return domain.Invalidf("mrn is required")
	}
	if p.Name == "" {
		return domain.Invalidf("name is required")
	}
	if len(p.Episodes) == 0 {
		return domain.Invalidf("at least one admission episode is required")
	}
	p.ID = uuid.New()
	for i := range p.Episodes {
		if err := s.prepareEpisode(&p.Episodes[i], p.ID); err != nil {
			return err
		}
	}
	if err := singleActive(p.Episodes); err != nil {
		return err
	}
	sortEpisodes(p.Episodes)

	stored, err := s.store.Add(ctx, *p)
	if err != nil {
		return err
	}
	*p = stored
	return nil
}

func (s *Service) Get(id uuid.UUID) (Patient, error) {
	p, ok := s.store.Get(id)
	if !ok {
		return Patient{}, store.ErrNotFound
	}
	return p, nil
}

func singleActive(episodes []Episode) error {
	active := 0
	for _, e := range episodes {
		if e.Status == EpisodeActive {
			active++
		}
	}
	if active > 1 {
		return domain.Invalidf("a patient can have only one active admission")
	}
	return nil
}

// activeEpisode returns the active episode other than skip.
func activeEpisode(episodes []Episode, skip uuid.UUID) (Episode, bool) {
	for _, e := range episodes {
		if e.Status == EpisodeActive && e.ID != skip {
			return e, true
		}
	}
	return Episode{}, false
}

// Admit opens a new episode for an existing patient. A patient can only have
// one active episode at a time.
func (s *Service) Admit(ctx context.Context, patientID uuid.UUID, e Episode) (Patient, error) {
	if err := s.prepareEpisode(&e, patientID); err != nil {
		return Patient{}, err
	}
	return s.store.Modify(ctx, patientID, func(p Patient) (Patch, error) {
		if e.Status == EpisodeActive {
			if existing, ok := activeEpisode(p.Episodes, uuid.Nil); ok {
				return Patch{}, domain.Invalidf("patient already has an active admission in %s", existing.Department)
			}
		}
		return Patch{Admit: &e}, nil
	})
}

// UpdateEpisode changes one episode. Closing an episode stamps
// discharged_at when the caller did not. An episode can only be made
// active while no other episode of the patient is.
func (s *Service) UpdateEpisode(ctx context.Context, patientID uuid.UUID, c EpisodeChange) (Patient, error) {
	if c.empty() {
		return Patient{}, domain.Invalidf("nothing to update")
	}
	if c.Status != nil && !c.Status.Valid() {
		return Patient{}, domain.Invalidf("invalid episode status: %s", *c.Status)
	}
	if c.SafetyLevel != nil && !c.SafetyLevel.Valid() {
		return Patient{}, domain.Invalidf("invalid safety level: %s", *c.SafetyLevel)
	}
	if c.Department != nil && strings.TrimSpace(*c.Department) == "" {
		return Patient{}, domain.Invalidf("department must not be empty")
	}
	return s.store.Modify(ctx, patientID, func(p Patient) (Patch, error) {
		ep, ok := p.Episode(c.ID)
		if !ok {
			return Patch{}, store.ErrNotFound
		}
		if c.Status != nil {
			if *c.Status == EpisodeActive {
				if other, ok := activeEpisode(p.Episodes, c.ID); ok {
					return Patch{}, domain.Invalidf("patient already has an active admission in %s", other.Department)
				}
			}
			if c.Status.Closed() && c.DischargedAt == nil && ep.DischargedAt == nil {
				now := s.now()
				c.DischargedAt = &now
			}
		}
		return Patch{Episode: &c}, nil
	})
}

func (s *Service) Discharge(ctx context.Context, patientID, episodeID uuid.UUID) (Patient, error) {
	status := EpisodeDischarged
	return s.UpdateEpisode(ctx, patientID, EpisodeChange{ID: episodeID, Status: &status})
}

func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, name, phone *string) (Patient, error) {
	if name == nil && phone == nil {
		return Patient{}, domain.Invalidf("nothing to update")
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return Patient{}, domain.Invalidf("name must not be empty")
		}
		name = &trimmed
	}
	return s.store.Update(ctx, id, Patch{Name: name, Phone: phone})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Remove(ctx, id)
}

type Filter struct {
	MRN        string
	Name       string
	Department string
	// Status matches the patient's latest episode.
	Status EpisodeStatus
}

func (s *Service) List(f Filter) []Patient {
	all := s.store.Items()
	out := make([]Patient, 0, len(all))
	name := strings.ToLower(f.Name)
	for _, p := range all {
		if f.MRN != "" && p.MRN != f.MRN {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if f.Status != "" || f.Department != "" {
			latest, ok := p.LatestEpisode()
			if !ok {
				continue
			}
			if f.Status != "" && latest.Status != f.Status {
				continue
			}
			if f.Department != "" && !strings.EqualFold(latest.Department, f.Department) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Admission is one episode flattened with its patient's identity.
type Admission struct {
	Episode
	MRN         string `json:"mrn"`
	PatientName string `json:"patient_name"`
}

// Admissions lists every episode across patients, latest admission first.
func (s *Service) Admissions(status EpisodeStatus, department string) []Admission {
	var out []Admission
	for _, p := range s.store.Items() {
		for _, e := range p.Episodes {
			if status != "" && e.Status != status {
				continue
			}
			if department != "" && !strings.EqualFold(e.Department, department) {
				continue
			}
			out = append(out, Admission{Episode: e, MRN: p.MRN, PatientName: p.Name})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AdmittedAt.After(out[j].AdmittedAt)
	})
	return out
}
