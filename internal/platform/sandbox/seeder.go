// Package sandbox generates reproducible demo data (patients with admission
// episodes, consultations and appointments) and writes it through the entity
// services, so seeded rows pass the same validation as API traffic.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/medops/hospitalops/internal/domain/admission"
	"github.com/medops/hospitalops/internal/domain/appointment"
	"github.com/medops/hospitalops/internal/domain/consultation"
)

// SeedConfig controls the volume and shape of generated data.
type SeedConfig struct {
	PatientCount         int   `json:"patient_count"`
	MaxEpisodes          int   `json:"max_episodes"`
	ConsultationsPerCent int   `json:"consultations_per_cent"`
	AppointmentsPerCent  int   `json:"appointments_per_cent"`
	Seed                 int64 `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:         40,
		MaxEpisodes:          3,
		ConsultationsPerCent: 60,
		AppointmentsPerCent:  150,
		Seed:                 1,
	}
}

// SeedResult summarizes the output of a seed operation.
type SeedResult struct {
	Patients      int           `json:"patients"`
	Episodes      int           `json:"episodes"`
	Consultations int           `json:"consultations"`
	Appointments  int           `json:"appointments"`
	Duration      time.Duration `json:"duration"`
}

var (
	firstNames = []string{
		"James", "Robert", "John", "Michael", "David", "William", "Thomas",
		"Daniel", "Matthew", "Andrew", "Mary", "Patricia", "Jennifer", "Linda",
		"Elizabeth", "Susan", "Sarah", "Karen", "Emily", "Laura", "Amira",
		"Yusuf", "Mei", "Hiroshi", "Priya", "Arjun", "Sofia", "Mateo",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Wilson", "Anderson", "Taylor",
		"Moore", "Jackson", "Lee", "Nguyen", "Patel", "Kim", "Okafor",
	}
	departments = []string{
		"Internal Medicine", "Cardiology", "General Surgery", "Orthopedics",
		"Neurology", "Pediatrics", "Intensive Care", "Oncology",
	}
	specialties = []string{
		"Cardiology", "Neurology", "Nephrology", "Endocrinology", "Infectious Disease",
		"Psychiatry", "Dermatology", "Gastroenterology", "Pulmonology",
	}
	diagnoses = []string{
		"Community-acquired pneumonia", "Acute myocardial infarction",
		"Hip fracture", "Ischemic stroke", "Diabetic ketoacidosis",
		"Appendicitis", "Heart failure exacerbation", "Sepsis",
		"COPD exacerbation", "Pyelonephritis",
	}
	reasons = []string{
		"Review of anticoagulation", "New arrhythmia on telemetry",
		"Delirium after surgery", "Rising creatinine", "Poor glycemic control",
		"Persistent fever", "Low mood and poor oral intake", "New rash",
	}
)

// DataGenerator produces deterministic demo records relative to now.
type DataGenerator struct {
	rng *rand.Rand
	now time.Time
	mrn int
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64, now time.Time) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed)), now: now}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) chance(percent int) bool {
	return g.rng.Intn(100) < percent
}

func (g *DataGenerator) hoursAgo(min, max int) time.Time {
	h := min + g.rng.Intn(max-min+1)
	return g.now.Add(-time.Duration(h) * time.Hour).Truncate(time.Minute)
}

func (g *DataGenerator) phone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", 200+g.rng.Intn(800), 200+g.rng.Intn(800), g.rng.Intn(10000))
}

func strp(s string) *string { return &s }

// GeneratePatient returns a patient with one to maxEpisodes admission
// episodes. All but the latest are closed; the latest is active two times in
// three.
func (g *DataGenerator) GeneratePatient(maxEpisodes int) admission.Patient {
	g.mrn++
	gender := "female"
	if g.rng.Intn(2) == 0 {
		gender = "male"
	}
	birth := g.now.AddDate(-18-g.rng.Intn(70), -g.rng.Intn(12), -g.rng.Intn(28))

	p := admission.Patient{
		MRN:       fmt.Sprintf("MRN-%06d", 100000+g.mrn),
		Name:      g.pick(firstNames) + " " + g.pick(lastNames),
		BirthDate: admission.NewDate(birth.Year(), birth.Month(), birth.Day()),
		Gender:    strp(gender),
		Phone:     strp(g.phone()),
	}

	if maxEpisodes < 1 {
		maxEpisodes = 1
	}
	n := 1 + g.rng.Intn(maxEpisodes)
	// Episodes are laid out oldest first, each admitted after the previous
	// discharge.
	cursor := g.hoursAgo(24*30*n, 24*30*n+240)
	for i := 0; i < n; i++ {
		e := admission.Episode{
			AdmittedAt:  cursor,
			Department:  g.pick(departments),
			Doctor:      strp("Dr. " + g.pick(lastNames)),
			Diagnosis:   strp(g.pick(diagnoses)),
			Status:      admission.EpisodeDischarged,
			SafetyLevel: []admission.SafetyLevel{admission.SafetyLow, admission.SafetyModerate, admission.SafetyHigh}[g.rng.Intn(3)],
		}
		stay := time.Duration(24+g.rng.Intn(24*10)) * time.Hour
		last := i == n-1
		switch {
		case last && g.rng.Intn(3) < 2:
			e.Status = admission.EpisodeActive
			if e.AdmittedAt.Before(g.now.Add(-14 * 24 * time.Hour)) {
				e.AdmittedAt = g.hoursAgo(2, 24*10)
			}
		case last && g.chance(30):
			e.Status = admission.EpisodeTransferred
			fallthrough
		default:
			out := e.AdmittedAt.Add(stay)
			if out.After(g.now) {
				out = g.now
			}
			e.DischargedAt = &out
		}
		p.Episodes = append(p.Episodes, e)
		cursor = e.AdmittedAt.Add(stay + time.Duration(24*(5+g.rng.Intn(40)))*time.Hour)
		if cursor.After(g.now) {
			cursor = g.hoursAgo(1, 48)
		}
	}
	return p
}

// GenerateConsultation requests a consult for p from their latest department.
func (g *DataGenerator) GenerateConsultation(p admission.Patient) consultation.Consultation {
	dept := g.pick(departments)
	if latest, ok := p.LatestEpisode(); ok {
		dept = latest.Department
	}
	c := consultation.Consultation{
		MRN:                  p.MRN,
		PatientName:          p.Name,
		RequestingDepartment: dept,
		Specialty:            g.pick(specialties),
		Urgency:              []consultation.Urgency{consultation.UrgencyRoutine, consultation.UrgencyRoutine, consultation.UrgencyUrgent, consultation.UrgencyEmergency}[g.rng.Intn(4)],
		Status:               consultation.StatusActive,
		Reason:               strp(g.pick(reasons)),
	}
	if g.chance(45) {
		c.Status = consultation.StatusCompleted
		c.Notes = strp("Seen and advised; see consult note")
	}
	return c
}

// GenerateAppointment schedules a follow-up within a week either side of
// now. Past slots are mostly completed.
func (g *DataGenerator) GenerateAppointment(p admission.Patient) appointment.Appointment {
	offset := time.Duration(g.rng.Intn(24*14)-24*7) * time.Hour
	at := g.now.Add(offset).Truncate(15 * time.Minute)
	a := appointment.Appointment{
		MRN:          p.MRN,
		PatientName:  p.Name,
		Specialty:    g.pick(specialties),
		Type:         appointment.TypeRoutine,
		Status:       appointment.StatusPending,
		ScheduledFor: &at,
	}
	if g.chance(20) {
		a.Type = appointment.TypeUrgent
	}
	switch {
	case at.Before(g.now) && g.chance(80):
		a.Status = appointment.StatusCompleted
	case g.chance(10):
		a.Status = appointment.StatusCancelled
		a.Notes = strp("Cancelled by patient")
	}
	return a
}

// Batch is one generated data set, not yet persisted.
type Batch struct {
	Patients      []admission.Patient         `json:"patients"`
	Consultations []consultation.Consultation `json:"consultations"`
	Appointments  []appointment.Appointment   `json:"appointments"`
}

func (b Batch) Result() SeedResult {
	r := SeedResult{
		Patients:      len(b.Patients),
		Consultations: len(b.Consultations),
		Appointments:  len(b.Appointments),
	}
	for _, p := range b.Patients {
		r.Episodes += len(p.Episodes)
	}
	return r
}

// ExportJSON writes the batch as indented JSON.
func (b Batch) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// Generate builds a batch from cfg. The same seed and now always produce the
// same batch.
func Generate(cfg SeedConfig, now time.Time) Batch {
	g := NewDataGenerator(cfg.Seed, now)
	var b Batch
	for i := 0; i < cfg.PatientCount; i++ {
		p := g.GeneratePatient(cfg.MaxEpisodes)
		b.Patients = append(b.Patients, p)

		for n := perCent(g, cfg.ConsultationsPerCent); n > 0; n-- {
			b.Consultations = append(b.Consultations, g.GenerateConsultation(p))
		}
		for n := perCent(g, cfg.AppointmentsPerCent); n > 0; n-- {
			b.Appointments = append(b.Appointments, g.GenerateAppointment(p))
		}
	}
	return b
}

// perCent turns a rate per hundred patients into a count for one patient:
// 150 yields one, plus a second half of the time.
func perCent(g *DataGenerator, rate int) int {
	n := rate / 100
	if g.chance(rate % 100) {
		n++
	}
	return n
}

type PatientRegistrar interface {
	Register(ctx context.Context, p *admission.Patient) error
}

type ConsultationCreator interface {
	Create(ctx context.Context, c *consultation.Consultation) error
}

type AppointmentCreator interface {
	Create(ctx context.Context, a *appointment.Appointment) error
}

// Seeder writes generated batches through the entity services.
type Seeder struct {
	patients      PatientRegistrar
	consultations ConsultationCreator
	appointments  AppointmentCreator
	log           zerolog.Logger
}

func NewSeeder(p PatientRegistrar, c ConsultationCreator, a AppointmentCreator, logger zerolog.Logger) *Seeder {
	return &Seeder{
		patients:      p,
		consultations: c,
		appointments:  a,
		log:           logger.With().Str("component", "seeder").Logger(),
	}
}

// Seed persists b and stops at the first failure. The result counts what
// was written before it.
func (s *Seeder) Seed(ctx context.Context, b Batch) (SeedResult, error) {
	start := time.Now()
	var res SeedResult

	for i := range b.Patients {
		p := b.Patients[i]
		if err := s.patients.Register(ctx, &p); err != nil {
			return res, fmt.Errorf("seed patient %s: %w", p.MRN, err)
		}
		res.Patients++
		res.Episodes += len(p.Episodes)
	}
	for i := range b.Consultations {
		c := b.Consultations[i]
		if err := s.consultations.Create(ctx, &c); err != nil {
			return res, fmt.Errorf("seed consultation for %s: %w", c.MRN, err)
		}
		res.Consultations++
	}
	for i := range b.Appointments {
		a := b.Appointments[i]
		if err := s.appointments.Create(ctx, &a); err != nil {
			return res, fmt.Errorf("seed appointment for %s: %w", a.MRN, err)
		}
		res.Appointments++
	}

	res.Duration = time.Since(start)
	s.log.Info().
		Int("patients", res.Patients).
		Int("episodes", res.Episodes).
		Int("consultations", res.Consultations).
		Int("appointments", res.Appointments).
		Dur("duration", res.Duration).
		Msg("demo data seeded")
	return res, nil
}
