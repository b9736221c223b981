package history

import (
	"math"

	"github.com/medops/hospitalops/internal/domain/admission"
	"github.com/medops/hospitalops/internal/domain/appointment"
	"github.com/medops/hospitalops/internal/domain/consultation"
)

// Summary counts records by status per entity type. A patient counts once,
// with the status of their latest episode; patients without episodes are
// left out.
type Summary struct {
	Admissions     map[string]int `json:"admissions"`
	Consultations  map[string]int `json:"consultations"`
	Appointments   map[string]int `json:"appointments"`
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	CompletionRate int            `json:"completion_rate"`
}

// CompletionRate is round(100 * completed / total), and 0 when total is 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// Summarize treats discharged patients and completed consultations and
// appointments as completed.
func Summarize(patients []admission.Patient, consultations []consultation.Consultation, appointments []appointment.Appointment) Summary {
	s := Summary{
		Admissions:    map[string]int{},
		Consultations: map[string]int{},
		Appointments:  map[string]int{},
	}

	for _, p := range patients {
		latest, ok := p.LatestEpisode()
		if !ok {
			continue
		}
		s.Admissions[string(latest.Status)]++
		s.Total++
		if latest.Status == admission.EpisodeDischarged {
			s.Completed++
		}
	}
	for _, c := range consultations {
		s.Consultations[string(c.Status)]++
		s.Total++
		if c.Status == consultation.StatusCompleted {
			s.Completed++
		}
	}
	for _, a := range appointments {
		s.Appointments[string(a.Status)]++
		s.Total++
		if a.Status == appointment.StatusCompleted {
			s.Completed++
		}
	}

	s.CompletionRate = CompletionRate(s.Completed, s.Total)
	return s
}
