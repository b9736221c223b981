package appointment

import (
	"testing"
	"time"

	"github.com/medops/hospitalops/internal/domain/tone"
)

func TestStatus_Tone(t *testing.T) {
	tests := map[Status]tone.Tone{
		StatusPending:   tone.Warning,
		StatusCompleted: tone.Success,
		StatusCancelled: tone.Danger,
		"unknown":       tone.Neutral,
	}
	for s, want := range tests {
		if got := s.Tone(); got != want {
			t.Errorf("%s: expected %s, got %s", s, want, got)
		}
	}
}

func TestType_Valid(t *testing.T) {
	if !TypeRoutine.Valid() || !TypeUrgent.Valid() {
		t.Error("expected routine and urgent to be valid")
	}
	if Type("walk-in").Valid() {
		t.Error("expected walk-in to be invalid")
	}
}

func TestClone_IsDeep(t *testing.T) {
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	notes := "fasting"
	a := Appointment{ScheduledFor: &at, Notes: &notes}
	c := a.Clone()
	*c.ScheduledFor = at.Add(time.Hour)
	*c.Notes = "changed"
	if !a.ScheduledFor.Equal(at) || *a.Notes != "fasting" {
		t.Error("clone shares pointers with the original")
	}
}

func TestPatch_Apply(t *testing.T) {
	a := Appointment{Status: StatusPending}
	done := StatusCompleted
	Patch{Status: &done}.Apply(&a)
	if a.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", a.Status)
	}
	if !(Patch{}).Empty() {
		t.Error("expected zero patch to be empty")
	}
}

func TestEventDate(t *testing.T) {
	created := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	a := Appointment{CreatedAt: created}
	if !a.EventDate().Equal(created) {
		t.Error("expected created_at when unscheduled")
	}
	slot := created.Add(48 * time.Hour)
	a.ScheduledFor = &slot
	if !a.EventDate().Equal(slot) {
		t.Error("expected scheduled_for when set")
	}
}
