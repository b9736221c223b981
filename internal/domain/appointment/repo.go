package appointment

import (
	"github.com/medops/hospitalops/internal/store"
)

// Repository is the appointments table. It supports retention sweeps.
type Repository interface {
	store.Table[Appointment, Patch]
	store.Purger
}

// Store is the in-memory mirror of the appointments table.
type Store = store.Store[Appointment, Patch]
