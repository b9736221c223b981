package admission

import (
	"github.com/medops/hospitalops/internal/store"
)

// Repository is the patients table together with admission_episodes.
// Insert writes the patient and its episodes; Update may touch both tables.
type Repository = store.Table[Patient, Patch]

type Store = store.Store[Patient, Patch]
