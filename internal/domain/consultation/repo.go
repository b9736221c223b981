package consultation

import (
	"github.com/medops/hospitalops/internal/store"
)

type Repository = store.Table[Consultation, Patch]

type Store = store.Store[Consultation, Patch]
