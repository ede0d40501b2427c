package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is one enrolled person. Append-only: created at registration,
// never updated or deleted.
type Identity struct {
	ID uuid.UUID `json:"id" db:"id"`
	// SubjectID is the stable external auth subject for this person.
	SubjectID string `json:"subject_id" db:"subject_id"`
	Name      string `json:"name" db:"name"`
	// PersonCode is a secondary human identifier (employee/student ID).
	PersonCode string    `json:"person_code" db:"person_code"`
	Descriptor []float32 `json:"-" db:"descriptor"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// GalleryEntry is one (identity, descriptor) pair as consumed by the matcher.
type GalleryEntry struct {
	IdentityID uuid.UUID
	Descriptor []float32
}
