package attendance

import (
	"context"

	"github.com/google/uuid"

	"github.com/your-org/presence/internal/models"
)

// Store is the persistence boundary for attendance records. The Postgres
// implementation lives in internal/storage; an in-memory implementation is
// provided here for tests and single-node deployments.
type Store interface {
	// InsertUnique atomically inserts rec unless a record already exists for
	// (rec.IdentityID, rec.Day). Returns the record now in the store and
	// whether the insert happened: (rec, true) on insert, (existing, false)
	// on a same-day duplicate.
	InsertUnique(ctx context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, bool, error)

	// FindByIdentityAndDay returns the record for (identityID, day), or nil.
	FindByIdentityAndDay(ctx context.Context, identityID uuid.UUID, day string) (*models.AttendanceRecord, error)

	// FindByID returns the record with the given ID, or nil.
	FindByID(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error)

	// List returns records newest-first, optionally filtered to one day
	// (day == "" lists all), along with the total count before paging.
	List(ctx context.Context, day string, limit, offset int) ([]models.AttendanceRecord, int, error)

	// CountPresent returns the number of distinct identities with a record
	// on the given day.
	CountPresent(ctx context.Context, day string) (int, error)
}
