// Package attendance turns resolved identities into idempotent daily
// attendance facts and serves the read-side aggregates.
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/presence/internal/models"
	"github.com/your-org/presence/internal/observability"
)

const dayLayout = "2006-01-02"

// ValidateDay checks that day is a calendar date key in YYYY-MM-DD form.
func ValidateDay(day string) error {
	if _, err := time.Parse(dayLayout, day); err != nil {
		return fmt.Errorf("invalid day key %q: %w", day, err)
	}
	return nil
}

// DayOf formats t as a day key in the given location.
func DayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// Outcome is the result of one Record call.
type Outcome struct {
	// Marked is true when a new record was created, false when one already
	// existed for the (identity, day) pair.
	Marked bool
	Record models.AttendanceRecord
}

// Recorder enforces the one-record-per-identity-per-day invariant over a
// Store and computes daily presence statistics. It performs no retries;
// store failures surface to the caller.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record marks identityID present on day. The first call for a pair creates
// a record with a fresh ID; later calls return the existing record unchanged.
// The uniqueness decision is delegated to the store's conditional insert, so
// concurrent calls for the same pair cannot create duplicates.
func (r *Recorder) Record(ctx context.Context, identityID uuid.UUID, day string, timestamp time.Time, snapshotKey string) (Outcome, error) {
	if err := ValidateDay(day); err != nil {
		return Outcome{}, err
	}

	rec := models.AttendanceRecord{
		ID:          uuid.New(),
		IdentityID:  identityID,
		Day:         day,
		Timestamp:   timestamp,
		SnapshotKey: snapshotKey,
	}

	stored, inserted, err := r.store.InsertUnique(ctx, rec)
	if err != nil {
		return Outcome{}, fmt.Errorf("record attendance: %w", err)
	}

	if inserted {
		observability.AttendanceMarked.Inc()
	} else {
		observability.AttendanceDuplicates.Inc()
	}

	return Outcome{Marked: inserted, Record: *stored}, nil
}

// DailyStatistics aggregates presence for one day. A present count exceeding
// totalIdentityCount signals inconsistent data; the absent count is clamped
// to zero and the read succeeds.
func (r *Recorder) DailyStatistics(ctx context.Context, day string, totalIdentityCount int) (models.DailyStatistics, error) {
	if err := ValidateDay(day); err != nil {
		return models.DailyStatistics{}, err
	}

	present, err := r.store.CountPresent(ctx, day)
	if err != nil {
		return models.DailyStatistics{}, fmt.Errorf("count present: %w", err)
	}

	absent := totalIdentityCount - present
	if absent < 0 {
		slog.Warn("inconsistent daily statistics",
			"day", day,
			"present", present,
			"total_identities", totalIdentityCount,
		)
		observability.StatisticsClamped.Inc()
		absent = 0
	}

	rate := 0
	if totalIdentityCount > 0 {
		rate = int(math.Round(float64(present) / float64(totalIdentityCount) * 100))
	}

	return models.DailyStatistics{
		Day:                   day,
		TotalIdentities:       totalIdentityCount,
		PresentCount:          present,
		AbsentCount:           absent,
		AttendanceRatePercent: rate,
	}, nil
}

// Find returns the attendance record with the given ID, or nil.
func (r *Recorder) Find(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	return r.store.FindByID(ctx, id)
}

// List returns attendance records newest-first, optionally scoped to one day.
func (r *Recorder) List(ctx context.Context, day string, limit, offset int) ([]models.AttendanceRecord, int, error) {
	if day != "" {
		if err := ValidateDay(day); err != nil {
			return nil, 0, err
		}
	}
	return r.store.List(ctx, day, limit, offset)
}
