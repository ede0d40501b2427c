package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord is one person's presence confirmation on one calendar day.
// At most one record exists per (IdentityID, Day).
type AttendanceRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	IdentityID uuid.UUID `json:"identity_id" db:"identity_id"`
	// Day is the caller-supplied calendar date key, YYYY-MM-DD.
	Day       string    `json:"day" db:"day"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	// SnapshotKey is the MinIO key of the capture image, if one was stored.
	SnapshotKey string    `json:"snapshot_key,omitempty" db:"snapshot_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DailyStatistics is the read-side aggregate for one day.
type DailyStatistics struct {
	Day                   string `json:"day"`
	TotalIdentities       int    `json:"total_identities"`
	PresentCount          int    `json:"present_count"`
	AbsentCount           int    `json:"absent_count"`
	AttendanceRatePercent int    `json:"attendance_rate_percent"`
}
