package dto

import "github.com/google/uuid"

const (
	AttendanceStatusMarked        = "marked"
	AttendanceStatusAlreadyMarked = "already_marked"
)

type RecognizeRequest struct {
	Descriptor []float32 `json:"descriptor" binding:"required"`
	// Day defaults to today in the service timezone.
	Day string `json:"day"`
	// Record marks attendance for the resolved identity.
	Record bool   `json:"record"`
	Source string `json:"source"`
}

type RecognizeResponse struct {
	Recognized bool        `json:"recognized"`
	IdentityID *uuid.UUID  `json:"identity_id,omitempty"`
	Name       string      `json:"name,omitempty"`
	Distance   float64     `json:"distance,omitempty"`
	Attendance *MarkResult `json:"attendance,omitempty"`
}

type MarkAttendanceRequest struct {
	IdentityID uuid.UUID `json:"identity_id" binding:"required"`
	Day        string    `json:"day" binding:"required"`
}

type MarkResult struct {
	Status   string    `json:"status"` // marked | already_marked
	RecordID uuid.UUID `json:"record_id"`
	Day      string    `json:"day"`
}

type AttendanceRecordResponse struct {
	ID          uuid.UUID `json:"id"`
	IdentityID  uuid.UUID `json:"identity_id"`
	Name        string    `json:"name,omitempty"`
	Day         string    `json:"day"`
	Timestamp   string    `json:"timestamp"`
	SnapshotKey string    `json:"snapshot_key,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

type AttendanceListResponse struct {
	Records []AttendanceRecordResponse `json:"records"`
	Total   int                        `json:"total"`
}

type CaptureAccepted struct {
	CaptureID uuid.UUID `json:"capture_id"`
	Day       string    `json:"day"`
}

type DailyStatsResponse struct {
	Day                   string `json:"day"`
	TotalIdentities       int    `json:"total_identities"`
	PresentCount          int    `json:"present_count"`
	AbsentCount           int    `json:"absent_count"`
	AttendanceRatePercent int    `json:"attendance_rate_percent"`
}
