package dto

import (
	"github.com/google/uuid"
)

const (
	EventAttendanceMarked    = "attendance_marked"
	EventAttendanceDuplicate = "attendance_duplicate"
	EventFaceUnrecognized    = "face_unrecognized"
)

// WSEvent is a WebSocket message for real-time attendance delivery.
type WSEvent struct {
	Type string      `json:"type"`
	Day  string      `json:"day"`
	Data WSEventData `json:"data,omitempty"`
}

type WSEventData struct {
	CaptureID  uuid.UUID  `json:"capture_id,omitempty"`
	IdentityID *uuid.UUID `json:"identity_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Distance   float64    `json:"distance,omitempty"`
	RecordID   *uuid.UUID `json:"record_id,omitempty"`
	Timestamp  string     `json:"timestamp"`
	Source     string     `json:"source,omitempty"`
}
